package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oberr "oceanbot/internal/errors"
	"oceanbot/internal/httpx"
)

func TestSendMessage(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(2*time.Second, 0), "123:abc")
	c.SetAPIBase(srv.URL)

	err := c.SendMessage(context.Background(), 42, "<b>hi</b>", Keyboard(Row("Oceans", "oceans", "Wallet", "wallet")))
	require.NoError(t, err)
	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, float64(42), gotBody["chat_id"])
	assert.Equal(t, "HTML", gotBody["parse_mode"])
	markup := gotBody["reply_markup"].(map[string]any)
	rows := markup["inline_keyboard"].([]any)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0].([]any), 2)
}

func TestCallReportsAPIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	c := NewClient(httpx.New(2*time.Second, 0), "t")
	c.SetAPIBase(srv.URL)
	err := c.AnswerCallbackQuery(context.Background(), "cb", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestCallWithoutToken(t *testing.T) {
	err := NewClient(httpx.New(time.Second, 0), "").DeleteWebhook(context.Background())
	assert.True(t, oberr.Is(err, oberr.CodeUsage))
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
	release chan struct{}
}

func (r *recorder) HandleUpdate(_ context.Context, u Update) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func TestWebhookDispatchesAndAlwaysAnswersOK(t *testing.T) {
	rec := &recorder{}
	hook := NewWebhook(rec, "s3cret", nil)
	r := chi.NewRouter()
	hook.Mount(r)

	post := func(body string, header string) int {
		req := httptest.NewRequest(http.MethodPost, "/telegram/s3cret", strings.NewReader(body))
		if header != "" {
			req.Header.Set(SecretHeader, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post(`{"update_id":1,"message":{"message_id":5,"chat":{"id":9,"type":"private"},"text":"/start"}}`, "s3cret"))
	assert.Equal(t, http.StatusOK, post(`{not json`, ""))
	assert.Equal(t, http.StatusUnauthorized, post(`{"update_id":2}`, "wrong"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, hook.Wait(ctx))
	require.Len(t, rec.updates, 1)
	assert.Equal(t, "/start", rec.updates[0].Message.Text)
	assert.Equal(t, int64(9), rec.updates[0].Message.Chat.ID)

	req := httptest.NewRequest(http.MethodPost, "/telegram/other", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookAnswersBeforeHandlingFinishes(t *testing.T) {
	rec := &recorder{release: make(chan struct{})}
	hook := NewWebhook(rec, "s3cret", nil)

	req := httptest.NewRequest(http.MethodPost, "/telegram/s3cret",
		strings.NewReader(`{"update_id":3,"message":{"message_id":1,"chat":{"id":4,"type":"private"},"text":"/oceans"}}`))
	w := httptest.NewRecorder()
	hook.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, hook.Wait(short), context.DeadlineExceeded)

	close(rec.release)
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	require.NoError(t, hook.Wait(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.updates, 1)
	assert.Equal(t, "/oceans", rec.updates[0].Message.Text)
}
