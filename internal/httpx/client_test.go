package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oberr "oceanbot/internal/errors"
)

func TestDoJSONRetriesServerError(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&count, 1)
		if n == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"x"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(2*time.Second, 1)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	var out map[string]any
	_, err = client.DoJSON(context.Background(), req, &out)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}

func TestDoBodyJSONReplaysBodyOnRetry(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		if string(buf[:n]) != `{"q":1}` {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if atomic.AddInt32(&count, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out map[string]any
	_, err := DoBodyJSON(context.Background(), New(2*time.Second, 2), http.MethodPost, srv.URL, []byte(`{"q":1}`), nil, &out)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
}

func TestDoMapsClientErrorsWithoutRetry(t *testing.T) {
	var count int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&count, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	_, _, err = New(2*time.Second, 3).Do(context.Background(), req)
	require.Error(t, err)
	assert.True(t, oberr.Is(err, oberr.CodeUnsupported))
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}
