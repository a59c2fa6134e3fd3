package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	SecretHeader   = "X-Telegram-Bot-Api-Secret-Token"
	maxUpdateBytes = 1 << 20
)

// UpdateHandler processes one decoded update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update Update)
}

// Webhook receives updates over HTTP. It answers 200 for every delivery it
// accepts so Telegram does not redeliver updates the bot failed on. Updates
// are handled after the answer, on goroutines tracked by Wait.
type Webhook struct {
	handler UpdateHandler
	secret  string
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewWebhook(handler UpdateHandler, secret string, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Webhook{handler: handler, secret: secret, logger: logger}
}

// Path is the route the webhook is mounted on.
func (w *Webhook) Path() string {
	return "/telegram/" + w.secret
}

// Mount registers the webhook route on r.
func (w *Webhook) Mount(r chi.Router) {
	r.Post(w.Path(), w.ServeHTTP)
}

func (w *Webhook) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if w.secret != "" {
		if token := r.Header.Get(SecretHeader); token != "" && token != w.secret {
			w.logger.Warn("webhook secret mismatch", zap.String("remote", r.RemoteAddr))
			rw.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
	if err != nil {
		w.logger.Warn("read update", zap.Error(err))
		rw.WriteHeader(http.StatusOK)
		return
	}
	var update Update
	if err := json.Unmarshal(body, &update); err != nil {
		w.logger.Warn("decode update", zap.Error(err))
		rw.WriteHeader(http.StatusOK)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.handler.HandleUpdate(ctx, update)
	}()
	rw.WriteHeader(http.StatusOK)
}

// Wait blocks until every dispatched update was handled.
func (w *Webhook) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
