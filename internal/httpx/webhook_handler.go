package httpx

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/chronoshop/storefront/internal/payment"
)

type EventHandler interface {
	HandleEvent(ctx context.Context, ev *payment.Event) error
}

// WebhookHandler is the gateway's delivery endpoint. Signature verification
// is the only hard gate; once a payload is authentic it is always
// acknowledged, because a non-2xx here only provokes uncontrolled gateway
// retries while the reconciler's own idempotency already covers redelivery.
type WebhookHandler struct {
	Reconciler EventHandler
	Secret     string
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/api/webhooks/payments", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	sig := r.Header.Get("Stripe-Signature")
	if sig == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing signature header"})
		return
	}

	ev, err := payment.ParseSignedEvent(body, sig, h.Secret, time.Now())
	if err != nil {
		log.Warn().Err(err).Msg("webhook rejected")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Reconciler.HandleEvent(ctx, ev); err != nil {
		// Acknowledged anyway: the failure is ours to retry via monitoring,
		// not the gateway's.
		log.Error().Err(err).Str("event_id", ev.ID).Str("event_type", ev.Type).
			Msg("webhook processing failed")
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
