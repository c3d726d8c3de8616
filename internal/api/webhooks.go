package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hackgods/salon-booking-assistant/internal/channel"
)

// InboundRelay runs provider messages through the dialogue. *channel.Relay implements it.
type InboundRelay interface {
	Deliver(ctx context.Context, in channel.Inbound) error
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

func whatsappVerifyHandler(wa *channel.WhatsApp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		challenge, ok := wa.Verify(q.Get("hub.mode"), q.Get("hub.verify_token"), q.Get("hub.challenge"))
		if !ok {
			writeError(w, http.StatusForbidden, "verification_failed", nil)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
	}
}

func whatsappWebhookHandler(wa *channel.WhatsApp, relay InboundRelay, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read body")
			return
		}
		if !wa.VerifySignature(body, r.Header.Get("X-Hub-Signature-256")) {
			writeError(w, http.StatusUnauthorized, "invalid_signature", nil)
			return
		}

		msgs, err := channel.ParseWhatsApp(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unsupported_payload", err.Error())
			return
		}

		deliver(w, r, relay, logger, msgs...)
	}
}

func msg91WebhookHandler(relay InboundRelay, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not read body")
			return
		}

		in, err := channel.ParseMSG91(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "unsupported_payload", err.Error())
			return
		}

		deliver(w, r, relay, logger, in)
	}
}

// deliver answers 500 when any message could not be processed so the
// provider retries; already processed ids are deduplicated on retry.
func deliver(w http.ResponseWriter, r *http.Request, relay InboundRelay, logger *zap.Logger, msgs ...channel.Inbound) {
	var failed error
	for _, in := range msgs {
		if err := relay.Deliver(r.Context(), in); err != nil {
			logger.Error("webhook delivery failed",
				zap.String("channel", in.Channel),
				zap.String("message_id", in.MessageID),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err),
			)
			failed = errors.Join(failed, err)
		}
	}

	if failed != nil {
		writeError(w, http.StatusInternalServerError, "delivery_failed", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
