// Package callback receives the gateway's asynchronous payment results. The
// endpoint is unauthenticated and sessionless: the only way back to the
// originating donation is the correlation id inside the payload.
package callback

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ecodonate/ecodonate/internal/donation"
	"github.com/ecodonate/ecodonate/internal/mpesa"
)

type Handler struct {
	svc    *donation.Service
	logger zerolog.Logger
}

func NewHandler(svc *donation.Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.receive)
}

// receive always acknowledges a well-formed callback with the fixed shape
// Daraja expects, whatever happened internally; anything else and the
// gateway retries forever. Malformed bodies are the one exception and get a
// transport-level 400.
func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	var envelope mpesa.CallbackEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn().Err(err).Msg("malformed callback body")
		http.Error(w, "malformed callback", http.StatusBadRequest)

		return
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		h.logger.Warn().Msg("callback without correlation id")
		http.Error(w, "malformed callback", http.StatusBadRequest)

		return
	}

	if err := h.svc.HandleCallback(r.Context(), cb); err != nil {
		// Acknowledged regardless: an unknown or already-settled attempt is
		// not something the gateway can fix by redelivering.
		if errors.Is(err, donation.ErrAttemptNotFound) {
			h.logger.Warn().
				Str("checkout_request_id", cb.CheckoutRequestID).
				Msg("callback for unknown payment attempt")
		} else {
			h.logger.Error().Err(err).
				Str("checkout_request_id", cb.CheckoutRequestID).
				Msg("callback processing failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")

	ack := mpesa.Ack{ResultCode: 0, ResultDesc: "Callback received successfully"}
	if err := json.NewEncoder(w).Encode(ack); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode callback ack")
	}
}
