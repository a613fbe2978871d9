package donation

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecodonate/ecodonate/internal/donation"
	"github.com/ecodonate/ecodonate/internal/http/middleware"
	"github.com/ecodonate/ecodonate/internal/mpesa"
	"github.com/ecodonate/ecodonate/internal/project"
	"github.com/ecodonate/ecodonate/internal/session"
)

type Handler struct {
	svc      *donation.Service
	sessions *session.Manager
	logger   zerolog.Logger
}

func NewHandler(svc *donation.Service, sessions *session.Manager, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, sessions: sessions, logger: logger}
}

// Routes mounts the donation flow. Push and complete mutate money, so they
// sit behind the auth middleware; start, confirm and cancel do not.
func (h *Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/start/{projectID}", h.start)
	r.Get("/confirm", h.confirm)
	r.Post("/cancel", h.cancel)
	r.With(requireAuth).Get("/", h.list)
	r.With(requireAuth).Post("/push", h.push)
	r.With(requireAuth).Post("/complete", h.complete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := donation.ListFilter{}

	if s := r.URL.Query().Get("project_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid project id", http.StatusBadRequest)
			return
		}

		filter.ProjectID = &id
	}

	if s := r.URL.Query().Get("donor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid donor id", http.StatusBadRequest)
			return
		}

		filter.DonorID = &id
	}

	donations, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toDonationResponseList(donations))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

type startRequest struct {
	Amount      int64  `json:"amount"`
	PhoneNumber string `json:"phone_number"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		http.Error(w, "invalid project id", http.StatusBadRequest)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	pending, err := h.svc.Start(r.Context(), donation.StartParams{
		ProjectID:   projectID,
		Amount:      req.Amount,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		var fe donation.FieldErrors
		if errors.As(err, &fe) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fe})
			return
		}

		if errors.Is(err, project.ErrNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if err := h.sessions.Issue(w, pending); err != nil {
		h.logger.Error().Err(err).Msg("failed to issue donation session")
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	h.writeJSON(w, http.StatusCreated, toPendingResponse(pending))
}

func (h *Handler) push(w http.ResponseWriter, r *http.Request) {
	pending, err := h.sessions.Read(r)
	if err != nil {
		http.Error(w, "no transaction data", http.StatusNotFound)
		return
	}

	donorID, _ := middleware.DonorID(r.Context())

	if err := h.svc.Push(r.Context(), pending, &donorID); err != nil {
		h.writeGatewayError(w, err)
		return
	}

	// The session must now carry the correlation id.
	if err := h.sessions.Issue(w, pending); err != nil {
		h.logger.Error().Err(err).Msg("failed to refresh donation session")
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	h.writeJSON(w, http.StatusAccepted, toPendingResponse(pending))
}

// writeGatewayError maps push failures onto responses. Gateway messages are
// surfaced to the user; the pending donation is left alone so a manual retry
// stays possible. Nothing retries automatically.
func (h *Handler) writeGatewayError(w http.ResponseWriter, err error) {
	if errors.Is(err, donation.ErrNoPending) {
		http.Error(w, "no transaction data", http.StatusNotFound)
		return
	}

	if errors.Is(err, donation.ErrInvalidState) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	if errors.Is(err, donation.ErrAttemptNotRecorded) {
		// The gateway accepted the push; the failure is ours, not theirs.
		h.logger.Error().Err(err).Msg("accepted push could not be recorded")
		http.Error(w, "could not record your donation, please try again", http.StatusInternalServerError)

		return
	}

	var gatewayErr *mpesa.GatewayError
	if errors.As(err, &gatewayErr) {
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": gatewayErr.Message})
		return
	}

	var authErr *mpesa.AuthError
	if errors.As(err, &authErr) {
		h.logger.Error().Err(err).Msg("gateway auth failure")
		h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway authorization failed"})

		return
	}

	h.logger.Error().Err(err).Msg("push failed")
	h.writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable, please try again"})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	pending, err := h.sessions.Read(r)
	if err != nil {
		http.Error(w, "no transaction data", http.StatusNotFound)
		return
	}

	if err := h.svc.Confirm(pending); err != nil {
		http.Error(w, "no transaction data", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, toPendingResponse(pending))
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	pending, err := h.sessions.Read(r)
	if err != nil {
		http.Error(w, "no transaction data", http.StatusNotFound)
		return
	}

	donorID, _ := middleware.DonorID(r.Context())

	d, err := h.svc.Complete(r.Context(), pending, &donorID)
	if err != nil {
		if errors.Is(err, donation.ErrAlreadySettled) {
			// The callback path won the race; the money is committed.
			h.sessions.Clear(w)
			h.writeJSON(w, http.StatusOK, map[string]string{"status": string(donation.StateCompleted)})

			return
		}

		if errors.Is(err, donation.ErrInvalidState) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		// The pending session is deliberately kept: the user can see what
		// they attempted and try again.
		h.logger.Error().Err(err).Msg("donation commit failed")
		http.Error(w, "could not record your donation, please try again", http.StatusInternalServerError)

		return
	}

	h.sessions.Clear(w)
	h.writeJSON(w, http.StatusCreated, toDonationResponse(d))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	pending, err := h.sessions.Read(r)
	if err != nil {
		http.Error(w, "no transaction data", http.StatusNotFound)
		return
	}

	h.svc.Cancel(r.Context(), pending)
	h.sessions.Clear(w)

	h.writeJSON(w, http.StatusOK, map[string]string{"status": string(donation.StateCancelled)})
}
