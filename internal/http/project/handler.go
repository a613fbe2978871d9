package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ecodonate/ecodonate/internal/http/middleware"
	"github.com/ecodonate/ecodonate/internal/project"
)

type Handler struct {
	svc    *project.Service
	logger zerolog.Logger
}

func NewHandler(svc *project.Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.With(requireAuth).Post("/", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := project.ListFilter{}

	if s := r.URL.Query().Get("goal"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || !project.Goal(n).Valid() {
			http.Error(w, "invalid goal", http.StatusBadRequest)
			return
		}

		goal := project.Goal(n)
		filter.Goal = &goal
	}

	if s := r.URL.Query().Get("creator_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid creator id", http.StatusBadRequest)
			return
		}

		filter.CreatorID = &id
	}

	projects, err := h.svc.List(r.Context(), filter)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(projects)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

type createProjectRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Goal         int     `json:"goal"`
	TargetAmount int64   `json:"target_amount"`
	ImageURL     *string `json:"image_url,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	creatorID, ok := middleware.DonorID(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), project.CreateParams{
		Title:        req.Title,
		Description:  req.Description,
		Goal:         project.Goal(req.Goal),
		TargetAmount: req.TargetAmount,
		ImageURL:     req.ImageURL,
		CreatorID:    creatorID,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(p)); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}
