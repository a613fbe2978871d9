package pages

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves the static about/contact content the web frontend renders.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/about", h.about)
	r.Get("/contact", h.contact)
}

func (h *Handler) about(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"title": "About Ecodonate",
		"body": "Ecodonate connects donors with projects advancing the 17 UN " +
			"Sustainable Development Goals. Every donation goes directly to the " +
			"project you choose, paid from your phone via M-Pesa.",
	})
}

func (h *Handler) contact(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{
		"title": "Contact",
		"email": "hello@ecodonate.example",
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
