package auth

import (
	"encoding/json"
	"net/http"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me echoes the authenticated player id.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	playerID := PlayerIDFromContext(r.Context())
	if playerID == "" {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"player_id": playerID})
}
