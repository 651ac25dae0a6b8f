package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lawquery/lexgate/internal/shared/database"
)

type AdminHandler struct {
	db *database.DB
}

func NewAdminHandler(db *database.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

type banEventResponse struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"client_id"`
	Endpoint        string    `json:"endpoint"`
	DurationSeconds int       `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}

// HandleRecentBans handles GET /v1/admin/bans, listing bans issued in the
// last 24 hours.
func (h *AdminHandler) HandleRecentBans(w http.ResponseWriter, r *http.Request) {
	events, err := h.db.RecentBans(r.Context(), 24*time.Hour)
	if err != nil {
		http.Error(w, "failed to load ban events", http.StatusInternalServerError)
		return
	}

	out := make([]banEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, banEventResponse{
			ID:              e.ID,
			ClientID:        e.ClientID,
			Endpoint:        e.Endpoint,
			DurationSeconds: e.DurationSeconds,
			CreatedAt:       e.CreatedAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"bans":  out,
		"count": len(out),
	})
}
