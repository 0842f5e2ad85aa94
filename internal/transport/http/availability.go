package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/seatsurge/boxoffice/internal/app"
)

// AvailabilityReader is the minimal interface for the shop-front listing.
type AvailabilityReader interface {
	ForEvent(ctx context.Context, eventID, subeventID string) ([]app.ProductAvailability, error)
}

// HandleAvailability serves GET /events/{id}/availability.
func HandleAvailability(svc AvailabilityReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		eventID, ok := parseAvailabilityPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		rows, err := svc.ForEvent(r.Context(), eventID, r.URL.Query().Get("subevent_id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]availabilityResponse, 0, len(rows))
		for _, row := range rows {
			item := availabilityResponse{
				ProductID: row.ProductID,
				Level:     string(row.Level),
				Unlimited: row.Unlimited,
			}
			if !row.Unlimited {
				item.Remaining = &row.Remaining
			}
			resp = append(resp, item)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type availabilityResponse struct {
	ProductID string `json:"product_id"`
	Level     string `json:"level"`
	Unlimited bool   `json:"unlimited"`
	Remaining *int   `json:"remaining,omitempty"`
}

func parseAvailabilityPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "events" || parts[2] != "availability" {
		return "", false
	}
	if parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
