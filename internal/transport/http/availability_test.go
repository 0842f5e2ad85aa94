package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/inventory"
)

func TestHandleAvailability(t *testing.T) {
	t.Parallel()

	rows := []app.ProductAvailability{
		{ProductID: "prod-1", Level: inventory.LevelOK, Remaining: 42},
		{ProductID: "prod-2", Level: inventory.LevelOK, Unlimited: true},
		{ProductID: "prod-3", Level: inventory.LevelGone, Remaining: 0},
	}

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		svc := &stubAvailabilityReader{rows: rows}
		req := httptest.NewRequest(http.MethodGet, "/events/event-1/availability?subevent_id=sub-1", nil)
		rec := httptest.NewRecorder()

		HandleAvailability(svc).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		if svc.eventID != "event-1" || svc.subeventID != "sub-1" {
			t.Fatalf("expected event-1/sub-1, got %s/%s", svc.eventID, svc.subeventID)
		}

		var resp []availabilityResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(resp) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(resp))
		}
		if resp[0].Remaining == nil || *resp[0].Remaining != 42 {
			t.Fatalf("expected remaining 42, got %v", resp[0].Remaining)
		}
		// Unlimited products do not expose a count.
		if resp[1].Remaining != nil {
			t.Fatalf("expected no remaining for unlimited, got %v", *resp[1].Remaining)
		}
		if resp[2].Level != string(inventory.LevelGone) {
			t.Fatalf("expected gone level, got %s", resp[2].Level)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodPost, "/events/event-1/availability", nil)
		rec := httptest.NewRecorder()

		HandleAvailability(&stubAvailabilityReader{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected status 405, got %d", rec.Code)
		}
	})

	t.Run("invalid path", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/events/event-1/other", nil)
		rec := httptest.NewRecorder()

		HandleAvailability(&stubAvailabilityReader{}).ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("service error", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/events/event-1/availability", nil)
		rec := httptest.NewRecorder()

		HandleAvailability(&stubAvailabilityReader{err: errors.New("boom")}).ServeHTTP(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", rec.Code)
		}
	})
}

type stubAvailabilityReader struct {
	rows       []app.ProductAvailability
	err        error
	eventID    string
	subeventID string
}

func (s *stubAvailabilityReader) ForEvent(_ context.Context, eventID, subeventID string) ([]app.ProductAvailability, error) {
	s.eventID = eventID
	s.subeventID = subeventID
	return s.rows, s.err
}
