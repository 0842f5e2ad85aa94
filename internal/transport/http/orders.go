package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/seatsurge/boxoffice/internal/app"
)

// OrderCreator is the minimal interface needed to convert a cart.
type OrderCreator interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (app.CreateOrderResult, error)
}

// HandleCreateOrder returns an HTTP handler for cart-to-order conversion.
// The idempotency key travels in the Idempotency-Key header; replays return
// the stored order with 200 instead of 201.
func HandleCreateOrder(svc OrderCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createOrderRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.CartID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "cart_id is required")
			return
		}
		key := r.Header.Get("Idempotency-Key")
		if key == "" {
			writeError(w, http.StatusBadRequest, codeIdempotencyRequired, "Idempotency-Key header is required")
			return
		}

		result, err := svc.CreateOrder(r.Context(), app.CreateOrderInput{
			CartID:         req.CartID,
			IdempotencyKey: key,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := orderResponse{
			ID:         result.Order.ID,
			EventID:    result.Order.EventID,
			CartID:     result.Order.CartID,
			Currency:   result.Order.Currency,
			TotalGross: result.Order.TotalGross.String(),
			PriceDrift: result.Order.PriceDrift,
			CreatedAt:  result.Order.CreatedAt,
		}
		for _, p := range result.Positions {
			resp.Positions = append(resp.Positions, orderPositionResponse{
				ID:          p.ID,
				ProductID:   p.ProductID,
				VariationID: p.VariationID,
				SubeventID:  p.SubeventID,
				PriceGross:  p.PriceGross.String(),
				PriceNet:    p.PriceNet.String(),
				TaxValue:    p.TaxValue.String(),
				TaxRate:     p.TaxRate.String(),
			})
		}

		status := http.StatusOK
		if result.Created {
			status = http.StatusCreated
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type createOrderRequest struct {
	CartID string `json:"cart_id"`
}

type orderPositionResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	VariationID string `json:"variation_id,omitempty"`
	SubeventID  string `json:"subevent_id,omitempty"`
	PriceGross  string `json:"price_gross"`
	PriceNet    string `json:"price_net"`
	TaxValue    string `json:"tax_value"`
	TaxRate     string `json:"tax_rate"`
}

type orderResponse struct {
	ID         string                  `json:"id"`
	EventID    string                  `json:"event_id"`
	CartID     string                  `json:"cart_id"`
	Currency   string                  `json:"currency"`
	TotalGross string                  `json:"total_gross"`
	PriceDrift bool                    `json:"price_drift"`
	CreatedAt  time.Time               `json:"created_at"`
	Positions  []orderPositionResponse `json:"positions,omitempty"`
}
