package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/app"
	"github.com/seatsurge/boxoffice/internal/domain"
)

// CartManager is the minimal interface needed for cart endpoints.
type CartManager interface {
	AddToCart(ctx context.Context, in app.AddToCartInput) ([]domain.CartPosition, error)
	ApplyVoucher(ctx context.Context, cartID, code string) ([]domain.CartPosition, error)
	RemoveVoucher(ctx context.Context, cartID string) ([]domain.CartPosition, error)
	ExtendCart(ctx context.Context, cartID string) ([]domain.CartPosition, error)
}

// HandleAddToCart returns an HTTP handler for adding positions to a cart.
func HandleAddToCart(svc CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req addToCartRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.ProductID == "" {
			writeError(w, http.StatusBadRequest, codeInvalidID, "product_id is required")
			return
		}

		var customPrice *decimal.Decimal
		if req.CustomPrice != "" {
			parsed, err := decimal.NewFromString(req.CustomPrice)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid custom_price")
				return
			}
			customPrice = &parsed
		}

		positions, err := svc.AddToCart(r.Context(), app.AddToCartInput{
			CartID:           req.CartID,
			ProductID:        req.ProductID,
			VariationID:      req.VariationID,
			SubeventID:       req.SubeventID,
			Quantity:         req.Quantity,
			VoucherCode:      req.VoucherCode,
			CustomPrice:      customPrice,
			DisplayNetPrices: req.DisplayNetPrices,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(cartResponseFrom(positions))
	}
}

// HandleCartActions routes /carts/{id}/extend and /carts/{id}/voucher.
func HandleCartActions(svc CartManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cartID, action, ok := parseCartActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		var (
			positions []domain.CartPosition
			err       error
		)
		switch {
		case action == "extend" && r.Method == http.MethodPost:
			positions, err = svc.ExtendCart(r.Context(), cartID)
		case action == "voucher" && r.Method == http.MethodPost:
			var req applyVoucherRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if decErr := dec.Decode(&req); decErr != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.Code == "" {
				writeError(w, http.StatusBadRequest, codeVoucherInvalid, "code is required")
				return
			}
			positions, err = svc.ApplyVoucher(r.Context(), cartID, req.Code)
		case action == "voucher" && r.Method == http.MethodDelete:
			positions, err = svc.RemoveVoucher(r.Context(), cartID)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(cartResponseFrom(positions))
	}
}

type addToCartRequest struct {
	CartID           string `json:"cart_id,omitempty"`
	ProductID        string `json:"product_id"`
	VariationID      string `json:"variation_id,omitempty"`
	SubeventID       string `json:"subevent_id,omitempty"`
	Quantity         int    `json:"quantity"`
	VoucherCode      string `json:"voucher_code,omitempty"`
	CustomPrice      string `json:"custom_price,omitempty"`
	DisplayNetPrices bool   `json:"display_net_prices,omitempty"`
}

type applyVoucherRequest struct {
	Code string `json:"code"`
}

type cartPositionResponse struct {
	ID                string    `json:"id"`
	ProductID         string    `json:"product_id"`
	VariationID       string    `json:"variation_id,omitempty"`
	SubeventID        string    `json:"subevent_id,omitempty"`
	BundleParentID    string    `json:"bundle_parent_id,omitempty"`
	ListedPrice       string    `json:"listed_price"`
	PriceAfterVoucher string    `json:"price_after_voucher"`
	PriceGross        string    `json:"price_gross"`
	PriceNet          string    `json:"price_net"`
	TaxRate           string    `json:"tax_rate"`
	ExpiresAt         time.Time `json:"expires_at"`
}

type cartResponse struct {
	CartID    string                 `json:"cart_id"`
	Positions []cartPositionResponse `json:"positions"`
}

func cartResponseFrom(positions []domain.CartPosition) cartResponse {
	resp := cartResponse{Positions: make([]cartPositionResponse, 0, len(positions))}
	for _, p := range positions {
		resp.CartID = p.CartID
		resp.Positions = append(resp.Positions, cartPositionResponse{
			ID:                p.ID,
			ProductID:         p.ProductID,
			VariationID:       p.VariationID,
			SubeventID:        p.SubeventID,
			BundleParentID:    p.BundleParentID,
			ListedPrice:       p.ListedPrice.String(),
			PriceAfterVoucher: p.PriceAfterVoucher.String(),
			PriceGross:        p.LinePriceGross.String(),
			PriceNet:          p.LinePriceNet.String(),
			TaxRate:           p.TaxRate.String(),
			ExpiresAt:         p.ExpiresAt,
		})
	}
	return resp
}

func parseCartActionPath(path string) (cartID, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "carts" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
