package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/seatsurge/boxoffice/internal/domain"
)

// AdminConfigService is the minimal interface for the organizer endpoints.
type AdminConfigService interface {
	CreateEvent(ctx context.Context, in domain.Event) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CreateSubevent(ctx context.Context, in domain.Subevent) (domain.Subevent, error)
	CreateTaxRule(ctx context.Context, in domain.TaxRule) (domain.TaxRule, error)
	CreateProduct(ctx context.Context, in domain.Product) (domain.Product, error)
	CreateVariation(ctx context.Context, in domain.Variation) (domain.Variation, error)
	CreateDateOverride(ctx context.Context, in domain.DateOverride) (domain.DateOverride, error)
	ListProducts(ctx context.Context, eventID string) ([]domain.Product, error)
	CreateQuota(ctx context.Context, in domain.Quota) (domain.Quota, error)
	ReopenQuota(ctx context.Context, quotaID string) error
	CreateVoucher(ctx context.Context, in domain.Voucher) (domain.Voucher, error)
	CreateDiscount(ctx context.Context, in domain.Discount) (domain.Discount, error)
}

// HandleAdminEvents returns an HTTP handler for event creation/listing.
func HandleAdminEvents(svc AdminConfigService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, eventResponseFrom(event))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			var startsAt time.Time
			if req.StartsAt != "" {
				parsed, err := time.Parse(time.RFC3339, req.StartsAt)
				if err != nil {
					writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
					return
				}
				startsAt = parsed
			}

			event, err := svc.CreateEvent(r.Context(), domain.Event{
				Name:     req.Name,
				Currency: req.Currency,
				StartsAt: startsAt,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(eventResponseFrom(event))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAdminEventResources routes the per-event configuration paths:
// /admin/events/{id}/{subevents|products|tax-rules|quotas|vouchers|discounts}.
func HandleAdminEventResources(svc AdminConfigService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, resource, ok := parseAdminEventResourcePath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch resource {
		case "subevents":
			handleAdminSubevents(svc, eventID, w, r)
		case "products":
			handleAdminProducts(svc, eventID, w, r)
		case "tax-rules":
			handleAdminTaxRules(svc, eventID, w, r)
		case "quotas":
			handleAdminQuotas(svc, eventID, w, r)
		case "vouchers":
			handleAdminVouchers(svc, eventID, w, r)
		case "discounts":
			handleAdminDiscounts(svc, eventID, w, r)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

// HandleAdminQuotaReopen serves POST /admin/quotas/{id}/reopen.
func HandleAdminQuotaReopen(svc AdminConfigService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "quotas" || parts[3] != "reopen" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		if err := svc.ReopenQuota(r.Context(), parts[2]); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HandleAdminProductVariations serves POST /admin/products/{id}/variations.
func HandleAdminProductVariations(svc AdminConfigService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "products" || parts[3] != "variations" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createVariationRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		var price *decimal.Decimal
		if req.Price != "" {
			parsed, err := parseDecimal(req.Price)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid price")
				return
			}
			price = &parsed
		}

		variation, err := svc.CreateVariation(r.Context(), domain.Variation{
			ProductID: parts[2],
			Name:      req.Name,
			Price:     price,
			Active:    true,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := variationResponse{
			ID:        variation.ID,
			ProductID: variation.ProductID,
			Name:      variation.Name,
			Active:    variation.Active,
		}
		if variation.Price != nil {
			resp.Price = variation.Price.String()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleAdminDateOverrides serves POST /admin/subevents/{id}/date-overrides.
func HandleAdminDateOverrides(svc AdminConfigService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) != 4 || parts[0] != "admin" || parts[1] != "subevents" || parts[3] != "date-overrides" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req createDateOverrideRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		var price *decimal.Decimal
		if req.Price != "" {
			parsed, err := parseDecimal(req.Price)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid price")
				return
			}
			price = &parsed
		}

		override, err := svc.CreateDateOverride(r.Context(), domain.DateOverride{
			SubeventID:  parts[2],
			ProductID:   req.ProductID,
			VariationID: req.VariationID,
			Price:       price,
			Disabled:    req.Disabled,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := dateOverrideResponse{
			SubeventID:  override.SubeventID,
			ProductID:   override.ProductID,
			VariationID: override.VariationID,
			Disabled:    override.Disabled,
		}
		if override.Price != nil {
			resp.Price = override.Price.String()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func handleAdminSubevents(svc AdminConfigService, eventID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	var req createSubeventRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	var startsAt time.Time
	if req.StartsAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
			return
		}
		startsAt = parsed
	}

	sub, err := svc.CreateSubevent(r.Context(), domain.Subevent{
		EventID:  eventID,
		Name:     req.Name,
		StartsAt: startsAt,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(subeventResponse{
		ID:       sub.ID,
		EventID:  sub.EventID,
		Name:     sub.Name,
		StartsAt: sub.StartsAt,
	})
}

func handleAdminProducts(svc AdminConfigService, eventID string, w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := svc.ListProducts(r.Context(), eventID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		resp := make([]productResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, productResponseFrom(p))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	case http.MethodPost:
		var req createProductRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		defaultPrice, err := parseDecimal(req.DefaultPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid default_price")
			return
		}

		product, err := svc.CreateProduct(r.Context(), domain.Product{
			EventID:        eventID,
			Name:           req.Name,
			DefaultPrice:   defaultPrice,
			FreePrice:      req.FreePrice,
			Admission:      req.Admission,
			Active:         true,
			AvailableFrom:  req.AvailableFrom,
			AvailableUntil: req.AvailableUntil,
			TaxRuleID:      req.TaxRuleID,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(productResponseFrom(product))
	default:
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	}
}

func handleAdminTaxRules(svc AdminConfigService, eventID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	var req createTaxRuleRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	rate, err := parseDecimal(req.Rate)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid rate")
		return
	}

	rule, err := svc.CreateTaxRule(r.Context(), domain.TaxRule{
		EventID:          eventID,
		Name:             req.Name,
		Rate:             rate,
		PriceIncludesTax: req.PriceIncludesTax,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(taxRuleResponse{
		ID:               rule.ID,
		EventID:          rule.EventID,
		Name:             rule.Name,
		Rate:             rule.Rate.String(),
		PriceIncludesTax: rule.PriceIncludesTax,
	})
}

func handleAdminQuotas(svc AdminConfigService, eventID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	var req createQuotaRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	members := make([]domain.QuotaMember, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, domain.QuotaMember{
			ProductID:   m.ProductID,
			VariationID: m.VariationID,
		})
	}
	quota, err := svc.CreateQuota(r.Context(), domain.Quota{
		EventID:          eventID,
		SubeventID:       req.SubeventID,
		Name:             req.Name,
		Size:             req.Size,
		CloseWhenSoldOut: req.CloseWhenSoldOut,
		Members:          members,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(quotaResponse{
		ID:               quota.ID,
		EventID:          quota.EventID,
		SubeventID:       quota.SubeventID,
		Name:             quota.Name,
		Size:             quota.Size,
		CloseWhenSoldOut: quota.CloseWhenSoldOut,
	})
}

func handleAdminVouchers(svc AdminConfigService, eventID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	var req createVoucherRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	value := decimal.Zero
	if req.Value != "" {
		parsed, err := parseDecimal(req.Value)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid value")
			return
		}
		value = parsed
	}

	voucher, err := svc.CreateVoucher(r.Context(), domain.Voucher{
		EventID:     eventID,
		Code:        req.Code,
		MaxUsages:   req.MaxUsages,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		BlockQuota:  req.BlockQuota,
		QuotaID:     req.QuotaID,
		ProductID:   req.ProductID,
		VariationID: req.VariationID,
		PriceMode:   domain.VoucherPriceMode(req.PriceMode),
		Value:       value,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(voucherResponse{
		ID:        voucher.ID,
		EventID:   voucher.EventID,
		Code:      voucher.Code,
		MaxUsages: voucher.MaxUsages,
		PriceMode: string(voucher.PriceMode),
		Value:     voucher.Value.String(),
	})
}

func handleAdminDiscounts(svc AdminConfigService, eventID string, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	var req createDiscountRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	percent, err := parseDecimal(req.BenefitPercent)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid benefit_percent")
		return
	}
	minValue := decimal.Zero
	if req.MinValue != "" {
		parsed, err := parseDecimal(req.MinValue)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid min_value")
			return
		}
		minValue = parsed
	}

	discount, err := svc.CreateDiscount(r.Context(), domain.Discount{
		EventID:         eventID,
		Position:        req.Position,
		Active:          true,
		LimitProductIDs: req.LimitProductIDs,
		Condition: domain.DiscountCondition{
			Kind:         domain.DiscountConditionKind(req.ConditionKind),
			MinCount:     req.MinCount,
			MinValue:     minValue,
			SubeventMode: domain.SubeventMode(req.SubeventMode),
		},
		Benefit: domain.DiscountBenefit{
			Percent:       percent,
			OnlyCheapestN: req.OnlyCheapestN,
		},
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(discountResponse{
		ID:       discount.ID,
		EventID:  discount.EventID,
		Position: discount.Position,
	})
}

type createEventRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency,omitempty"`
	StartsAt string `json:"starts_at,omitempty"`
}

type eventResponse struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Currency string    `json:"currency"`
	StartsAt time.Time `json:"starts_at"`
}

func eventResponseFrom(event domain.Event) eventResponse {
	return eventResponse{
		ID:       event.ID,
		Name:     event.Name,
		Currency: event.Currency,
		StartsAt: event.StartsAt,
	}
}

type createSubeventRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at,omitempty"`
}

type subeventResponse struct {
	ID       string    `json:"id"`
	EventID  string    `json:"event_id"`
	Name     string    `json:"name"`
	StartsAt time.Time `json:"starts_at"`
}

type createVariationRequest struct {
	Name  string `json:"name"`
	Price string `json:"price,omitempty"`
}

type variationResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price,omitempty"`
	Active    bool   `json:"active"`
}

type createDateOverrideRequest struct {
	ProductID   string `json:"product_id"`
	VariationID string `json:"variation_id,omitempty"`
	Price       string `json:"price,omitempty"`
	Disabled    bool   `json:"disabled,omitempty"`
}

type dateOverrideResponse struct {
	SubeventID  string `json:"subevent_id"`
	ProductID   string `json:"product_id"`
	VariationID string `json:"variation_id,omitempty"`
	Price       string `json:"price,omitempty"`
	Disabled    bool   `json:"disabled"`
}

type createProductRequest struct {
	Name           string     `json:"name"`
	DefaultPrice   string     `json:"default_price"`
	FreePrice      bool       `json:"free_price,omitempty"`
	Admission      bool       `json:"admission,omitempty"`
	AvailableFrom  *time.Time `json:"available_from,omitempty"`
	AvailableUntil *time.Time `json:"available_until,omitempty"`
	TaxRuleID      string     `json:"tax_rule_id"`
}

type productResponse struct {
	ID           string `json:"id"`
	EventID      string `json:"event_id"`
	Name         string `json:"name"`
	DefaultPrice string `json:"default_price"`
	FreePrice    bool   `json:"free_price"`
	Active       bool   `json:"active"`
	TaxRuleID    string `json:"tax_rule_id"`
}

func productResponseFrom(p domain.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		EventID:      p.EventID,
		Name:         p.Name,
		DefaultPrice: p.DefaultPrice.String(),
		FreePrice:    p.FreePrice,
		Active:       p.Active,
		TaxRuleID:    p.TaxRuleID,
	}
}

type createTaxRuleRequest struct {
	Name             string `json:"name,omitempty"`
	Rate             string `json:"rate"`
	PriceIncludesTax bool   `json:"price_includes_tax"`
}

type taxRuleResponse struct {
	ID               string `json:"id"`
	EventID          string `json:"event_id"`
	Name             string `json:"name,omitempty"`
	Rate             string `json:"rate"`
	PriceIncludesTax bool   `json:"price_includes_tax"`
}

type createQuotaRequest struct {
	Name             string               `json:"name"`
	SubeventID       string               `json:"subevent_id,omitempty"`
	Size             *int                 `json:"size"`
	CloseWhenSoldOut bool                 `json:"close_when_sold_out,omitempty"`
	Members          []quotaMemberRequest `json:"members"`
}

type quotaMemberRequest struct {
	ProductID   string `json:"product_id"`
	VariationID string `json:"variation_id,omitempty"`
}

type quotaResponse struct {
	ID               string `json:"id"`
	EventID          string `json:"event_id"`
	SubeventID       string `json:"subevent_id,omitempty"`
	Name             string `json:"name"`
	Size             *int   `json:"size"`
	CloseWhenSoldOut bool   `json:"close_when_sold_out"`
}

type createVoucherRequest struct {
	Code        string     `json:"code"`
	MaxUsages   int        `json:"max_usages,omitempty"`
	ValidFrom   *time.Time `json:"valid_from,omitempty"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	BlockQuota  bool       `json:"block_quota,omitempty"`
	QuotaID     string     `json:"quota_id,omitempty"`
	ProductID   string     `json:"product_id,omitempty"`
	VariationID string     `json:"variation_id,omitempty"`
	PriceMode   string     `json:"price_mode,omitempty"`
	Value       string     `json:"value,omitempty"`
}

type voucherResponse struct {
	ID        string `json:"id"`
	EventID   string `json:"event_id"`
	Code      string `json:"code"`
	MaxUsages int    `json:"max_usages"`
	PriceMode string `json:"price_mode"`
	Value     string `json:"value"`
}

type createDiscountRequest struct {
	Position        int      `json:"position,omitempty"`
	LimitProductIDs []string `json:"limit_product_ids,omitempty"`
	ConditionKind   string   `json:"condition_kind"`
	MinCount        int      `json:"min_count,omitempty"`
	MinValue        string   `json:"min_value,omitempty"`
	SubeventMode    string   `json:"subevent_mode,omitempty"`
	BenefitPercent  string   `json:"benefit_percent"`
	OnlyCheapestN   int      `json:"only_cheapest_n,omitempty"`
}

type discountResponse struct {
	ID       string `json:"id"`
	EventID  string `json:"event_id"`
	Position int    `json:"position"`
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func parseAdminEventResourcePath(path string) (eventID, resource string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "events" {
		return "", "", false
	}
	if parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
