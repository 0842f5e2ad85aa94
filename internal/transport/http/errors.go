package http

import (
	"encoding/json"
	"net/http"

	"github.com/seatsurge/boxoffice/internal/domain"
)

const (
	codeMethodNotAllowed    = "method_not_allowed"
	codeNotFound            = "not_found"
	codeInvalidRequestBody  = "invalid_request_body"
	codeInvalidStartsAt     = "invalid_starts_at"
	codeInvalidID           = "invalid_id"
	codeEventNameRequired   = "event_name_required"
	codeProductNameRequired = "product_name_required"
	codeQuotaNameRequired   = "quota_name_required"
	codeInvalidQuantity     = "invalid_quantity"
	codeInvalidCapacity     = "invalid_capacity"
	codeIdempotencyRequired = "idempotency_key_required"
	codeIdempotencyConflict = "idempotency_conflict"
	codeQuotaUnavailable    = "quota_unavailable"
	codeQuotaExceeded       = "quota_exceeded"
	codeQuotaNotFound       = "quota_not_found"
	codeEventNotFound       = "event_not_found"
	codeProductNotFound     = "product_not_found"
	codeVariationNotFound   = "variation_not_found"
	codeCartNotFound        = "cart_not_found"
	codeCartExpired         = "cart_expired"
	codeProductNotOnSale    = "product_not_on_sale"
	codeVoucherInvalid      = "voucher_invalid"
	codeVoucherExhausted    = "voucher_exhausted"
	codePriceMismatch       = "price_mismatch"
	codeTaxRuleNotFound     = "tax_rule_not_found"
	codeFreePriceTooLow     = "free_price_too_low"
	codeLockTimeout         = "lock_timeout"
	codeForbidden           = "forbidden"
	codeInternalError       = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps the domain error taxonomy onto HTTP. Unknown errors
// degrade to an opaque 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidQuantity:
		writeError(w, http.StatusBadRequest, codeInvalidQuantity, err.Error())
	case domain.ErrInvalidCapacity:
		writeError(w, http.StatusBadRequest, codeInvalidCapacity, err.Error())
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrEventNameRequired:
		writeError(w, http.StatusBadRequest, codeEventNameRequired, err.Error())
	case domain.ErrProductNameRequired:
		writeError(w, http.StatusBadRequest, codeProductNameRequired, err.Error())
	case domain.ErrQuotaNameRequired:
		writeError(w, http.StatusBadRequest, codeQuotaNameRequired, err.Error())
	case domain.ErrIdempotencyKeyRequired:
		writeError(w, http.StatusBadRequest, codeIdempotencyRequired, err.Error())
	case domain.ErrFreePriceTooLow:
		writeError(w, http.StatusBadRequest, codeFreePriceTooLow, err.Error())
	case domain.ErrEventNotFound:
		writeError(w, http.StatusNotFound, codeEventNotFound, err.Error())
	case domain.ErrProductNotFound:
		writeError(w, http.StatusNotFound, codeProductNotFound, err.Error())
	case domain.ErrVariationNotFound:
		writeError(w, http.StatusNotFound, codeVariationNotFound, err.Error())
	case domain.ErrQuotaNotFound:
		writeError(w, http.StatusNotFound, codeQuotaNotFound, err.Error())
	case domain.ErrTaxRuleNotFound:
		writeError(w, http.StatusNotFound, codeTaxRuleNotFound, err.Error())
	case domain.ErrCartNotFound:
		writeError(w, http.StatusNotFound, codeCartNotFound, err.Error())
	case domain.ErrCartExpired:
		writeError(w, http.StatusGone, codeCartExpired, err.Error())
	case domain.ErrProductNotOnSale:
		writeError(w, http.StatusConflict, codeProductNotOnSale, err.Error())
	case domain.ErrQuotaUnavailable:
		writeError(w, http.StatusConflict, codeQuotaUnavailable, err.Error())
	case domain.ErrQuotaExceeded:
		writeError(w, http.StatusConflict, codeQuotaExceeded, err.Error())
	case domain.ErrVoucherInvalid:
		writeError(w, http.StatusUnprocessableEntity, codeVoucherInvalid, err.Error())
	case domain.ErrVoucherExhausted:
		writeError(w, http.StatusConflict, codeVoucherExhausted, err.Error())
	case domain.ErrPriceMismatch:
		writeError(w, http.StatusConflict, codePriceMismatch, err.Error())
	case domain.ErrIdempotencyConflict:
		writeError(w, http.StatusConflict, codeIdempotencyConflict, err.Error())
	case domain.ErrLockTimeout:
		writeError(w, http.StatusServiceUnavailable, codeLockTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
