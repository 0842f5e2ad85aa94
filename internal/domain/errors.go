package domain

import "errors"

var (
	// Recoverable allocation errors surfaced to the API layer.
	ErrQuotaUnavailable = errors.New("quota unavailable")
	ErrQuotaExceeded    = errors.New("quota exceeded")
	ErrLockTimeout      = errors.New("lock acquisition timed out")
	ErrVoucherExhausted = errors.New("voucher budget exhausted")
	ErrVoucherInvalid   = errors.New("voucher invalid")
	ErrPriceMismatch    = errors.New("locked price could not be honored")

	// Lookup and validation errors.
	ErrEventNotFound          = errors.New("event not found")
	ErrProductNotFound        = errors.New("product not found")
	ErrVariationNotFound      = errors.New("variation not found")
	ErrQuotaNotFound          = errors.New("quota not found")
	ErrTaxRuleNotFound        = errors.New("tax rule not found")
	ErrCartNotFound           = errors.New("cart not found")
	ErrCartExpired            = errors.New("cart expired")
	ErrProductNotOnSale       = errors.New("product not on sale")
	ErrInvalidQuantity        = errors.New("invalid quantity")
	ErrFreePriceTooLow        = errors.New("custom price below minimum")
	ErrEventNameRequired      = errors.New("event name is required")
	ErrProductNameRequired    = errors.New("product name is required")
	ErrQuotaNameRequired      = errors.New("quota name is required")
	ErrInvalidCapacity        = errors.New("capacity must be positive or unlimited")
	ErrInvalidID              = errors.New("invalid id")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")

	// Internal invariant violations. These indicate programming errors and
	// abort the operation with full rollback.
	ErrLockOrderViolation = errors.New("lock keys not in canonical order")
	ErrCapacityCorrupt    = errors.New("confirmed allocations exceed quota size")
	ErrRoundingDiverged   = errors.New("rounding adjustment exceeds one minor unit per line")
)
