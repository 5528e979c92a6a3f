package voucher

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no voucher exists for the requested id.
	ErrNotFound = errors.New("voucher not found")
	// ErrIneligible is returned when a voucher is inactive or past its expiration date.
	ErrIneligible = errors.New("voucher is either inactive or expired")
	// ErrMalformedDetails indicates the variant parameters are missing or of the wrong shape.
	ErrMalformedDetails = errors.New("voucher details malformed")
)

// DetailsError describes which details field failed validation.
type DetailsError struct {
	Variant Variant
	Field   string
	Reason  string
}

func (e *DetailsError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s details: %s", e.Variant, e.Reason)
	}
	return fmt.Sprintf("%s details: %s %s", e.Variant, e.Field, e.Reason)
}

// Unwrap lets errors.Is match ErrMalformedDetails.
func (e *DetailsError) Unwrap() error { return ErrMalformedDetails }
