package voucher

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Variant selects the applicability rule and discount algorithm of a voucher.
type Variant string

const (
	CartWise    Variant = "cart-wise"
	ProductWise Variant = "product-wise"
	BuyXGetY    Variant = "bxgy"
)

// Variants lists every supported variant.
var Variants = []Variant{CartWise, ProductWise, BuyXGetY}

// ParseVariant accepts the canonical tags as well as the CART_WISE style enum names.
func ParseVariant(value string) (Variant, error) {
	normalised := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "_", "-")
	switch normalised {
	case string(CartWise):
		return CartWise, nil
	case string(ProductWise):
		return ProductWise, nil
	case string(BuyXGetY), "buy-x-get-y":
		return BuyXGetY, nil
	}
	return "", &DetailsError{Variant: Variant(value), Reason: "unknown voucher type"}
}

// Voucher is a stored promotional rule.
type Voucher struct {
	ID             string
	Variant        Variant
	Details        Details
	Active         bool
	CreationDate   Date
	ExpirationDate Date
}

type voucherJSON struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Details        json.RawMessage `json:"details"`
	Active         bool            `json:"active"`
	CreationDate   Date            `json:"creationDate"`
	ExpirationDate Date            `json:"expirationDate"`
}

// MarshalJSON renders the voucher with its details inlined under "details".
func (v Voucher) MarshalJSON() ([]byte, error) {
	details, err := EncodeDetails(v.Details)
	if err != nil {
		return nil, err
	}
	return json.Marshal(voucherJSON{
		ID:             v.ID,
		Type:           string(v.Variant),
		Details:        details,
		Active:         v.Active,
		CreationDate:   v.CreationDate,
		ExpirationDate: v.ExpirationDate,
	})
}

// UnmarshalJSON decodes the voucher and its variant-specific details.
func (v *Voucher) UnmarshalJSON(data []byte) error {
	var raw voucherJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	variant, err := ParseVariant(raw.Type)
	if err != nil {
		return err
	}
	details, err := DecodeDetails(variant, raw.Details)
	if err != nil {
		return fmt.Errorf("voucher %s: %w", raw.ID, err)
	}
	*v = Voucher{
		ID:             raw.ID,
		Variant:        variant,
		Details:        details,
		Active:         raw.Active,
		CreationDate:   raw.CreationDate,
		ExpirationDate: raw.ExpirationDate,
	}
	return nil
}
