package voucher

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// Details carries the parameters of one voucher variant. The set of
// implementations is closed: CartWiseDetails, ProductWiseDetails and
// BuyXGetYDetails each implement the applicability and discount strategy of
// their variant.
type Details interface {
	Variant() Variant
	matches(cart Cart) bool
	apply(cart Cart) AppliedCart
}

// CartWiseDetails discounts the whole cart once its total exceeds Threshold.
type CartWiseDetails struct {
	Threshold float64 `json:"threshold" validate:"gte=0"`
	Discount  float64 `json:"discount" validate:"gte=0,lte=100"`
}

// ProductWiseDetails discounts every cart line of ProductID.
type ProductWiseDetails struct {
	ProductID int64   `json:"product_id"`
	Discount  float64 `json:"discount" validate:"gte=0,lte=100"`
}

// BuyRequirement is one "buy X" condition.
type BuyRequirement struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity" validate:"gte=0"`
}

// GetProduct is one free item granted per repetition.
type GetProduct struct {
	ProductID int64 `json:"product_id"`
}

// BuyXGetYDetails grants GetProducts for free, RepetitionLimit times, once
// every BuyProducts requirement is met.
type BuyXGetYDetails struct {
	BuyProducts     []BuyRequirement `json:"buy_products" validate:"dive"`
	GetProducts     []GetProduct     `json:"get_products" validate:"dive"`
	RepetitionLimit int              `json:"repetition_limit" validate:"gte=0"`
}

// Variant implements Details.
func (CartWiseDetails) Variant() Variant { return CartWise }

// Variant implements Details.
func (ProductWiseDetails) Variant() Variant { return ProductWise }

// Variant implements Details.
func (BuyXGetYDetails) Variant() Variant { return BuyXGetY }

// MarshalJSON writes nil requirement lists as [] so the stored form always
// decodes again; the wire decoder rejects null lists.
func (d BuyXGetYDetails) MarshalJSON() ([]byte, error) {
	type plain BuyXGetYDetails
	out := plain(d)
	if out.BuyProducts == nil {
		out.BuyProducts = []BuyRequirement{}
	}
	if out.GetProducts == nil {
		out.GetProducts = []GetProduct{}
	}
	return json.Marshal(out)
}

// Wire shapes use pointers so that absent fields can be told apart from zero values.
type cartWiseWire struct {
	Threshold *float64 `json:"threshold" validate:"required,gte=0"`
	Discount  *float64 `json:"discount" validate:"required,gte=0,lte=100"`
}

type productWiseWire struct {
	ProductID *int64   `json:"product_id" validate:"required"`
	Discount  *float64 `json:"discount" validate:"required,gte=0,lte=100"`
}

type buyRequirementWire struct {
	ProductID *int64 `json:"product_id" validate:"required"`
	Quantity  *int   `json:"quantity" validate:"required,gte=0"`
}

type getProductWire struct {
	ProductID *int64 `json:"product_id" validate:"required"`
}

type buyXGetYWire struct {
	BuyProducts     []buyRequirementWire `json:"buy_products" validate:"required,dive"`
	GetProducts     []getProductWire     `json:"get_products" validate:"required,dive"`
	RepetitionLimit *int                 `json:"repetition_limit" validate:"required,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeDetails parses raw JSON parameters for the given variant. Missing or
// wrongly typed fields yield a *DetailsError wrapping ErrMalformedDetails.
func DecodeDetails(variant Variant, raw json.RawMessage) (Details, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &DetailsError{Variant: variant, Reason: "details are required"}
	}
	switch variant {
	case CartWise:
		var w cartWiseWire
		if err := decodeWire(variant, trimmed, &w); err != nil {
			return nil, err
		}
		return CartWiseDetails{Threshold: *w.Threshold, Discount: *w.Discount}, nil
	case ProductWise:
		var w productWiseWire
		if err := decodeWire(variant, trimmed, &w); err != nil {
			return nil, err
		}
		return ProductWiseDetails{ProductID: *w.ProductID, Discount: *w.Discount}, nil
	case BuyXGetY:
		var w buyXGetYWire
		if err := decodeWire(variant, trimmed, &w); err != nil {
			return nil, err
		}
		d := BuyXGetYDetails{
			BuyProducts:     make([]BuyRequirement, 0, len(w.BuyProducts)),
			GetProducts:     make([]GetProduct, 0, len(w.GetProducts)),
			RepetitionLimit: *w.RepetitionLimit,
		}
		for _, b := range w.BuyProducts {
			d.BuyProducts = append(d.BuyProducts, BuyRequirement{ProductID: *b.ProductID, Quantity: *b.Quantity})
		}
		for _, g := range w.GetProducts {
			d.GetProducts = append(d.GetProducts, GetProduct{ProductID: *g.ProductID})
		}
		return d, nil
	}
	return nil, &DetailsError{Variant: variant, Reason: "unknown voucher type"}
}

// EncodeDetails renders details in the same snake_case shape DecodeDetails reads.
func EncodeDetails(d Details) (json.RawMessage, error) {
	if d == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(d)
}

// ValidateDetails checks the value ranges of already-typed details.
func ValidateDetails(d Details) error {
	if d == nil {
		return &DetailsError{Reason: "details are required"}
	}
	if err := validate.Struct(d); err != nil {
		return detailsErrorFrom(d.Variant(), err)
	}
	return nil
}

func decodeWire(variant Variant, raw []byte, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &DetailsError{Variant: variant, Field: typeErr.Field, Reason: "must be " + typeErr.Type.String()}
		}
		return &DetailsError{Variant: variant, Reason: "invalid JSON: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		return detailsErrorFrom(variant, err)
	}
	return nil
}

func detailsErrorFrom(variant Variant, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &DetailsError{Variant: variant, Reason: err.Error()}
	}
	fe := verrs[0]
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gte":
		reason = "must be >= " + fe.Param()
	case "lte":
		reason = "must be <= " + fe.Param()
	default:
		reason = "failed " + fe.Tag()
	}
	return &DetailsError{Variant: variant, Field: field, Reason: reason}
}
