package voucher

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IsCurrentlyUsable reports whether v may be redeemed on today: it must be
// active and expire strictly after today. A voucher expiring today is no
// longer usable even though the sweep only deactivates it tomorrow.
func IsCurrentlyUsable(v Voucher, today Date) bool {
	return v.Active && v.ExpirationDate.After(today)
}

// Matches reports whether cart satisfies the variant-specific condition of v.
func Matches(cart Cart, v Voucher) (bool, error) {
	d, err := checkedDetails(v)
	if err != nil {
		return false, err
	}
	return d.matches(cart), nil
}

// Apply returns a copy of cart with the discount of v applied. It neither
// checks eligibility nor re-checks the applicability condition.
func Apply(cart Cart, v Voucher) (AppliedCart, error) {
	d, err := checkedDetails(v)
	if err != nil {
		return AppliedCart{}, err
	}
	return d.apply(cart), nil
}

func checkedDetails(v Voucher) (Details, error) {
	if v.Details == nil {
		return nil, &DetailsError{Variant: v.Variant, Reason: "details are required"}
	}
	if v.Details.Variant() != v.Variant {
		return nil, &DetailsError{Variant: v.Variant, Reason: "details belong to " + string(v.Details.Variant())}
	}
	if err := ValidateDetails(v.Details); err != nil {
		return nil, err
	}
	return v.Details, nil
}

func (d CartWiseDetails) matches(cart Cart) bool {
	return cart.TotalPrice > d.Threshold
}

func (d CartWiseDetails) apply(cart Cart) AppliedCart {
	out := cart.applied()
	total := decimal.NewFromFloat(cart.TotalPrice)
	amount := total.Mul(decimal.NewFromFloat(d.Discount)).Div(hundred)
	discount := amount.InexactFloat64()
	final := total.Sub(amount).InexactFloat64()
	out.TotalDiscount = &discount
	out.FinalPrice = &final
	return out
}

func (d ProductWiseDetails) matches(cart Cart) bool {
	return cart.countOf(d.ProductID) > 0
}

func (d ProductWiseDetails) apply(cart Cart) AppliedCart {
	out := cart.applied()
	pct := decimal.NewFromFloat(d.Discount)
	for i := range out.Items {
		if out.Items[i].ProductID != d.ProductID {
			continue
		}
		amount := decimal.NewFromFloat(out.Items[i].Price).Mul(pct).Div(hundred).InexactFloat64()
		out.Items[i].TotalDiscount = &amount
	}
	return out
}

func (d BuyXGetYDetails) matches(cart Cart) bool {
	for _, req := range d.BuyProducts {
		if cart.countOf(req.ProductID) < req.Quantity {
			return false
		}
	}
	return true
}

func (d BuyXGetYDetails) apply(cart Cart) AppliedCart {
	out := cart.applied()
	for i := 0; i < d.RepetitionLimit; i++ {
		for _, free := range d.GetProducts {
			out.Items = append(out.Items, Item{ProductID: free.ProductID, Price: 0})
		}
	}
	return out
}
