package voucher

// Item is one cart line. Every line counts once toward buy requirements.
type Item struct {
	ProductID     int64    `json:"product_id"`
	Price         float64  `json:"price"`
	TotalDiscount *float64 `json:"total_discount,omitempty"`
}

// Cart is the transient checkout cart evaluated against vouchers.
type Cart struct {
	TotalPrice float64 `json:"totalPrice"`
	Items      []Item  `json:"items"`
}

// AppliedCart is a cart after a voucher has been applied. TotalDiscount and
// FinalPrice are only populated by cart-wise vouchers; product-wise and
// buy-x-get-y vouchers report their effect on Items instead.
type AppliedCart struct {
	Items         []Item   `json:"items"`
	TotalPrice    float64  `json:"totalPrice"`
	TotalDiscount *float64 `json:"totalDiscount,omitempty"`
	FinalPrice    *float64 `json:"finalPrice,omitempty"`
}

func (c Cart) applied() AppliedCart {
	items := make([]Item, len(c.Items))
	for i, it := range c.Items {
		items[i] = it
		if it.TotalDiscount != nil {
			v := *it.TotalDiscount
			items[i].TotalDiscount = &v
		}
	}
	return AppliedCart{Items: items, TotalPrice: c.TotalPrice}
}

func (c Cart) countOf(productID int64) int {
	n := 0
	for _, it := range c.Items {
		if it.ProductID == productID {
			n++
		}
	}
	return n
}
