package models

// Offer is one seller's priced listing for a title, either an activation
// key or a pre-activated account.
type Offer struct {
	OfferID       int
	MerchantID    int
	MerchantName  string
	Price         float64
	OriginalPrice float64
	IsOfficial    bool
	IsAccount     bool
	Edition       string
	Region        string
	VoucherCode   string
	PricePaypal   *float64
	PriceCard     *float64
	BuyURL        string
}

// LowestFeePrice returns the cheapest price across the payment-method
// variants: the minimum of the positive fee-adjusted prices, falling back
// to the base price when neither is set. Never negative.
func (o Offer) LowestFeePrice() float64 {
	lowest := 0.0
	if o.PricePaypal != nil && *o.PricePaypal > 0 {
		lowest = *o.PricePaypal
	}
	if o.PriceCard != nil && *o.PriceCard > 0 && (lowest == 0 || *o.PriceCard < lowest) {
		lowest = *o.PriceCard
	}
	if lowest == 0 {
		lowest = o.Price
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}
