package models

// ProductKind selects which billing flow a purchase goes through. The value
// doubles as the path segment of the billing service endpoints.
type ProductKind string

const (
	ProductStars   ProductKind = "stars"
	ProductPremium ProductKind = "premium"
)

func (kind ProductKind) Valid() bool {
	return kind == ProductStars || kind == ProductPremium
}

func (kind ProductKind) String() string {
	return string(kind)
}

const (
	MinStarsQuantity = 1
	MaxStarsQuantity = 1_000_000

	// stars flow only dispatches a lookup once the handle is plausible,
	// the premium flow searches on any non-empty handle
	MinStarsHandleLen   = 3
	MinPremiumHandleLen = 1

	DefaultStarsQuantity   = 100
	DefaultPremiumDuration = 3
)

var PremiumDurations = []int{3, 6, 12}

func ValidPremiumDuration(months int) bool {
	for _, d := range PremiumDurations {
		if months == d {
			return true
		}
	}
	return false
}

// Display prices. Estimates for the UI only, the on-chain amount always
// comes from the billing service quote.
var (
	StarPriceUSD = 0.015

	PremiumPriceUSD = map[int]float64{
		3:  11.99,
		6:  15.99,
		12: 28.99,
	}
)

// DisplayPriceUSD returns the client-side price estimate for a product,
// including the network fee ratio when known (pass 0 for "fee unknown").
func DisplayPriceUSD(kind ProductKind, amount int, feeRatio float64) float64 {
	var base float64
	switch kind {
	case ProductStars:
		base = float64(amount) * StarPriceUSD
	case ProductPremium:
		base = PremiumPriceUSD[amount]
	}
	return base + base*feeRatio
}
