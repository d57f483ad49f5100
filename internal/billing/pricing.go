package billing

import (
	"github.com/shopspring/decimal"
)

const bytesPerGB = int64(1) << 30

// Pricing is the flat usage-based pricing model. All prices are integer
// minor units (cents).
type Pricing struct {
	StoragePerGBCents   int64
	BandwidthPerGBCents int64
	RequestsPer1KCents  int64
	MinimumMonthlyCents int64
	TaxPercent          float64
}

// Usage is the aggregated consumption of one billing period: a storage
// snapshot plus summed flow quantities.
type Usage struct {
	StorageBytes   int64 `json:"storage_bytes"`
	BandwidthBytes int64 `json:"bandwidth_bytes"`
	RequestsCount  int64 `json:"requests_count"`
}

// Costs is a computed cost breakdown in integer minor units.
type Costs struct {
	StorageCost   int64 `json:"storage_cost"`
	BandwidthCost int64 `json:"bandwidth_cost"`
	RequestsCost  int64 `json:"requests_cost"`
	Subtotal      int64 `json:"subtotal"`
	TaxAmount     int64 `json:"tax_amount"`
	TotalAmount   int64 `json:"total_amount"`
}

// CalculateCosts prices a period's usage. The raw subtotal is clamped upward
// to the minimum monthly charge before tax is applied. Intermediate
// arithmetic uses decimals; only the rounded minor-unit results leave this
// function.
func (p Pricing) CalculateCosts(u Usage) Costs {
	gb := decimal.NewFromInt(bytesPerGB)

	storageGB := decimal.NewFromInt(u.StorageBytes).Div(gb)
	bandwidthGB := decimal.NewFromInt(u.BandwidthBytes).Div(gb)
	requestsK := decimal.NewFromInt(u.RequestsCount).Div(decimal.NewFromInt(1000))

	storageCost := storageGB.Mul(decimal.NewFromInt(p.StoragePerGBCents)).Round(0).IntPart()
	bandwidthCost := bandwidthGB.Mul(decimal.NewFromInt(p.BandwidthPerGBCents)).Round(0).IntPart()
	requestsCost := requestsK.Mul(decimal.NewFromInt(p.RequestsPer1KCents)).Round(0).IntPart()

	subtotal := storageCost + bandwidthCost + requestsCost
	if subtotal < p.MinimumMonthlyCents {
		subtotal = p.MinimumMonthlyCents
	}

	tax := decimal.NewFromInt(subtotal).
		Mul(decimal.NewFromFloat(p.TaxPercent)).
		Div(decimal.NewFromInt(100)).
		Round(0).IntPart()

	return Costs{
		StorageCost:   storageCost,
		BandwidthCost: bandwidthCost,
		RequestsCost:  requestsCost,
		Subtotal:      subtotal,
		TaxAmount:     tax,
		TotalAmount:   subtotal + tax,
	}
}
