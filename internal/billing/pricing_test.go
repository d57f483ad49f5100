package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateCosts_Breakdown(t *testing.T) {
	p := Pricing{
		StoragePerGBCents:   2,
		BandwidthPerGBCents: 1,
		RequestsPer1KCents:  1,
	}

	costs := p.CalculateCosts(Usage{
		StorageBytes:   500 << 30, // 500 GB
		BandwidthBytes: 100 << 30, // 100 GB
		RequestsCount:  250_000,
	})

	assert.Equal(t, int64(1000), costs.StorageCost)
	assert.Equal(t, int64(100), costs.BandwidthCost)
	assert.Equal(t, int64(250), costs.RequestsCost)
	assert.Equal(t, int64(1350), costs.Subtotal)
	assert.Equal(t, int64(0), costs.TaxAmount)
	assert.Equal(t, int64(1350), costs.TotalAmount)
}

func TestCalculateCosts_MinimumClampAppliesBeforeTax(t *testing.T) {
	p := Pricing{
		StoragePerGBCents:   15,
		MinimumMonthlyCents: 1000,
		TaxPercent:          5,
	}

	// ~0.01 GB of storage: the raw subtotal is far below the minimum.
	costs := p.CalculateCosts(Usage{StorageBytes: 10 << 20})

	assert.Equal(t, int64(1000), costs.Subtotal)
	assert.Equal(t, int64(50), costs.TaxAmount)
	assert.Equal(t, int64(1050), costs.TotalAmount)
}

func TestCalculateCosts_ZeroUsageStillChargesMinimum(t *testing.T) {
	p := Pricing{MinimumMonthlyCents: 500}

	costs := p.CalculateCosts(Usage{})

	assert.Equal(t, int64(0), costs.StorageCost)
	assert.Equal(t, int64(500), costs.Subtotal)
	assert.Equal(t, int64(500), costs.TotalAmount)
}

func TestCalculateCosts_FractionalGBRounds(t *testing.T) {
	p := Pricing{StoragePerGBCents: 2}

	// 1.5 GB * 2 cents = 3 cents exactly.
	costs := p.CalculateCosts(Usage{StorageBytes: 3 << 29})
	assert.Equal(t, int64(3), costs.StorageCost)

	// 0.25 GB * 2 cents = 0.5, rounds half away from zero to 1.
	costs = p.CalculateCosts(Usage{StorageBytes: 1 << 28})
	assert.Equal(t, int64(1), costs.StorageCost)
}

func TestCalculateCosts_NoTaxWhenPercentZero(t *testing.T) {
	p := Pricing{StoragePerGBCents: 2, TaxPercent: 0}

	costs := p.CalculateCosts(Usage{StorageBytes: 100 << 30})
	assert.Equal(t, int64(0), costs.TaxAmount)
	assert.Equal(t, costs.Subtotal, costs.TotalAmount)
}
