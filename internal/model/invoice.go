package model

import "time"

// Invoice covers one tenant for one billing period. All money fields are in
// integer minor units (cents). At most one invoice exists per
// (tenant, period_start), enforced by a unique index.
type Invoice struct {
	ID            string    `json:"id" db:"id"`
	TenantID      int64     `json:"tenant_id" db:"tenant_id"`
	InvoiceNumber string    `json:"invoice_number" db:"invoice_number"`
	PeriodStart   time.Time `json:"period_start" db:"period_start"`
	PeriodEnd     time.Time `json:"period_end" db:"period_end"`
	StorageCost   int64     `json:"storage_cost" db:"storage_cost"`
	BandwidthCost int64     `json:"bandwidth_cost" db:"bandwidth_cost"`
	RequestsCost  int64     `json:"requests_cost" db:"requests_cost"`
	Subtotal      int64     `json:"subtotal" db:"subtotal"`
	TaxAmount     int64     `json:"tax_amount" db:"tax_amount"`
	TotalAmount   int64     `json:"total_amount" db:"total_amount"`
	DueDate       time.Time `json:"due_date" db:"due_date"`
	Status        string    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
