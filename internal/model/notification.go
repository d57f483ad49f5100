package model

import (
	"encoding/json"
	"time"
)

// Notification types emitted by the metering and billing engines.
const (
	NotificationQuotaWarning     = "quota_warning"
	NotificationQuotaCritical    = "quota_critical"
	NotificationQuotaExceeded    = "quota_exceeded"
	NotificationInvoiceGenerated = "invoice_generated"
	NotificationPaymentOverdue   = "payment_overdue"
)

type Notification struct {
	ID       string `json:"id" db:"id"`
	TenantID int64  `json:"tenant_id" db:"tenant_id"`
	Type     string `json:"type" db:"type"`
	Title    string `json:"title" db:"title"`
	Message  string `json:"message" db:"message"`
	// Metadata carries structured context (usage percent, invoice id, ...).
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	IsRead    bool            `json:"is_read" db:"is_read"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}
