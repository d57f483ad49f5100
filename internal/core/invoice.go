package core

import (
	"context"
	"fmt"
	"time"

	"github.com/edvin/metering/internal/api/request"
	"github.com/edvin/metering/internal/model"
	"github.com/edvin/metering/internal/platform"
)

type InvoiceService struct {
	db DB
}

func NewInvoiceService(db DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// Insert stores a new invoice. A unique index on (tenant_id, period_start)
// backs the idempotency of invoice generation; a violation is mapped to
// ErrDuplicateInvoice so concurrent generators degrade to a silent skip.
func (s *InvoiceService) Insert(ctx context.Context, inv *model.Invoice) error {
	if inv.ID == "" {
		inv.ID = platform.NewID()
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO invoices (id, tenant_id, invoice_number, period_start, period_end,
		                       storage_cost, bandwidth_cost, requests_cost, subtotal, tax_amount, total_amount,
		                       due_date, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		 RETURNING created_at, updated_at`,
		inv.ID, inv.TenantID, inv.InvoiceNumber, inv.PeriodStart, inv.PeriodEnd,
		inv.StorageCost, inv.BandwidthCost, inv.RequestsCost, inv.Subtotal, inv.TaxAmount, inv.TotalAmount,
		inv.DueDate, inv.Status,
	).Scan(&inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateInvoice
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (s *InvoiceService) ExistsForPeriod(ctx context.Context, tenantID int64, periodStart time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM invoices WHERE tenant_id = $1 AND period_start = $2)",
		tenantID, periodStart,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check invoice exists for tenant %d: %w", tenantID, err)
	}
	return exists, nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	var inv model.Invoice
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, invoice_number, period_start, period_end,
		        storage_cost, bandwidth_cost, requests_cost, subtotal, tax_amount, total_amount,
		        due_date, status, created_at, updated_at
		 FROM invoices WHERE id = $1`, id,
	).Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.PeriodStart, &inv.PeriodEnd,
		&inv.StorageCost, &inv.BandwidthCost, &inv.RequestsCost, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount,
		&inv.DueDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", id, err)
	}
	return &inv, nil
}

func (s *InvoiceService) ListByTenant(ctx context.Context, tenantID int64, params request.ListParams) ([]model.Invoice, bool, error) {
	query := `SELECT id, tenant_id, invoice_number, period_start, period_end,
		        storage_cost, bandwidth_cost, requests_cost, subtotal, tax_amount, total_amount,
		        due_date, status, created_at, updated_at
		 FROM invoices WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, params.Status)
		argIdx++
	}
	if params.Cursor != "" {
		query += fmt.Sprintf(` AND id < $%d`, argIdx)
		args = append(args, params.Cursor)
		argIdx++
	}

	query += fmt.Sprintf(` ORDER BY period_start DESC LIMIT $%d`, argIdx)
	args = append(args, params.Limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list invoices for tenant %d: %w", tenantID, err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.PeriodStart, &inv.PeriodEnd,
			&inv.StorageCost, &inv.BandwidthCost, &inv.RequestsCost, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount,
			&inv.DueDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate invoices: %w", err)
	}

	hasMore := len(invoices) > params.Limit
	if hasMore {
		invoices = invoices[:params.Limit]
	}
	return invoices, hasMore, nil
}

// ListOverdueCandidates returns pending invoices whose due date has passed.
// Invoices already flipped to overdue are excluded, which makes the daily
// sweep idempotent.
func (s *InvoiceService) ListOverdueCandidates(ctx context.Context, now time.Time) ([]model.Invoice, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, tenant_id, invoice_number, period_start, period_end,
		        storage_cost, bandwidth_cost, requests_cost, subtotal, tax_amount, total_amount,
		        due_date, status, created_at, updated_at
		 FROM invoices WHERE status = $1 AND due_date <= $2
		 ORDER BY due_date ASC`,
		model.InvoiceStatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("list overdue candidates: %w", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.InvoiceNumber, &inv.PeriodStart, &inv.PeriodEnd,
			&inv.StorageCost, &inv.BandwidthCost, &inv.RequestsCost, &inv.Subtotal, &inv.TaxAmount, &inv.TotalAmount,
			&inv.DueDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue candidates: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) MarkOverdue(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2 AND status = $3",
		model.InvoiceStatusOverdue, id, model.InvoiceStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark invoice %s overdue: %w", id, err)
	}
	return nil
}

// MarkPaid flips a pending or overdue invoice to paid. Called from the
// external payment confirmation path.
func (s *InvoiceService) MarkPaid(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2 AND status != $1",
		model.InvoiceStatusPaid, id,
	)
	if err != nil {
		return fmt.Errorf("mark invoice %s paid: %w", id, err)
	}
	return nil
}
