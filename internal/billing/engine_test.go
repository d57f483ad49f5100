package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/metering/internal/core"
	"github.com/edvin/metering/internal/model"
)

// ---------- Fakes ----------

type fakeTenantSource struct {
	tenants []model.Tenant
	err     error
}

func (f *fakeTenantSource) ListActive(ctx context.Context) ([]model.Tenant, error) {
	return f.tenants, f.err
}

type fakeUsageSource struct {
	storage int64
	found   bool
	flows   core.PeriodFlows
	err     error
}

func (f *fakeUsageSource) LatestStorageInPeriod(ctx context.Context, tenantID int64, start, end time.Time) (int64, bool, error) {
	return f.storage, f.found, f.err
}

func (f *fakeUsageSource) SumFlowsInPeriod(ctx context.Context, tenantID int64, start, end time.Time) (core.PeriodFlows, error) {
	return f.flows, f.err
}

type fakeInvoiceStore struct {
	exists     bool
	existsErr  error
	insertErr  error
	inserted   []*model.Invoice
	candidates []model.Invoice
	marked     []string
	markErr    error
}

func (f *fakeInvoiceStore) Insert(ctx context.Context, inv *model.Invoice) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, inv)
	return nil
}

func (f *fakeInvoiceStore) ExistsForPeriod(ctx context.Context, tenantID int64, periodStart time.Time) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeInvoiceStore) ListOverdueCandidates(ctx context.Context, now time.Time) ([]model.Invoice, error) {
	return f.candidates, nil
}

func (f *fakeInvoiceStore) MarkOverdue(ctx context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.marked = append(f.marked, id)
	return nil
}

type fakeNotifier struct {
	inserted []*model.Notification
	err      error
}

func (f *fakeNotifier) Insert(ctx context.Context, n *model.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, n)
	return nil
}

func (f *fakeNotifier) ExistsRecent(ctx context.Context, tenantID int64, notifType string, window time.Duration) (bool, error) {
	for _, n := range f.inserted {
		if n.TenantID == tenantID && n.Type == notifType {
			return true, nil
		}
	}
	return false, nil
}

func newTestEngine(tenants TenantSource, usage UsageSource, invoices InvoiceStore, notifier Notifier) *Engine {
	return NewEngine(zerolog.Nop(), tenants, usage, invoices, notifier, Pricing{
		StoragePerGBCents:   2,
		BandwidthPerGBCents: 1,
		RequestsPer1KCents:  1,
	})
}

// ---------- GenerateInvoice ----------

func TestEngine_GenerateInvoice_Success(t *testing.T) {
	usage := &fakeUsageSource{storage: 100 << 30, found: true, flows: core.PeriodFlows{BandwidthBytes: 10 << 30, RequestsCount: 5000}}
	invoices := &fakeInvoiceStore{}
	notifier := &fakeNotifier{}
	e := newTestEngine(&fakeTenantSource{}, usage, invoices, notifier)

	periodStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC)

	inv, err := e.GenerateInvoice(context.Background(), 7, periodStart, periodEnd)
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "INV-202507-7", inv.InvoiceNumber)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, periodEnd.AddDate(0, 0, 15), inv.DueDate)
	assert.Equal(t, int64(200), inv.StorageCost)
	assert.Equal(t, int64(10), inv.BandwidthCost)
	assert.Equal(t, int64(5), inv.RequestsCost)
	assert.Equal(t, int64(215), inv.TotalAmount)

	require.Len(t, invoices.inserted, 1)
	require.Len(t, notifier.inserted, 1)
	assert.Equal(t, model.NotificationInvoiceGenerated, notifier.inserted[0].Type)
}

func TestEngine_GenerateInvoice_SkipsWhenExists(t *testing.T) {
	invoices := &fakeInvoiceStore{exists: true}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, &fakeNotifier{})

	inv, err := e.GenerateInvoice(context.Background(), 7,
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, inv)
	assert.Empty(t, invoices.inserted)
}

func TestEngine_GenerateInvoice_LostInsertRaceIsNotAnError(t *testing.T) {
	// The existence pre-check passed but a concurrent generator inserted
	// first: the unique constraint resolves the race and this caller skips.
	invoices := &fakeInvoiceStore{insertErr: core.ErrDuplicateInvoice}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, &fakeNotifier{})

	inv, err := e.GenerateInvoice(context.Background(), 7,
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestEngine_GenerateInvoice_NotificationFailureDoesNotFailInvoice(t *testing.T) {
	invoices := &fakeInvoiceStore{}
	notifier := &fakeNotifier{err: errors.New("connection refused")}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, notifier)

	inv, err := e.GenerateInvoice(context.Background(), 7,
		time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, inv)
	require.Len(t, invoices.inserted, 1)
}

// ---------- GenerateMonthlyInvoices ----------

func TestEngine_GenerateMonthlyInvoices_BillsPriorMonth(t *testing.T) {
	tenants := &fakeTenantSource{tenants: []model.Tenant{{ID: 1}, {ID: 2}}}
	invoices := &fakeInvoiceStore{}
	e := newTestEngine(tenants, &fakeUsageSource{storage: 1 << 30, found: true}, invoices, &fakeNotifier{})
	e.now = func() time.Time { return time.Date(2025, 8, 1, 2, 0, 0, 0, time.UTC) }

	summary, err := e.GenerateMonthlyInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Generated)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Errors)

	require.Len(t, invoices.inserted, 2)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), invoices.inserted[0].PeriodStart)
	assert.Equal(t, time.Date(2025, 7, 31, 23, 59, 59, 0, time.UTC), invoices.inserted[0].PeriodEnd)
}

func TestEngine_GenerateMonthlyInvoices_CountsPerTenantErrors(t *testing.T) {
	tenants := &fakeTenantSource{tenants: []model.Tenant{{ID: 1}, {ID: 2}}}
	invoices := &fakeInvoiceStore{existsErr: errors.New("connection refused")}
	e := newTestEngine(tenants, &fakeUsageSource{}, invoices, &fakeNotifier{})

	summary, err := e.GenerateMonthlyInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Errors)
	assert.Equal(t, 0, summary.Generated)
}

func TestEngine_GenerateMonthlyInvoices_Rerun_AllSkipped(t *testing.T) {
	tenants := &fakeTenantSource{tenants: []model.Tenant{{ID: 1}, {ID: 2}}}
	invoices := &fakeInvoiceStore{exists: true}
	e := newTestEngine(tenants, &fakeUsageSource{}, invoices, &fakeNotifier{})

	summary, err := e.GenerateMonthlyInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Generated)
	assert.Empty(t, invoices.inserted)
}

// ---------- CheckOverdueInvoices ----------

func TestEngine_CheckOverdueInvoices_FlipsAndNotifies(t *testing.T) {
	invoices := &fakeInvoiceStore{candidates: []model.Invoice{
		{ID: "inv-1", TenantID: 1, InvoiceNumber: "INV-202506-1"},
		{ID: "inv-2", TenantID: 2, InvoiceNumber: "INV-202506-2"},
	}}
	notifier := &fakeNotifier{}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, notifier)

	flipped, err := e.CheckOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flipped)
	assert.Equal(t, []string{"inv-1", "inv-2"}, invoices.marked)

	require.Len(t, notifier.inserted, 2)
	assert.Equal(t, model.NotificationPaymentOverdue, notifier.inserted[0].Type)
	assert.Equal(t, int64(1), notifier.inserted[0].TenantID)
}

func TestEngine_CheckOverdueInvoices_SuppressesRecentNotification(t *testing.T) {
	invoices := &fakeInvoiceStore{candidates: []model.Invoice{
		{ID: "inv-1", TenantID: 1, InvoiceNumber: "INV-202506-1"},
		{ID: "inv-2", TenantID: 2, InvoiceNumber: "INV-202506-2"},
	}}
	notifier := &fakeNotifier{inserted: []*model.Notification{
		{TenantID: 1, Type: model.NotificationPaymentOverdue},
	}}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, notifier)

	flipped, err := e.CheckOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flipped)

	// Tenant 1 already has a recent overdue notification; only tenant 2
	// gets a new one.
	require.Len(t, notifier.inserted, 2)
	assert.Equal(t, int64(2), notifier.inserted[1].TenantID)
}

func TestEngine_CheckOverdueInvoices_ZeroWindowDisablesSuppression(t *testing.T) {
	invoices := &fakeInvoiceStore{candidates: []model.Invoice{
		{ID: "inv-1", TenantID: 1, InvoiceNumber: "INV-202506-1"},
	}}
	notifier := &fakeNotifier{inserted: []*model.Notification{
		{TenantID: 1, Type: model.NotificationPaymentOverdue},
	}}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, notifier)
	e.NotifyDedupWindow = 0

	_, err := e.CheckOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.inserted, 2)
}

func TestEngine_CheckOverdueInvoices_NoCandidates(t *testing.T) {
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, &fakeInvoiceStore{}, &fakeNotifier{})

	flipped, err := e.CheckOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Zero(t, flipped)
}

func TestEngine_CheckOverdueInvoices_MarkFailureContinues(t *testing.T) {
	invoices := &fakeInvoiceStore{
		candidates: []model.Invoice{{ID: "inv-1"}},
		markErr:    errors.New("connection refused"),
	}
	notifier := &fakeNotifier{}
	e := newTestEngine(&fakeTenantSource{}, &fakeUsageSource{}, invoices, notifier)

	flipped, err := e.CheckOverdueInvoices(context.Background())
	require.NoError(t, err)
	assert.Zero(t, flipped)
	assert.Empty(t, notifier.inserted)
}

// ---------- GetProjectedCost ----------

func TestEngine_GetProjectedCost_ExtrapolatesFlowsNotStorage(t *testing.T) {
	usage := &fakeUsageSource{
		storage: 50 << 30,
		found:   true,
		flows:   core.PeriodFlows{BandwidthBytes: 10 << 30, RequestsCount: 1000},
	}
	e := newTestEngine(&fakeTenantSource{}, usage, &fakeInvoiceStore{}, &fakeNotifier{})
	e.now = func() time.Time { return time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC) }

	proj, err := e.GetProjectedCost(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 10, proj.DaysElapsed)
	assert.Equal(t, 31, proj.DaysInMonth)

	// Storage stays at the current snapshot; flows scale by 31/10.
	assert.Equal(t, int64(50<<30), proj.Projected.StorageBytes)
	assert.Equal(t, int64(10<<30)*31/10, proj.Projected.BandwidthBytes)
	assert.Equal(t, int64(3100), proj.Projected.RequestsCount)
}

// ---------- priorMonth ----------

func TestPriorMonth(t *testing.T) {
	start, end := priorMonth(time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC), end)

	start, end = priorMonth(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC), end)
}
