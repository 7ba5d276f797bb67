package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-wms/meridian-wms/internal/orders"
)

type memoryRepo struct {
	invoices map[int64]Invoice
	byOrder  map[int64]int64
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[int64]Invoice), byOrder: make(map[int64]int64)}
}

func (r *memoryRepo) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	if _, ok := r.byOrder[inv.OrderID]; ok {
		return Invoice{}, ErrAlreadyInvoiced
	}
	r.nextID++
	inv.ID = r.nextID
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	r.invoices[inv.ID] = inv
	r.byOrder[inv.OrderID] = inv.ID
	return inv, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	if inv, ok := r.invoices[id]; ok {
		return inv, nil
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (r *memoryRepo) GetByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	if id, ok := r.byOrder[orderID]; ok {
		return r.invoices[id], nil
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (r *memoryRepo) List(ctx context.Context, limit, offset int) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, nil
}

func (r *memoryRepo) MarkIssued(ctx context.Context, id int64) error {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusDraft {
		return ErrInvalidTransition
	}
	now := time.Now()
	inv.Status = StatusIssued
	inv.IssuedAt = &now
	r.invoices[id] = inv
	return nil
}

func (r *memoryRepo) AddPayment(ctx context.Context, id int64, amount float64) error {
	inv, ok := r.invoices[id]
	if !ok || inv.Status != StatusIssued {
		return ErrInvalidTransition
	}
	inv.AmountPaid += amount
	if inv.AmountPaid >= inv.Amount {
		inv.Status = StatusPaid
	}
	r.invoices[id] = inv
	return nil
}

func (r *memoryRepo) MarkVoid(ctx context.Context, id int64) error {
	inv, ok := r.invoices[id]
	if !ok || (inv.Status != StatusDraft && inv.Status != StatusIssued) {
		return ErrInvalidTransition
	}
	inv.Status = StatusVoid
	r.invoices[id] = inv
	return nil
}

type fakeOrders struct {
	orders map[int64]orders.Order
}

func (f *fakeOrders) Get(ctx context.Context, id int64) (orders.Order, error) {
	if o, ok := f.orders[id]; ok {
		return o, nil
	}
	return orders.Order{}, orders.ErrOrderNotFound
}

func newTestService() *Service {
	repo := newMemoryRepo()
	orderSvc := &fakeOrders{orders: map[int64]orders.Order{
		1: {ID: 1, Number: "ORD-1", CustomerName: "Acme Corp", Status: orders.StatusConfirmed, Total: 150},
		2: {ID: 2, Number: "ORD-2", CustomerName: "Globex", Status: orders.StatusDraft, Total: 80},
	}}
	return NewService(repo, orderSvc, nil)
}

func TestCreateFromOrderCopiesTotals(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inv, err := svc.CreateFromOrder(ctx, 1, 7)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, "Acme Corp", inv.CustomerName)
	require.InDelta(t, 150.0, inv.Amount, 0.0001)
	require.NotNil(t, inv.DueDate)
	require.NotEmpty(t, inv.Number)
}

func TestCreateFromOrderRejectsDraftOrder(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateFromOrder(context.Background(), 2, 7)
	require.ErrorIs(t, err, ErrOrderNotBillable)
}

func TestCreateFromOrderRejectsSecondInvoice(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	_, err := svc.CreateFromOrder(ctx, 1, 7)
	require.NoError(t, err)
	_, err = svc.CreateFromOrder(ctx, 1, 7)
	require.ErrorIs(t, err, ErrAlreadyInvoiced)
}

func TestPaymentLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inv, err := svc.CreateFromOrder(ctx, 1, 7)
	require.NoError(t, err)

	// Draft invoices cannot take payments.
	_, err = svc.RecordPayment(ctx, inv.ID, 50, 7)
	require.ErrorIs(t, err, ErrInvalidTransition)

	issued, err := svc.Issue(ctx, inv.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, issued.Status)
	require.NotNil(t, issued.IssuedAt)

	partial, err := svc.RecordPayment(ctx, inv.ID, 100, 7)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, partial.Status)
	require.InDelta(t, 100.0, partial.AmountPaid, 0.0001)

	paid, err := svc.RecordPayment(ctx, inv.ID, 50, 7)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)

	// Paid invoices cannot be voided.
	_, err = svc.Void(ctx, inv.ID, 7)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestVoidIssuedInvoice(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	inv, err := svc.CreateFromOrder(ctx, 1, 7)
	require.NoError(t, err)
	_, err = svc.Issue(ctx, inv.ID, 7)
	require.NoError(t, err)

	voided, err := svc.Void(ctx, inv.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StatusVoid, voided.Status)
}

func TestRejectNonPositivePayment(t *testing.T) {
	svc := newTestService()

	_, err := svc.RecordPayment(context.Background(), 1, 0, 7)
	require.ErrorIs(t, err, ErrInvalidPayment)
}
