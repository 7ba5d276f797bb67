package invoices

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const invoiceColumns = `id, number, order_id, customer_name, amount, amount_paid, status, issued_at, due_date, created_at, updated_at`

func (r *Repository) scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var status string
	err := row.Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.CustomerName, &inv.Amount, &inv.AmountPaid, &status, &inv.IssuedAt, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, ErrInvoiceNotFound
	}
	inv.Status = InvoiceStatus(status)
	return inv, err
}

// Insert stores a new invoice. The unique index on order_id makes a
// second invoice for the same order fail cleanly.
func (r *Repository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO invoices (number, order_id, customer_name, amount, amount_paid, status, due_date, created_at, updated_at)
VALUES ($1,$2,$3,$4,0,$5,$6,NOW(),NOW()) RETURNING `+invoiceColumns,
		inv.Number, inv.OrderID, inv.CustomerName, inv.Amount, string(inv.Status), inv.DueDate).
		Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.CustomerName, &inv.Amount, &inv.AmountPaid, &inv.Status, &inv.IssuedAt, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Invoice{}, ErrAlreadyInvoiced
		}
		return Invoice{}, err
	}
	return inv, nil
}

// Get loads one invoice.
func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	return r.scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
}

// GetByOrder loads the invoice for an order.
func (r *Repository) GetByOrder(ctx context.Context, orderID int64) (Invoice, error) {
	return r.scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id=$1`, orderID))
}

// List returns invoices, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []Invoice{}
	for rows.Next() {
		var inv Invoice
		var status string
		if err := rows.Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.CustomerName, &inv.Amount, &inv.AmountPaid, &status, &inv.IssuedAt, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.Status = InvoiceStatus(status)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkIssued stamps the invoice as issued, guarded by the draft status.
func (r *Repository) MarkIssued(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status=$1, issued_at=NOW(), updated_at=NOW() WHERE id=$2 AND status=$3`, string(StatusIssued), id, string(StatusDraft))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// AddPayment applies a payment and flips the status to paid once the
// running total covers the amount, all in one statement.
func (r *Repository) AddPayment(ctx context.Context, id int64, amount float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices
SET amount_paid = amount_paid + $1,
    status = CASE WHEN amount_paid + $1 >= amount THEN $2 ELSE status END,
    updated_at = NOW()
WHERE id=$3 AND status=$4`, amount, string(StatusPaid), id, string(StatusIssued))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkVoid voids a draft or issued invoice.
func (r *Repository) MarkVoid(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status=$1, updated_at=NOW() WHERE id=$2 AND status IN ($3, $4)`, string(StatusVoid), id, string(StatusDraft), string(StatusIssued))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}
