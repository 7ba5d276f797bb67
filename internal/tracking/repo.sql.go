package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists shipments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const shipmentColumns = `id, order_id, carrier, tracking_number, status, COALESCE(last_event, ''), last_checked_at, created_at, updated_at`

// Insert stores a new shipment in pending status.
func (r *Repository) Insert(ctx context.Context, s Shipment) (Shipment, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO shipments (order_id, carrier, tracking_number, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		s.OrderID, s.Carrier, s.TrackingNumber, StatusPending).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Shipment{}, err
	}
	s.Status = StatusPending
	return s, nil
}

// Get loads one shipment.
func (r *Repository) Get(ctx context.Context, id int64) (Shipment, error) {
	var s Shipment
	err := r.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id=$1`, id).
		Scan(&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &s.Status, &s.LastEvent, &s.LastCheckedAt, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Shipment{}, ErrShipmentNotFound
	}
	return s, err
}

// ListByOrder returns an order's shipments.
func (r *Repository) ListByOrder(ctx context.Context, orderID int64) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	return scanShipments(rows)
}

// ListPending returns shipments not yet delivered or failed, oldest
// check first, for the background refresher.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments
WHERE status NOT IN ($1, $2)
ORDER BY last_checked_at ASC NULLS FIRST, id ASC
LIMIT $3`, StatusDelivered, StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	return scanShipments(rows)
}

// UpdateStatus records the latest carrier report.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status, lastEvent string, checkedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE shipments SET status=$1, last_event=$2, last_checked_at=$3, updated_at=NOW() WHERE id=$4`,
		status, lastEvent, checkedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShipmentNotFound
	}
	return nil
}

func scanShipments(rows pgx.Rows) ([]Shipment, error) {
	defer rows.Close()
	shipments := []Shipment{}
	for rows.Next() {
		var s Shipment
		if err := rows.Scan(&s.ID, &s.OrderID, &s.Carrier, &s.TrackingNumber, &s.Status, &s.LastEvent, &s.LastCheckedAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	return shipments, rows.Err()
}
