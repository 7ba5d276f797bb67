package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian-wms/internal/platform/db"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListMovements returns ledger entries, newest first.
func (r *Repository) ListMovements(ctx context.Context, limit int) ([]Movement, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, location_id, destination_location_id, movement_type, quantity, previous_quantity, new_quantity, reason, COALESCE(reference, ''), user_id, created_at
FROM stock_movements
ORDER BY created_at DESC, id DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		var mt string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.LocationID, &m.DestinationID, &mt, &m.Quantity, &m.PreviousQuantity, &m.NewQuantity, &m.Reason, &m.Reference, &m.UserID, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Type = MovementType(mt)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

// GetProductStock loads a product and its allocations without locking.
func (r *Repository) GetProductStock(ctx context.Context, productID int64) (ProductStock, error) {
	if r == nil {
		return ProductStock{}, errors.New("stock repository not initialised")
	}
	var p ProductStock
	err := r.pool.QueryRow(ctx, `SELECT id, name, quantity FROM products WHERE id=$1`, productID).Scan(&p.ID, &p.Name, &p.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductStock{}, ErrProductNotFound
		}
		return ProductStock{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT location_id, quantity, last_updated FROM product_locations WHERE product_id=$1 ORDER BY location_id`, productID)
	if err != nil {
		return ProductStock{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.LocationID, &a.Quantity, &a.LastUpdated); err != nil {
			return ProductStock{}, err
		}
		p.Locations = append(p.Locations, a)
	}
	return p, rows.Err()
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx, `SELECT id, name, quantity FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&p.ID, &p.Name, &p.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductStock{}, ErrProductNotFound
		}
		return ProductStock{}, err
	}
	return p, nil
}

func (r *txRepository) LocationExists(ctx context.Context, locationID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM locations WHERE id=$1)`, locationID).Scan(&exists)
	return exists, err
}

func (r *txRepository) ListAllocations(ctx context.Context, productID int64) ([]Allocation, error) {
	rows, err := r.tx.Query(ctx, `SELECT location_id, quantity, last_updated FROM product_locations WHERE product_id=$1 ORDER BY location_id`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	allocations := []Allocation{}
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.LocationID, &a.Quantity, &a.LastUpdated); err != nil {
			return nil, err
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func (r *txRepository) UpsertAllocation(ctx context.Context, productID, locationID, quantity int64, now time.Time) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO product_locations (product_id, location_id, quantity, last_updated)
VALUES ($1,$2,$3,$4)
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity=EXCLUDED.quantity, last_updated=EXCLUDED.last_updated`, productID, locationID, quantity, now)
	return err
}

func (r *txRepository) DeleteAllocation(ctx context.Context, productID, locationID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM product_locations WHERE product_id=$1 AND location_id=$2`, productID, locationID)
	return err
}

func (r *txRepository) UpdateProductQuantity(ctx context.Context, productID, quantity int64, now time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET quantity=$1, updated_at=$2 WHERE id=$3`, quantity, now, productID)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, location_id, destination_location_id, movement_type, quantity, previous_quantity, new_quantity, reason, reference, user_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11) RETURNING id`,
		movement.ProductID, movement.LocationID, movement.DestinationID, string(movement.Type), movement.Quantity, movement.PreviousQuantity, movement.NewQuantity, movement.Reason, nullString(movement.Reference), movement.UserID, movement.CreatedAt).Scan(&id)
	return id, err
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
