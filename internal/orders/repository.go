package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-wms/meridian-wms/internal/platform/db"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts the order header and its lines in one transaction.
func (r *Repository) Create(ctx context.Context, order Order) (Order, error) {
	now := time.Now()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO orders (number, customer_name, status, total, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6) RETURNING id`,
			order.Number, order.CustomerName, string(order.Status), order.Total, order.CreatedBy, now).Scan(&order.ID)
		if err != nil {
			return err
		}

		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			err = tx.QueryRow(ctx, `INSERT INTO order_lines (order_id, product_id, product_name, sku, quantity, price, total)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
				order.ID, item.ProductID, item.ProductName, item.SKU, item.Quantity, item.Price, item.Total).Scan(&item.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	return order, nil
}

// Get loads one order with its lines.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	var o Order
	var status string
	err := r.pool.QueryRow(ctx, `SELECT id, number, customer_name, status, total, created_by, created_at, updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Number, &o.CustomerName, &status, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrOrderNotFound
		}
		return Order{}, err
	}
	o.Status = OrderStatus(status)

	rows, err := r.pool.Query(ctx, `SELECT id, order_id, product_id, product_name, sku, quantity, price, total FROM order_lines WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.SKU, &item.Quantity, &item.Price, &item.Total); err != nil {
			return Order{}, err
		}
		o.Items = append(o.Items, item)
	}
	return o, rows.Err()
}

// List returns order headers, newest first.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, customer_name, status, total, created_by, created_at, updated_at
FROM orders ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []Order{}
	for rows.Next() {
		var o Order
		var status string
		if err := rows.Scan(&o.ID, &o.Number, &o.CustomerName, &status, &o.Total, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus changes the order status guarded by the expected current
// status, so a concurrent transition loses cleanly.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to OrderStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`, string(to), id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}
