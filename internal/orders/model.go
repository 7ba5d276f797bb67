package orders

import (
	"errors"
	"time"
)

// OrderStatus enumerates the order lifecycle. Orders never touch stock;
// fulfilment goes through the stock movement engine separately.
type OrderStatus string

const (
	StatusDraft     OrderStatus = "draft"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// Order is a customer order with immutable line-item snapshots.
type Order struct {
	ID           int64       `json:"id"`
	Number       string      `json:"number"`
	CustomerName string      `json:"customer_name"`
	Status       OrderStatus `json:"status"`
	Total        float64     `json:"total"`
	Items        []OrderItem `json:"items"`
	CreatedBy    int64       `json:"created_by"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// OrderItem snapshots the product's name, SKU and price at order time,
// so later catalog edits do not rewrite order history.
type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	Total       float64 `json:"total"`
}

var (
	ErrOrderNotFound     = errors.New("orders: order not found")
	ErrEmptyOrder        = errors.New("orders: order requires at least one item")
	ErrInvalidTransition = errors.New("orders: invalid status transition")
)

// canTransition encodes the allowed lifecycle edges.
func canTransition(from, to OrderStatus) bool {
	switch from {
	case StatusDraft:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	}
	return false
}
