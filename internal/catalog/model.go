package catalog

import (
	"time"
)

// Product represents a sellable item. Quantity is the aggregate stock
// across all locations and, like the embedded allocation list, is
// maintained by the stock engine, never by catalog writes.
type Product struct {
	ID          int64        `json:"id"`
	SKU         string       `json:"sku"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Price       float64      `json:"price"`
	Quantity    int64        `json:"quantity"`
	Locations   []Allocation `json:"locations"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Allocation is the per-location share of a product's stock. Sparse: a
// location appears only while its allocated quantity is positive.
type Allocation struct {
	LocationID  int64     `json:"locationId"`
	Quantity    int64     `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ListFilters represents standard product list filters.
type ListFilters struct {
	Page     int
	Limit    int
	Search   string
	Category string
	SortBy   string
	SortDir  string
	IsActive *bool
}
