package invoices

import (
	"errors"
	"time"
)

// InvoiceStatus enumerates the invoice lifecycle.
type InvoiceStatus string

const (
	StatusDraft  InvoiceStatus = "draft"
	StatusIssued InvoiceStatus = "issued"
	StatusPaid   InvoiceStatus = "paid"
	StatusVoid   InvoiceStatus = "void"
)

// Invoice bills one order. Amount is copied from the order total when
// the invoice is generated and never recomputed afterwards.
type Invoice struct {
	ID           int64         `json:"id"`
	Number       string        `json:"number"`
	OrderID      int64         `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	Amount       float64       `json:"amount"`
	AmountPaid   float64       `json:"amount_paid"`
	Status       InvoiceStatus `json:"status"`
	IssuedAt     *time.Time    `json:"issued_at,omitempty"`
	DueDate      *time.Time    `json:"due_date,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

var (
	ErrInvoiceNotFound   = errors.New("invoices: invoice not found")
	ErrOrderNotBillable  = errors.New("invoices: order cannot be billed in its current status")
	ErrAlreadyInvoiced   = errors.New("invoices: order already has an invoice")
	ErrInvalidPayment    = errors.New("invoices: payment amount must be positive")
	ErrInvalidTransition = errors.New("invoices: invalid status transition")
)
