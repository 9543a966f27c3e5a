package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the status of an issued invoice.
type OrderStatus string

const (
	OrderPending   OrderStatus = "Pending"
	OrderCompleted OrderStatus = "Completed"
	OrderCancelled OrderStatus = "Cancelled"
	OrderShipped   OrderStatus = "Shipped"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled, OrderShipped:
		return true
	}
	return false
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !OrderStatus(raw).Valid() {
		return fmt.Errorf("unknown order status %q", raw)
	}
	*s = OrderStatus(raw)
	return nil
}

// OrderItem is an invoice line. All fields are snapshots taken at issue time.
type OrderItem struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	CostPrice decimal.Decimal `json:"costPrice"` // Unit cost at sale, for margin reporting
	GSTRate   decimal.Decimal `json:"gstRate"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	HSNCode   string          `json:"hsnCode,omitempty"`
}

// Order is an issued sales invoice. It is immutable except for deletion.
type Order struct {
	// Identifiers
	ID           string `json:"id"`           // Internal id
	SerialNumber string `json:"serialNumber"` // Human-facing serial, e.g. TE/2025/1001

	// Customer
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
	CustomerGSTIN string `json:"customerGstin,omitempty"`

	Date  time.Time   `json:"date"`
	Items []OrderItem `json:"items"`

	// Amounts
	Subtotal    decimal.Decimal `json:"subtotal"`
	CGST        decimal.Decimal `json:"cgst"`
	SGST        decimal.Decimal `json:"sgst"`
	IGST        decimal.Decimal `json:"igst"`
	TotalTax    decimal.Decimal `json:"totalTax"`
	TotalAmount decimal.Decimal `json:"totalAmount"`

	Status OrderStatus `json:"status"`
	Notes  string      `json:"notes"`
}

// Customer holds the buyer fields copied onto an invoice.
type Customer struct {
	Name  string `json:"customerName" validate:"required"`
	Email string `json:"customerEmail" validate:"omitempty,email"`
	Phone string `json:"customerPhone"`
	GSTIN string `json:"customerGstin" validate:"omitempty,len=15,alphanum"`
	Notes string `json:"notes"`
}

// CartItem is a requested invoice line before issue.
type CartItem struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}
