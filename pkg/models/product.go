package models

import "github.com/shopspring/decimal"

func init() {
	// Document money fields are plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product is a catalog entry. Stock and CostPrice are written by the stock ledger only.
type Product struct {
	ID          string          `json:"id"`                // SKU, globally unique
	Name        string          `json:"name"`              // Display name
	Category    string          `json:"category"`          // Catalog grouping
	Price       decimal.Decimal `json:"price"`             // Unit sale price (INR)
	CostPrice   decimal.Decimal `json:"costPrice"`         // Landed unit cost of the last purchase (INR)
	Stock       int             `json:"stock"`             // On-hand quantity, never negative
	Description string          `json:"description"`       // Free text
	GSTRate     decimal.Decimal `json:"gstRate"`           // Percent, e.g. 18
	HSNCode     string          `json:"hsnCode,omitempty"` // Classification code printed on invoices
	Watts       string          `json:"watts,omitempty"`   // Wattage tag
}

// SupplierMapping links a supplier's SKU to an internal product SKU.
type SupplierMapping struct {
	ID           string `json:"id"`
	SupplierSKU  string `json:"supplierSku" validate:"required"`
	SupplierName string `json:"supplierName" validate:"required"`
	InternalSKU  string `json:"tevoltaSku" validate:"required"`
	InternalName string `json:"tevoltaName"`
}

// WattMapping tags an internal SKU with a wattage.
type WattMapping struct {
	ID          string `json:"id"`
	InternalSKU string `json:"tevoltaSku" validate:"required"`
	Watts       string `json:"watts" validate:"required"`
}
