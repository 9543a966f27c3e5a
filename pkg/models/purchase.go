package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// PurchaseNature tells whether a purchase brings stock in or is expense only.
type PurchaseNature string

const (
	NatureStock PurchaseNature = "Stock"
	NatureOther PurchaseNature = "Other"
)

func (n PurchaseNature) Valid() bool {
	return n == NatureStock || n == NatureOther
}

func (n *PurchaseNature) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !PurchaseNature(raw).Valid() {
		return fmt.Errorf("unknown nature of purchase %q", raw)
	}
	*n = PurchaseNature(raw)
	return nil
}

// PurchaseStatus is the lifecycle state of a purchase record.
//
//	Draft -> Logged -> Confirmed -> Reverted
//	Draft -> Confirmed (expense only)
type PurchaseStatus string

const (
	PurchaseDraft     PurchaseStatus = "Draft"
	PurchaseLogged    PurchaseStatus = "Logged"
	PurchaseConfirmed PurchaseStatus = "Confirmed"
	PurchaseReverted  PurchaseStatus = "Reverted"
)

func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchaseDraft, PurchaseLogged, PurchaseConfirmed, PurchaseReverted:
		return true
	}
	return false
}

func (s *PurchaseStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !PurchaseStatus(raw).Valid() {
		return fmt.Errorf("unknown purchase status %q", raw)
	}
	*s = PurchaseStatus(raw)
	return nil
}

// Currencies accepted on supplier invoices.
const (
	CurrencyUSD = "USD"
	CurrencyCNY = "CNY"
	CurrencyINR = "INR"
)

// PurchaseOrderItem is one supplier invoice line.
type PurchaseOrderItem struct {
	ID           string          `json:"id"`
	SupplierSKU  string          `json:"supplierSku" validate:"required"`
	InternalSKU  string          `json:"tevoltaSku"` // Empty until linked
	Name         string          `json:"name"`
	Watts        string          `json:"watts"`
	Quantity     int             `json:"quantity" validate:"gt=0"`
	CostPerUnit  decimal.Decimal `json:"costPerUnit" validate:"gte=0"` // Source currency
	TotalForeign decimal.Decimal `json:"totalForeign"`
}

// PurchaseOrder is a supplier purchase record.
type PurchaseOrder struct {
	ID               string              `json:"id"`
	SupplierName     string              `json:"supplierName" validate:"required"`
	Country          string              `json:"country"`
	NatureOfPurchase PurchaseNature      `json:"natureOfPurchase" validate:"required,oneof=Stock Other"`
	InvoiceRef       string              `json:"invoiceRef"`
	Date             string              `json:"date" validate:"required,datetime=2006-01-02"`
	Items            []PurchaseOrderItem `json:"items" validate:"required,min=1,dive"`
	Currency         string              `json:"currency" validate:"required,oneof=USD CNY INR"`
	ExchangeRate     decimal.Decimal     `json:"exchangeRate" validate:"gt=0"` // INR per unit of Currency
	ExtraFee         decimal.Decimal     `json:"extraFee" validate:"gte=0"`
	ExtraFeeRemarks  string              `json:"extraFeeRemarks"`
	DepositAmount    decimal.Decimal     `json:"depositAmount" validate:"gte=0"`

	// Derived at intake and on every pending edit
	RemainingBalance   decimal.Decimal `json:"remainingBalance"`
	TotalForeignAmount decimal.Decimal `json:"totalForeignAmount"`
	InvestmentINR      decimal.Decimal `json:"investmentInr"`
	TotalQuantity      int             `json:"totalQuantity"`

	Status PurchaseStatus `json:"status"`
}
