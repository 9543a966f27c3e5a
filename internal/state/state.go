// Package state holds the authoritative local record of every collection and the
// session fields (cloud flag, cached remote file id). All writes go through Store.
package state

import (
	"github.com/shopspring/decimal"

	"billing/pkg/models"
)

// DefaultLowStockThreshold marks products as low on stock below this quantity.
const DefaultLowStockThreshold = 500

// Session is per-workstation state that is persisted locally and never pushed.
type Session struct {
	CloudEnabled bool   `json:"cloudEnabled"`
	RemoteFileID string `json:"remoteFileId,omitempty"`
}

// State is the full local dataset.
type State struct {
	Products          []models.Product
	Orders            []models.Order // Most recent first
	PurchaseOrders    []models.PurchaseOrder
	PendingInventory  []models.PurchaseOrder
	Company           models.CompanyConfig
	SupplierMappings  []models.SupplierMapping
	WattMappings      []models.WattMapping
	LowStockThreshold int
	Users             []models.User

	Session Session
}

// Default returns the state of a fresh installation.
func Default() *State {
	return &State{
		Company: models.CompanyConfig{
			Name:            "TEVOLTA ENTERPRISES",
			Address:         "3-288/2/A/1/1, Naya Nagar, Kodad, Telangana 508206, India",
			GSTIN:           "36BAHPN9275Q1ZN",
			Email:           "billing@tevolta.in",
			Tagline:         "Electricals & Home Needs",
			StateCode:       "Telangana (36)",
			InvoiceSequence: models.FirstInvoiceSequence,
			InvoicePrefix:   models.DefaultInvoicePrefix,
		},
		Users: []models.User{{
			ID:        "admin-1",
			Username:  "admin",
			Password:  "admin123",
			Role:      models.RoleAdmin,
			FirstName: "Master",
			LastName:  "Admin",
			Enabled:   true,
		}},
		LowStockThreshold: DefaultLowStockThreshold,
	}
}

// Product returns the index of the product with the given id, or -1.
func (s *State) Product(id string) int {
	for i := range s.Products {
		if s.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// Order returns the index of the order with the given id, or -1.
func (s *State) Order(id string) int {
	for i := range s.Orders {
		if s.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

// Purchase returns the index of the purchase with the given id in list, or -1.
func Purchase(list []models.PurchaseOrder, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy. Decimals are immutable values and need no copying.
func (s *State) Clone() *State {
	c := *s
	c.Products = append([]models.Product(nil), s.Products...)
	c.Orders = make([]models.Order, len(s.Orders))
	for i, o := range s.Orders {
		o.Items = append([]models.OrderItem(nil), o.Items...)
		c.Orders[i] = o
	}
	c.PurchaseOrders = clonePurchases(s.PurchaseOrders)
	c.PendingInventory = clonePurchases(s.PendingInventory)
	c.SupplierMappings = append([]models.SupplierMapping(nil), s.SupplierMappings...)
	c.WattMappings = append([]models.WattMapping(nil), s.WattMappings...)
	c.Users = append([]models.User(nil), s.Users...)
	return &c
}

func clonePurchases(in []models.PurchaseOrder) []models.PurchaseOrder {
	if in == nil {
		return nil
	}
	out := make([]models.PurchaseOrder, len(in))
	for i, po := range in {
		po.Items = append([]models.PurchaseOrderItem(nil), po.Items...)
		out[i] = po
	}
	return out
}

// Normalize repairs values a partial load or a foreign document can leave invalid:
// negative stock or cost becomes zero, a missing threshold or sequence gets its default.
func (s *State) Normalize() {
	if s.LowStockThreshold <= 0 {
		s.LowStockThreshold = DefaultLowStockThreshold
	}
	if s.Company.InvoiceSequence == 0 {
		s.Company.InvoiceSequence = models.FirstInvoiceSequence
	}
	for i := range s.Products {
		if s.Products[i].Stock < 0 {
			s.Products[i].Stock = 0
		}
		if s.Products[i].CostPrice.IsNegative() {
			s.Products[i].CostPrice = decimal.Zero
		}
	}
}
