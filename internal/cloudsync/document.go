package cloudsync

import (
	"encoding/json"
	"fmt"
	"time"

	"billing/internal/state"
	"billing/pkg/models"
)

// SchemaVersion tags documents written by this version.
const SchemaVersion = 1

// Document is the shared remote copy of the local state. Absent keys decode to
// nil and leave the matching local collection alone on pull.
type Document struct {
	SchemaVersion     int                       `json:"schemaVersion"`
	Products          *[]models.Product         `json:"products,omitempty"`
	Orders            *[]models.Order           `json:"orders,omitempty"`
	PurchaseOrders    *[]models.PurchaseOrder   `json:"purchaseOrders,omitempty"`
	PendingInventory  *[]models.PurchaseOrder   `json:"pendingInventory,omitempty"`
	CompanyConfig     *models.CompanyConfig     `json:"companyConfig,omitempty"`
	SupplierMappings  *[]models.SupplierMapping `json:"supplierMappings,omitempty"`
	WattMappings      *[]models.WattMapping     `json:"wattMappings,omitempty"`
	LowStockThreshold *int                      `json:"lowStockThreshold,omitempty"`
	Users             *[]models.User            `json:"users,omitempty"`
	LastUpdated       string                    `json:"lastUpdated,omitempty"`
}

// NewDocument builds a document from st with every user password obfuscated.
// st must be a snapshot the caller owns.
func NewDocument(st *state.State, now time.Time) Document {
	users := make([]models.User, len(st.Users))
	for i, u := range st.Users {
		if u.Password != "" {
			u.Password = Obfuscate(u.Password)
		}
		users[i] = u
	}

	company := st.Company
	threshold := st.LowStockThreshold
	return Document{
		SchemaVersion:     SchemaVersion,
		Products:          nonNil(st.Products),
		Orders:            nonNil(st.Orders),
		PurchaseOrders:    nonNil(st.PurchaseOrders),
		PendingInventory:  nonNil(st.PendingInventory),
		CompanyConfig:     &company,
		SupplierMappings:  nonNil(st.SupplierMappings),
		WattMappings:      nonNil(st.WattMappings),
		LowStockThreshold: &threshold,
		Users:             &users,
		LastUpdated:       now.UTC().Format(time.RFC3339),
	}
}

func nonNil[T any](s []T) *[]T {
	if s == nil {
		s = []T{}
	}
	return &s
}

// Encode serializes the document.
func (d Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// DecodeDocument parses a remote document.
func DecodeDocument(blob []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(blob, &d); err != nil {
		return Document{}, fmt.Errorf("decoding remote document: %w", err)
	}
	if d.SchemaVersion > SchemaVersion {
		return Document{}, fmt.Errorf("remote document schema %d is newer than supported %d", d.SchemaVersion, SchemaVersion)
	}
	return d, nil
}

// ApplyTo overwrites every collection present in d and returns the keys replaced.
// User passwords are revealed on the way in. A threshold of zero or less is
// ignored, and the result is normalized so negative stock never lands locally.
func (d Document) ApplyTo(st *state.State) []string {
	var replaced []string
	if d.Products != nil {
		st.Products = *d.Products
		replaced = append(replaced, "products")
	}
	if d.Orders != nil {
		st.Orders = *d.Orders
		replaced = append(replaced, "orders")
	}
	if d.PurchaseOrders != nil {
		st.PurchaseOrders = *d.PurchaseOrders
		replaced = append(replaced, "purchaseOrders")
	}
	if d.PendingInventory != nil {
		st.PendingInventory = *d.PendingInventory
		replaced = append(replaced, "pendingInventory")
	}
	if d.CompanyConfig != nil {
		st.Company = *d.CompanyConfig
		replaced = append(replaced, "companyConfig")
	}
	if d.SupplierMappings != nil {
		st.SupplierMappings = *d.SupplierMappings
		replaced = append(replaced, "supplierMappings")
	}
	if d.WattMappings != nil {
		st.WattMappings = *d.WattMappings
		replaced = append(replaced, "wattMappings")
	}
	if d.LowStockThreshold != nil && *d.LowStockThreshold > 0 {
		st.LowStockThreshold = *d.LowStockThreshold
		replaced = append(replaced, "lowStockThreshold")
	}
	if d.Users != nil {
		users := make([]models.User, len(*d.Users))
		for i, u := range *d.Users {
			u.Password = Reveal(u.Password)
			users[i] = u
		}
		st.Users = users
		replaced = append(replaced, "users")
	}
	st.Normalize()
	return replaced
}
