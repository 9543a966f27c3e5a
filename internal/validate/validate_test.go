package validate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/pkg/models"
)

func TestStructCart(t *testing.T) {
	tests := []struct {
		name    string
		item    models.CartItem
		wantErr bool
	}{
		{"ok", models.CartItem{ProductID: "P1", Quantity: 1}, false},
		{"zero quantity", models.CartItem{ProductID: "P1", Quantity: 0}, true},
		{"negative quantity", models.CartItem{ProductID: "P1", Quantity: -2}, true},
		{"missing product", models.CartItem{Quantity: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("test", tt.item)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Struct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, apperr.ErrInvalidOrderInput) {
				t.Errorf("Struct() error kind = %v, want ErrInvalidOrderInput", err)
			}
		})
	}
}

func TestStructDecimalTags(t *testing.T) {
	item := models.PurchaseOrderItem{
		SupplierSKU: "SUP-1",
		Quantity:    5,
		CostPerUnit: decimal.NewFromInt(-1),
	}
	err := Struct("test", item)
	if !errors.Is(err, apperr.ErrInvalidOrderInput) {
		t.Fatalf("Struct() error = %v, want ErrInvalidOrderInput", err)
	}
	if got := apperr.Subjects(err); len(got) != 1 {
		t.Errorf("Subjects() = %v, want one field", got)
	}
}
