package ledger

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/internal/state"
	"billing/pkg/models"
)

func newState(stock map[string]int) *state.State {
	st := state.Default()
	for id, n := range stock {
		st.Products = append(st.Products, models.Product{ID: id, Stock: n})
	}
	return st
}

func stockOf(st *state.State, id string) int {
	return st.Products[st.Product(id)].Stock
}

func TestApplyBatchAllOrNothing(t *testing.T) {
	st := newState(map[string]int{"A": 10, "B": 2})

	_, err := New().ApplyBatch(st, Sale, map[string]int{"A": -5, "B": -3})
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("ApplyBatch() error = %v, want ErrInsufficientStock", err)
	}
	if got := apperr.Subjects(err); !reflect.DeepEqual(got, []string{"B"}) {
		t.Errorf("Subjects() = %v, want [B]", got)
	}
	if stockOf(st, "A") != 10 || stockOf(st, "B") != 2 {
		t.Errorf("partial mutation: A=%d B=%d", stockOf(st, "A"), stockOf(st, "B"))
	}
}

func TestApplyBatchErrors(t *testing.T) {
	tests := []struct {
		name     string
		movement Movement
		deltas   map[string]int
		want     error
	}{
		{"empty", Sale, map[string]int{}, apperr.ErrInvalidOrderInput},
		{"unknown product", Sale, map[string]int{"A": -1, "Z": -1}, apperr.ErrUnknownProduct},
		{"sale with positive delta", Sale, map[string]int{"A": 1}, apperr.ErrInvalidOrderInput},
		{"receipt with negative delta", PurchaseReceipt, map[string]int{"A": -1}, apperr.ErrInvalidOrderInput},
		{"zero delta", SaleReversal, map[string]int{"A": 0}, apperr.ErrInvalidOrderInput},
		{"oversell", Sale, map[string]int{"A": -11}, apperr.ErrInsufficientStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := newState(map[string]int{"A": 10})
			_, err := New().ApplyBatch(st, tt.movement, tt.deltas)
			if !errors.Is(err, tt.want) {
				t.Errorf("ApplyBatch() error = %v, want %v", err, tt.want)
			}
			if stockOf(st, "A") != 10 {
				t.Errorf("stock changed on failure: %d", stockOf(st, "A"))
			}
		})
	}
}

func TestApplyBatchMovements(t *testing.T) {
	st := newState(map[string]int{"A": 10, "B": 0})
	l := New()

	if _, err := l.ApplyBatch(st, Sale, map[string]int{"A": -10}); err != nil {
		t.Fatalf("sale to zero: %v", err)
	}
	if _, err := l.ApplyBatch(st, PurchaseReceipt, map[string]int{"A": 100, "B": 4}); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if stockOf(st, "A") != 100 || stockOf(st, "B") != 4 {
		t.Fatalf("after receipt A=%d B=%d", stockOf(st, "A"), stockOf(st, "B"))
	}
	if _, err := l.ApplyBatch(st, Sale, map[string]int{"A": -80}); err != nil {
		t.Fatalf("sale: %v", err)
	}

	res, err := l.ApplyBatch(st, PurchaseReversal, map[string]int{"A": -100, "B": -4})
	if err != nil {
		t.Fatalf("reversal: %v", err)
	}
	if stockOf(st, "A") != 0 || stockOf(st, "B") != 0 {
		t.Errorf("after reversal A=%d B=%d, want 0 0", stockOf(st, "A"), stockOf(st, "B"))
	}
	want := []Change{{ProductID: "A", Before: 20, After: 0, Shortfall: 80}}
	if got := res.Shortfalls(); !reflect.DeepEqual(got, want) {
		t.Errorf("Shortfalls() = %+v, want %+v", got, want)
	}
}

func TestApplyDelta(t *testing.T) {
	st := newState(map[string]int{"P1": 10})
	c, err := New().ApplyDelta(st, "P1", Sale, -3)
	if err != nil {
		t.Fatalf("ApplyDelta() error = %v", err)
	}
	if c.Before != 10 || c.After != 7 || stockOf(st, "P1") != 7 {
		t.Errorf("ApplyDelta() = %+v, stock %d", c, stockOf(st, "P1"))
	}
}

func TestSetLandedCost(t *testing.T) {
	st := newState(map[string]int{"P1": 1})
	l := New()

	if err := l.SetLandedCost(st, "P1", decimal.RequireFromString("83.5")); err != nil {
		t.Fatalf("SetLandedCost() error = %v", err)
	}
	if got := st.Products[0].CostPrice; !got.Equal(decimal.RequireFromString("83.5")) {
		t.Errorf("CostPrice = %s", got)
	}
	if err := l.SetLandedCost(st, "missing", decimal.NewFromInt(1)); !errors.Is(err, apperr.ErrUnknownProduct) {
		t.Errorf("unknown product error = %v", err)
	}
	if err := l.SetLandedCost(st, "P1", decimal.NewFromInt(-1)); !errors.Is(err, apperr.ErrInvalidOrderInput) {
		t.Errorf("negative cost error = %v", err)
	}
}
