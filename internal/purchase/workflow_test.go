package purchase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/internal/ledger"
	"billing/internal/orders"
	"billing/internal/state"
	"billing/pkg/models"
)

func setup(t *testing.T) (*Workflow, *state.Store) {
	t.Helper()
	st := state.Default()
	st.Products = []models.Product{
		{ID: "TEV-50", Name: "Flood light 50W", Price: decimal.NewFromInt(1800), Stock: 0, GSTRate: decimal.NewFromInt(18)},
		{ID: "TEV-100", Name: "Flood light 100W", Price: decimal.NewFromInt(3200), Stock: 5, GSTRate: decimal.NewFromInt(18)},
	}
	st.SupplierMappings = []models.SupplierMapping{
		{ID: "m1", SupplierSKU: "SZ-050", SupplierName: "Shenzhen Lights", InternalSKU: "TEV-50", InternalName: "Flood light 50W"},
	}
	st.WattMappings = []models.WattMapping{{ID: "w1", InternalSKU: "TEV-50", Watts: "50W"}}
	store := state.NewMemory(st)
	return NewWorkflow(store, ledger.New()), store
}

func stockPurchase(items ...models.PurchaseOrderItem) models.PurchaseOrder {
	return models.PurchaseOrder{
		SupplierName:     "Shenzhen Lights",
		Country:          "China",
		NatureOfPurchase: models.NatureStock,
		Date:             "2025-03-01",
		Currency:         models.CurrencyUSD,
		ExchangeRate:     decimal.NewFromInt(83),
		ExtraFee:         decimal.NewFromInt(50),
		DepositAmount:    decimal.NewFromInt(200),
		Items:            items,
	}
}

func stockOf(store *state.Store, id string) int {
	var n int
	store.View(func(st *state.State) { n = st.Products[st.Product(id)].Stock })
	return n
}

func TestIntakeStockGoesToPending(t *testing.T) {
	w, store := setup(t)

	po, err := w.Intake(context.Background(), stockPurchase(
		models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 100, CostPerUnit: decimal.RequireFromString("2.5")},
		models.PurchaseOrderItem{SupplierSKU: "SZ-100", InternalSKU: "TEV-100", Quantity: 10, CostPerUnit: decimal.NewFromInt(4)},
	))
	if err != nil {
		t.Fatalf("Intake() error = %v", err)
	}

	if po.Status != models.PurchaseLogged || !strings.HasPrefix(po.ID, "PUR-") || len(po.ID) != 10 {
		t.Errorf("Intake() = status %q id %q", po.Status, po.ID)
	}
	if po.Items[0].InternalSKU != "TEV-50" || po.Items[0].Watts != "50W" || po.Items[0].Name != "Flood light 50W" {
		t.Errorf("line not auto-linked: %+v", po.Items[0])
	}

	// 100*2.5 + 10*4 = 290, +50 fee = 340, *83 = 28220, -200 deposit = 140
	checks := []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"TotalForeignAmount", po.TotalForeignAmount, decimal.NewFromInt(340)},
		{"InvestmentINR", po.InvestmentINR, decimal.NewFromInt(28220)},
		{"RemainingBalance", po.RemainingBalance, decimal.NewFromInt(140)},
		{"line total", po.Items[0].TotalForeign, decimal.NewFromInt(250)},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if po.TotalQuantity != 110 {
		t.Errorf("TotalQuantity = %d, want 110", po.TotalQuantity)
	}

	if len(w.Pending()) != 1 || len(w.History()) != 0 {
		t.Errorf("pending=%d history=%d, want 1 0", len(w.Pending()), len(w.History()))
	}
	if stockOf(store, "TEV-50") != 0 {
		t.Errorf("intake changed stock")
	}
}

func TestIntakeExpenseConfirmsImmediately(t *testing.T) {
	w, store := setup(t)

	po := stockPurchase(models.PurchaseOrderItem{SupplierSKU: "FREIGHT", Quantity: 1, CostPerUnit: decimal.NewFromInt(300)})
	po.NatureOfPurchase = models.NatureOther

	got, err := w.Intake(context.Background(), po)
	if err != nil {
		t.Fatalf("Intake() error = %v", err)
	}
	if got.Status != models.PurchaseConfirmed {
		t.Errorf("Status = %q, want Confirmed", got.Status)
	}
	if len(w.Pending()) != 0 || len(w.History()) != 1 {
		t.Errorf("expense purchase not in history")
	}
	if stockOf(store, "TEV-50") != 0 || stockOf(store, "TEV-100") != 5 {
		t.Errorf("expense purchase changed stock")
	}
}

func TestIntakeRejectsInvalid(t *testing.T) {
	w, _ := setup(t)

	tests := []struct {
		name   string
		mutate func(*models.PurchaseOrder)
	}{
		{"no supplier", func(po *models.PurchaseOrder) { po.SupplierName = "" }},
		{"no items", func(po *models.PurchaseOrder) { po.Items = nil }},
		{"zero quantity", func(po *models.PurchaseOrder) { po.Items[0].Quantity = 0 }},
		{"negative cost", func(po *models.PurchaseOrder) { po.Items[0].CostPerUnit = decimal.NewFromInt(-1) }},
		{"bad currency", func(po *models.PurchaseOrder) { po.Currency = "EUR" }},
		{"bad nature", func(po *models.PurchaseOrder) { po.NatureOfPurchase = "Gift" }},
		{"bad date", func(po *models.PurchaseOrder) { po.Date = "01/03/2025" }},
		{"negative rate", func(po *models.PurchaseOrder) { po.ExchangeRate = decimal.NewFromInt(-83) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			po := stockPurchase(models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 1, CostPerUnit: decimal.NewFromInt(1)})
			tt.mutate(&po)
			if _, err := w.Intake(context.Background(), po); !errors.Is(err, apperr.ErrInvalidOrderInput) {
				t.Errorf("Intake() error = %v, want ErrInvalidOrderInput", err)
			}
		})
	}
	if len(w.Pending()) != 0 {
		t.Errorf("invalid intake was queued")
	}
}

func TestFinalizeRequiresEveryLineLinked(t *testing.T) {
	w, store := setup(t)
	ctx := context.Background()

	po, err := w.Intake(ctx, stockPurchase(
		models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 10, CostPerUnit: decimal.NewFromInt(2)},
		models.PurchaseOrderItem{SupplierSKU: "SZ-999", Quantity: 5, CostPerUnit: decimal.NewFromInt(3)},
		models.PurchaseOrderItem{SupplierSKU: "SZ-777", InternalSKU: "TEV-GHOST", Quantity: 1, CostPerUnit: decimal.NewFromInt(3)},
	))
	if err != nil {
		t.Fatal(err)
	}

	_, err = w.FinalizeReview(ctx, po.ID)
	if !errors.Is(err, apperr.ErrUnresolvedSku) {
		t.Fatalf("FinalizeReview() error = %v, want ErrUnresolvedSku", err)
	}
	subjects := apperr.Subjects(err)
	if len(subjects) != 2 || !strings.Contains(subjects[0], "SZ-999") || !strings.Contains(subjects[1], "TEV-GHOST") {
		t.Errorf("Subjects() = %v, want both bad lines", subjects)
	}
	if stockOf(store, "TEV-50") != 0 {
		t.Errorf("failed finalize changed stock")
	}
	if pending := w.Pending(); len(pending) != 1 || pending[0].Status != models.PurchaseLogged {
		t.Errorf("pending queue changed: %+v", pending)
	}
}

func TestFinalizeAddsStockAndLandedCost(t *testing.T) {
	w, store := setup(t)
	ctx := context.Background()

	po, err := w.Intake(ctx, stockPurchase(
		models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 40, CostPerUnit: decimal.RequireFromString("2.5")},
		models.PurchaseOrderItem{SupplierSKU: "SZ-050B", InternalSKU: "TEV-50", Quantity: 60, CostPerUnit: decimal.NewFromInt(3)},
	))
	if err != nil {
		t.Fatal(err)
	}

	res, err := w.FinalizeReview(ctx, po.ID)
	if err != nil {
		t.Fatalf("FinalizeReview() error = %v", err)
	}
	if res.Purchase.Status != models.PurchaseConfirmed {
		t.Errorf("Status = %q", res.Purchase.Status)
	}
	if got := stockOf(store, "TEV-50"); got != 100 {
		t.Errorf("stock = %d, want 100", got)
	}
	store.View(func(st *state.State) {
		// last line wins: 3 * 83
		if got := st.Products[st.Product("TEV-50")].CostPrice; !got.Equal(decimal.NewFromInt(249)) {
			t.Errorf("CostPrice = %s, want 249", got)
		}
	})
	if len(w.Pending()) != 0 || len(w.History()) != 1 {
		t.Errorf("record not moved to history")
	}

	if _, err := w.FinalizeReview(ctx, po.ID); !errors.Is(err, apperr.ErrPurchaseNotFound) {
		t.Errorf("second FinalizeReview() error = %v, want ErrPurchaseNotFound", err)
	}
	if got := stockOf(store, "TEV-50"); got != 100 {
		t.Errorf("second finalize applied stock again: %d", got)
	}
}

func TestRevertClampsAfterResale(t *testing.T) {
	w, store := setup(t)
	ctx := context.Background()

	po, err := w.Intake(ctx, stockPurchase(models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 100, CostPerUnit: decimal.NewFromInt(2)}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.FinalizeReview(ctx, po.ID); err != nil {
		t.Fatal(err)
	}

	om := orders.NewManager(store, ledger.New())
	if _, err := om.CreateOrder(ctx, []models.CartItem{{ProductID: "TEV-50", Quantity: 80}}, models.Customer{Name: "Site"}); err != nil {
		t.Fatal(err)
	}

	if _, err := w.Revert(ctx, po.ID, models.RoleEmployee); !errors.Is(err, apperr.ErrPermissionDenied) {
		t.Fatalf("employee Revert() error = %v, want ErrPermissionDenied", err)
	}

	res, err := w.Revert(ctx, po.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if got := stockOf(store, "TEV-50"); got != 0 {
		t.Errorf("stock after revert = %d, want 0", got)
	}
	if len(res.Shortfalls) != 1 || res.Shortfalls[0].Shortfall != 80 {
		t.Errorf("Shortfalls = %+v, want one of 80", res.Shortfalls)
	}
	if res.Purchase.Status != models.PurchaseReverted {
		t.Errorf("Status = %q, want Reverted", res.Purchase.Status)
	}
	if len(w.History()) != 0 {
		t.Errorf("reverted purchase still in history")
	}

	if _, err := w.Revert(ctx, po.ID, models.RoleAdmin); !errors.Is(err, apperr.ErrPurchaseNotFound) {
		t.Errorf("second Revert() error = %v, want ErrPurchaseNotFound", err)
	}
}

func TestRevertPendingAndExpense(t *testing.T) {
	w, store := setup(t)
	ctx := context.Background()

	pending, err := w.Intake(ctx, stockPurchase(models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 3, CostPerUnit: decimal.NewFromInt(2)}))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Revert(ctx, pending.ID, models.RoleAdmin); err != nil {
		t.Fatalf("Revert(pending) error = %v", err)
	}
	if len(w.Pending()) != 0 {
		t.Errorf("reverted purchase still pending")
	}

	expense := stockPurchase(models.PurchaseOrderItem{SupplierSKU: "FREIGHT", Quantity: 1, CostPerUnit: decimal.NewFromInt(9)})
	expense.NatureOfPurchase = models.NatureOther
	rec, err := w.Intake(ctx, expense)
	if err != nil {
		t.Fatal(err)
	}
	res, err := w.Revert(ctx, rec.ID, models.RoleAdmin)
	if err != nil {
		t.Fatalf("Revert(expense) error = %v", err)
	}
	if len(res.Stock.Changes) != 0 || stockOf(store, "TEV-100") != 5 {
		t.Errorf("expense revert touched stock: %+v", res.Stock)
	}
}

func TestEditAndRejectPendingLines(t *testing.T) {
	w, _ := setup(t)
	ctx := context.Background()

	po, err := w.Intake(ctx, stockPurchase(
		models.PurchaseOrderItem{ID: "l1", SupplierSKU: "SZ-999", Quantity: 10, CostPerUnit: decimal.NewFromInt(2)},
		models.PurchaseOrderItem{ID: "l2", SupplierSKU: "SZ-050", Quantity: 5, CostPerUnit: decimal.NewFromInt(2)},
	))
	if err != nil {
		t.Fatal(err)
	}

	qty := 20
	sku := "TEV-50"
	edited, err := w.EditPendingItem(ctx, po.ID, "l1", ItemEdit{Quantity: &qty, InternalSKU: &sku})
	if err != nil {
		t.Fatalf("EditPendingItem() error = %v", err)
	}
	if edited.Items[0].Quantity != 20 || edited.Items[0].InternalSKU != "TEV-50" || edited.Items[0].Watts != "50W" {
		t.Errorf("line not edited: %+v", edited.Items[0])
	}
	if edited.TotalQuantity != 25 || !edited.TotalForeignAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("totals not recomputed: qty=%d total=%s", edited.TotalQuantity, edited.TotalForeignAmount)
	}

	zero := 0
	if _, err := w.EditPendingItem(ctx, po.ID, "l1", ItemEdit{Quantity: &zero}); !errors.Is(err, apperr.ErrInvalidOrderInput) {
		t.Errorf("zero quantity edit error = %v", err)
	}

	removed, err := w.RejectItem(ctx, po.ID, "l1")
	if err != nil || removed {
		t.Fatalf("RejectItem(l1) = %v, %v", removed, err)
	}
	if p := w.Pending(); len(p) != 1 || len(p[0].Items) != 1 || p[0].TotalQuantity != 5 {
		t.Errorf("after first reject: %+v", p)
	}

	removed, err = w.RejectItem(ctx, po.ID, "l2")
	if err != nil || !removed {
		t.Fatalf("RejectItem(l2) = %v, %v, want removed", removed, err)
	}
	if len(w.Pending()) != 0 {
		t.Errorf("empty purchase left in queue")
	}
	if _, err := w.RejectItem(ctx, po.ID, "l2"); !errors.Is(err, apperr.ErrPurchaseNotFound) {
		t.Errorf("RejectItem on removed purchase error = %v", err)
	}
}

func TestRejectPending(t *testing.T) {
	w, _ := setup(t)
	ctx := context.Background()

	po, err := w.Intake(ctx, stockPurchase(models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: 1, CostPerUnit: decimal.NewFromInt(1)}))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.RejectPending(ctx, po.ID); err != nil {
		t.Fatalf("RejectPending() error = %v", err)
	}
	if err := w.RejectPending(ctx, po.ID); !errors.Is(err, apperr.ErrPurchaseNotFound) {
		t.Errorf("second RejectPending() error = %v", err)
	}
}

// Stock on hand always equals receipts minus applied reversals minus sales plus
// returned sales, and never drops below zero along the way.
func TestStockConservedAcrossMixedMovements(t *testing.T) {
	w, store := setup(t)
	ctx := context.Background()
	om := orders.NewManager(store, ledger.New())

	var received, reverted, sold, returned int
	check := func(step string) {
		t.Helper()
		got := stockOf(store, "TEV-50")
		if got < 0 {
			t.Fatalf("%s: stock %d below zero", step, got)
		}
		if want := received - reverted - sold + returned; got != want {
			t.Fatalf("%s: stock = %d, want %d", step, got, want)
		}
	}
	receive := func(qty int) models.PurchaseOrder {
		t.Helper()
		po, err := w.Intake(ctx, stockPurchase(models.PurchaseOrderItem{SupplierSKU: "SZ-050", Quantity: qty, CostPerUnit: decimal.NewFromInt(2)}))
		if err != nil {
			t.Fatal(err)
		}
		check("intake leaves stock alone")
		if _, err := w.FinalizeReview(ctx, po.ID); err != nil {
			t.Fatal(err)
		}
		received += qty
		return po
	}
	sell := func(qty int) models.Order {
		t.Helper()
		o, err := om.CreateOrder(ctx, []models.CartItem{{ProductID: "TEV-50", Quantity: qty}}, models.Customer{Name: "Site"})
		if err != nil {
			t.Fatal(err)
		}
		sold += qty
		return o
	}

	first := receive(100)
	check("first receipt")
	big := sell(30)
	small := sell(20)
	check("two sales")

	if err := om.DeleteOrder(ctx, small.ID, models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	returned += 20
	check("sale deleted")

	second := receive(40)
	check("second receipt")
	sell(80)
	check("third sale")

	if _, err := om.CreateOrder(ctx, []models.CartItem{{ProductID: "TEV-50", Quantity: 31}}, models.Customer{Name: "Site"}); !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("oversell error = %v, want ErrInsufficientStock", err)
	}
	check("rejected oversell")

	res, err := w.Revert(ctx, first.ID, models.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Shortfalls) != 1 || res.Shortfalls[0].Shortfall != 70 {
		t.Fatalf("Shortfalls = %+v, want one of 70", res.Shortfalls)
	}
	reverted += 100 - res.Shortfalls[0].Shortfall
	check("clamped revert")

	if err := om.DeleteOrder(ctx, big.ID, models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	returned += 30
	check("old sale deleted after revert")

	res, err = w.Revert(ctx, second.ID, models.RoleAdmin)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Shortfalls) != 1 || res.Shortfalls[0].Shortfall != 10 {
		t.Fatalf("Shortfalls = %+v, want one of 10", res.Shortfalls)
	}
	reverted += 40 - res.Shortfalls[0].Shortfall
	check("second clamped revert")

	if got := stockOf(store, "TEV-50"); got != 0 {
		t.Errorf("final stock = %d, want 0", got)
	}
}
