// Package purchase carries supplier purchases from intake through review to
// confirmed stock, and reverts confirmed purchases.
//
// Expense-only purchases are confirmed at intake. Stock purchases wait in the
// pending queue until every line links to a catalog product; finalizing adds
// the stock and resets each product's cost price to the landed cost.
package purchase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/internal/ledger"
	"billing/internal/logger"
	"billing/internal/state"
	"billing/internal/validate"
	"billing/pkg/models"
)

// Workflow runs purchase state transitions against the store.
type Workflow struct {
	store  *state.Store
	ledger *ledger.Ledger
	now    func() time.Time
	log    zerolog.Logger
}

func NewWorkflow(store *state.Store, l *ledger.Ledger) *Workflow {
	return &Workflow{
		store:  store,
		ledger: l,
		now:    time.Now,
		log:    logger.WithComponent("purchase"),
	}
}

// FinalizeResult is the outcome of a successful review.
type FinalizeResult struct {
	Purchase models.PurchaseOrder
	Stock    ledger.Result
}

// RevertResult is the outcome of a revert. Shortfalls lists products whose stock
// was already below the imported quantity and was clamped at zero.
type RevertResult struct {
	Purchase   models.PurchaseOrder
	Stock      ledger.Result
	Shortfalls []ledger.Change
}

// ItemEdit changes a pending line. Nil fields are left alone.
type ItemEdit struct {
	Quantity    *int
	CostPerUnit *decimal.Decimal
	InternalSKU *string
}

// Intake records a supplier purchase. Expense-only purchases are confirmed
// immediately; stock purchases are logged into the pending review queue.
func (w *Workflow) Intake(ctx context.Context, po models.PurchaseOrder) (models.PurchaseOrder, error) {
	const op = "Intake"

	if err := ctx.Err(); err != nil {
		return models.PurchaseOrder{}, err
	}

	if po.Country == "" {
		po.Country = "Unknown"
	}
	if po.Date == "" {
		po.Date = w.now().Format("2006-01-02")
	}
	if po.ExchangeRate.IsZero() {
		po.ExchangeRate = decimal.NewFromInt(1)
	}
	if err := validate.Struct(op, po); err != nil {
		return models.PurchaseOrder{}, err
	}
	po.Items = append([]models.PurchaseOrderItem(nil), po.Items...)
	for i := range po.Items {
		if po.Items[i].ID == "" {
			po.Items[i].ID = uuid.NewString()
		}
	}

	err := w.store.Update(op, func(st *state.State) error {
		po.ID = newPurchaseID(st)
		link(&po, st.SupplierMappings, st.WattMappings)
		recompute(&po)

		if po.NatureOfPurchase == models.NatureOther {
			po.Status = models.PurchaseConfirmed
			st.PurchaseOrders = append([]models.PurchaseOrder{po}, st.PurchaseOrders...)
			return nil
		}
		po.Status = models.PurchaseLogged
		st.PendingInventory = append(st.PendingInventory, po)
		return nil
	})
	if err != nil {
		return models.PurchaseOrder{}, err
	}

	w.log.Info().
		Str("purchase_id", po.ID).
		Str("supplier", po.SupplierName).
		Str("nature", string(po.NatureOfPurchase)).
		Str("status", string(po.Status)).
		Int("quantity", po.TotalQuantity).
		Msg("Purchase recorded")

	return po, nil
}

// FinalizeReview confirms a pending stock purchase. Every line must link to a
// known product; otherwise nothing changes and the error names each bad line.
func (w *Workflow) FinalizeReview(ctx context.Context, purchaseID string) (FinalizeResult, error) {
	const op = "FinalizeReview"

	if err := ctx.Err(); err != nil {
		return FinalizeResult{}, err
	}

	var res FinalizeResult
	err := w.store.Update(op, func(st *state.State) error {
		i := state.Purchase(st.PendingInventory, purchaseID)
		if i < 0 {
			return apperr.New(op, apperr.ErrPurchaseNotFound, "not in the pending queue", purchaseID)
		}
		po := st.PendingInventory[i]
		if po.Status != models.PurchaseLogged {
			return apperr.New(op, apperr.ErrInvalidTransition, "status "+string(po.Status), purchaseID)
		}

		var unresolved []string
		deltas := make(map[string]int, len(po.Items))
		for _, item := range po.Items {
			if item.InternalSKU == "" || st.Product(item.InternalSKU) < 0 {
				unresolved = append(unresolved, describe(item))
				continue
			}
			deltas[item.InternalSKU] += item.Quantity
		}
		if len(unresolved) > 0 {
			return apperr.New(op, apperr.ErrUnresolvedSku, "link every line to a catalog product", unresolved...)
		}

		stock, err := w.ledger.ApplyBatch(st, ledger.PurchaseReceipt, deltas)
		if err != nil {
			return err
		}
		// Last line wins when one product appears on several lines.
		for _, item := range po.Items {
			if err := w.ledger.SetLandedCost(st, item.InternalSKU, landedCost(item, po.ExchangeRate)); err != nil {
				return err
			}
		}

		po.Status = models.PurchaseConfirmed
		st.PendingInventory = append(st.PendingInventory[:i], st.PendingInventory[i+1:]...)
		st.PurchaseOrders = append([]models.PurchaseOrder{po}, st.PurchaseOrders...)

		res = FinalizeResult{Purchase: po, Stock: stock}
		return nil
	})
	if err != nil {
		w.log.Warn().Err(err).Str("purchase_id", purchaseID).Msg("Review not finalized")
		return FinalizeResult{}, err
	}

	w.log.Info().
		Str("purchase_id", purchaseID).
		Int("quantity", res.Purchase.TotalQuantity).
		Msg("Purchase confirmed, stock received")

	return res, nil
}

// Revert removes a logged or confirmed purchase. A confirmed stock purchase
// gives its quantities back, clamped at zero per product. Admins only.
func (w *Workflow) Revert(ctx context.Context, purchaseID string, actor models.Role) (RevertResult, error) {
	const op = "Revert"

	if err := ctx.Err(); err != nil {
		return RevertResult{}, err
	}
	if !actor.Elevated() {
		return RevertResult{}, apperr.New(op, apperr.ErrPermissionDenied, "reverting purchases requires the admin role", string(actor))
	}

	var res RevertResult
	err := w.store.Update(op, func(st *state.State) error {
		li := state.Purchase(st.PurchaseOrders, purchaseID)
		pi := state.Purchase(st.PendingInventory, purchaseID)

		var po models.PurchaseOrder
		switch {
		case li >= 0:
			po = st.PurchaseOrders[li]
		case pi >= 0:
			po = st.PendingInventory[pi]
		default:
			return apperr.New(op, apperr.ErrPurchaseNotFound, "", purchaseID)
		}

		switch po.Status {
		case models.PurchaseConfirmed:
			if po.NatureOfPurchase == models.NatureStock {
				deltas := make(map[string]int, len(po.Items))
				for _, item := range po.Items {
					deltas[item.InternalSKU] -= item.Quantity
				}
				stock, err := w.ledger.ApplyBatch(st, ledger.PurchaseReversal, deltas)
				if err != nil {
					return err
				}
				res.Stock = stock
				res.Shortfalls = stock.Shortfalls()
			}
		case models.PurchaseLogged:
			// Never reached stock.
		default:
			return apperr.New(op, apperr.ErrInvalidTransition, "cannot revert a "+string(po.Status)+" purchase", purchaseID)
		}

		if li >= 0 {
			st.PurchaseOrders = append(st.PurchaseOrders[:li], st.PurchaseOrders[li+1:]...)
		}
		if pi >= 0 {
			st.PendingInventory = append(st.PendingInventory[:pi], st.PendingInventory[pi+1:]...)
		}

		po.Status = models.PurchaseReverted
		res.Purchase = po
		return nil
	})
	if err != nil {
		return RevertResult{}, err
	}

	for _, s := range res.Shortfalls {
		w.log.Warn().
			Str("purchase_id", purchaseID).
			Str("sku", s.ProductID).
			Int("on_hand", s.Before).
			Int("shortfall", s.Shortfall).
			Msg("Revert clamped at zero, stock already sold")
	}
	w.log.Info().Str("purchase_id", purchaseID).Msg("Purchase reverted")

	return res, nil
}

// EditPendingItem changes the quantity, cost or link of a line awaiting review.
func (w *Workflow) EditPendingItem(ctx context.Context, purchaseID, itemID string, edit ItemEdit) (models.PurchaseOrder, error) {
	const op = "EditPendingItem"

	if err := ctx.Err(); err != nil {
		return models.PurchaseOrder{}, err
	}
	if edit.Quantity != nil && *edit.Quantity <= 0 {
		return models.PurchaseOrder{}, apperr.New(op, apperr.ErrInvalidOrderInput, "quantity must be positive", itemID)
	}
	if edit.CostPerUnit != nil && edit.CostPerUnit.IsNegative() {
		return models.PurchaseOrder{}, apperr.New(op, apperr.ErrInvalidOrderInput, "cost must not be negative", itemID)
	}

	var out models.PurchaseOrder
	err := w.store.Update(op, func(st *state.State) error {
		po, item, err := pendingItem(op, st, purchaseID, itemID)
		if err != nil {
			return err
		}
		if edit.Quantity != nil {
			item.Quantity = *edit.Quantity
		}
		if edit.CostPerUnit != nil {
			item.CostPerUnit = *edit.CostPerUnit
		}
		if edit.InternalSKU != nil {
			item.InternalSKU = strings.TrimSpace(*edit.InternalSKU)
			item.Watts = ""
			link(po, nil, st.WattMappings)
		}
		recompute(po)
		out = *po
		return nil
	})
	return out, err
}

// RejectItem drops one line from a pending purchase. Dropping the last line
// drops the purchase; removed reports whether that happened.
func (w *Workflow) RejectItem(ctx context.Context, purchaseID, itemID string) (removed bool, err error) {
	const op = "RejectItem"

	if err := ctx.Err(); err != nil {
		return false, err
	}

	err = w.store.Update(op, func(st *state.State) error {
		po, item, err := pendingItem(op, st, purchaseID, itemID)
		if err != nil {
			return err
		}
		for i := range po.Items {
			if &po.Items[i] == item {
				po.Items = append(po.Items[:i], po.Items[i+1:]...)
				break
			}
		}
		if len(po.Items) == 0 {
			st.PendingInventory = removePurchase(st.PendingInventory, purchaseID)
			removed = true
			return nil
		}
		recompute(po)
		return nil
	})
	if err == nil && removed {
		w.log.Info().Str("purchase_id", purchaseID).Msg("Last line rejected, pending purchase dropped")
	}
	return removed, err
}

// RejectPending drops a whole purchase from the review queue.
func (w *Workflow) RejectPending(ctx context.Context, purchaseID string) error {
	const op = "RejectPending"

	if err := ctx.Err(); err != nil {
		return err
	}
	return w.store.Update(op, func(st *state.State) error {
		if state.Purchase(st.PendingInventory, purchaseID) < 0 {
			return apperr.New(op, apperr.ErrPurchaseNotFound, "not in the pending queue", purchaseID)
		}
		st.PendingInventory = removePurchase(st.PendingInventory, purchaseID)
		return nil
	})
}

// Pending returns the review queue in intake order.
func (w *Workflow) Pending() []models.PurchaseOrder {
	return w.store.Snapshot().PendingInventory
}

// History returns confirmed purchases, most recent first.
func (w *Workflow) History() []models.PurchaseOrder {
	return w.store.Snapshot().PurchaseOrders
}

func pendingItem(op string, st *state.State, purchaseID, itemID string) (*models.PurchaseOrder, *models.PurchaseOrderItem, error) {
	i := state.Purchase(st.PendingInventory, purchaseID)
	if i < 0 {
		return nil, nil, apperr.New(op, apperr.ErrPurchaseNotFound, "not in the pending queue", purchaseID)
	}
	po := &st.PendingInventory[i]
	for j := range po.Items {
		if po.Items[j].ID == itemID {
			return po, &po.Items[j], nil
		}
	}
	return nil, nil, apperr.New(op, apperr.ErrPurchaseNotFound, "no such line", purchaseID+"/"+itemID)
}

func removePurchase(list []models.PurchaseOrder, id string) []models.PurchaseOrder {
	if i := state.Purchase(list, id); i >= 0 {
		return append(list[:i], list[i+1:]...)
	}
	return list
}

func newPurchaseID(st *state.State) string {
	for {
		id := "PUR-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
		if state.Purchase(st.PurchaseOrders, id) < 0 && state.Purchase(st.PendingInventory, id) < 0 {
			return id
		}
	}
}

func describe(item models.PurchaseOrderItem) string {
	if item.InternalSKU == "" {
		return item.SupplierSKU + " (unlinked)"
	}
	return item.SupplierSKU + " -> " + item.InternalSKU
}
