// Package orders issues and deletes sales invoices.
//
// An invoice is issued in one store mutation: prices and tax rates are
// snapshotted, stock is decremented through the ledger, the serial is assigned
// and the next sequence is persisted with the order. If any step fails nothing
// is written and no sequence number is consumed. Issued invoices are never
// edited; a correction is a delete followed by a new invoice.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/internal/ledger"
	"billing/internal/logger"
	"billing/internal/state"
	"billing/internal/tax"
	"billing/internal/validate"
	"billing/pkg/models"
)

// Manager owns invoice numbering and the order list.
type Manager struct {
	store  *state.Store
	ledger *ledger.Ledger
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the time source used for invoice dates and serials.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store *state.Store, l *ledger.Ledger, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ledger: l,
		now:    time.Now,
		log:    logger.WithComponent("orders"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateOrder issues an invoice for cart. Repeated product ids are merged into one line.
func (m *Manager) CreateOrder(ctx context.Context, cart []models.CartItem, customer models.Customer) (models.Order, error) {
	const op = "CreateOrder"

	if err := ctx.Err(); err != nil {
		return models.Order{}, err
	}
	lines, err := mergeCart(op, cart)
	if err != nil {
		return models.Order{}, err
	}
	if err := validate.Struct(op, customer); err != nil {
		return models.Order{}, err
	}

	var order models.Order
	err = m.store.Update(op, func(st *state.State) error {
		var unknown []string
		for _, line := range lines {
			if st.Product(line.ProductID) < 0 {
				unknown = append(unknown, line.ProductID)
			}
		}
		if len(unknown) > 0 {
			return apperr.New(op, apperr.ErrUnknownProduct, "", unknown...)
		}

		items := make([]models.OrderItem, len(lines))
		taxLines := make([]tax.Line, len(lines))
		deltas := make(map[string]int, len(lines))
		for i, line := range lines {
			p := st.Products[st.Product(line.ProductID)]
			items[i] = models.OrderItem{
				ID:        uuid.NewString(),
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
				CostPrice: p.CostPrice,
				GSTRate:   p.GSTRate,
				HSNCode:   p.HSNCode,
			}
			taxLines[i] = tax.Line{UnitPrice: p.Price, Quantity: line.Quantity, Rate: p.GSTRate}
			deltas[p.ID] = -line.Quantity
		}

		totals, err := tax.Compute(taxLines)
		if err != nil {
			return apperr.Wrap(op, err, "")
		}
		for i := range items {
			items[i].TaxAmount = totals.Lines[i]
		}

		if _, err := m.ledger.ApplyBatch(st, ledger.Sale, deltas); err != nil {
			return err
		}

		now := m.now()
		serial, next := tax.NextSerial(st.Company, st.Orders, now)
		split := tax.SplitTax(totals.TotalTax, tax.IsInterState(st.Company.GSTIN, customer.GSTIN))

		order = models.Order{
			ID:            uuid.NewString(),
			SerialNumber:  serial,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
			CustomerGSTIN: customer.GSTIN,
			Date:          now,
			Items:         items,
			Subtotal:      totals.Subtotal,
			CGST:          split.CGST,
			SGST:          split.SGST,
			IGST:          split.IGST,
			TotalTax:      totals.TotalTax,
			TotalAmount:   totals.Total,
			Status:        models.OrderCompleted,
			Notes:         customer.Notes,
		}
		st.Orders = append([]models.Order{order}, st.Orders...)
		st.Company.InvoiceSequence = next
		return nil
	})
	if err != nil {
		m.log.Warn().Err(err).Int("lines", len(lines)).Msg("Invoice rejected")
		return models.Order{}, err
	}

	m.log.Info().
		Str("serial", order.SerialNumber).
		Str("customer", order.CustomerName).
		Str("total", order.TotalAmount.StringFixed(tax.MinorUnitPlaces)).
		Msg("Invoice issued")

	return order, nil
}

// DeleteOrder restores the stock of an issued invoice and removes it. Admins only.
func (m *Manager) DeleteOrder(ctx context.Context, orderID string, actor models.Role) error {
	const op = "DeleteOrder"

	if err := ctx.Err(); err != nil {
		return err
	}
	if !actor.Elevated() {
		return apperr.New(op, apperr.ErrPermissionDenied, "deleting invoices requires the admin role", string(actor))
	}

	var serial string
	err := m.store.Update(op, func(st *state.State) error {
		i := st.Order(orderID)
		if i < 0 {
			return apperr.New(op, apperr.ErrOrderNotFound, "", orderID)
		}
		order := st.Orders[i]

		deltas := make(map[string]int, len(order.Items))
		for _, item := range order.Items {
			deltas[item.ProductID] += item.Quantity
		}
		if _, err := m.ledger.ApplyBatch(st, ledger.SaleReversal, deltas); err != nil {
			return err
		}

		st.Orders = append(st.Orders[:i], st.Orders[i+1:]...)
		serial = order.SerialNumber
		return nil
	})
	if err != nil {
		return err
	}

	m.log.Info().Str("order_id", orderID).Str("serial", serial).Msg("Invoice deleted, stock restored")
	return nil
}

// Get returns the order with the given id or serial number.
func (m *Manager) Get(idOrSerial string) (models.Order, error) {
	var (
		order models.Order
		found bool
	)
	m.store.View(func(st *state.State) {
		for _, o := range st.Orders {
			if o.ID == idOrSerial || o.SerialNumber == idOrSerial {
				order = o
				order.Items = append([]models.OrderItem(nil), o.Items...)
				found = true
				return
			}
		}
	})
	if !found {
		return models.Order{}, apperr.New("Get", apperr.ErrOrderNotFound, "", idOrSerial)
	}
	return order, nil
}

// List returns all orders, most recent first.
func (m *Manager) List() []models.Order {
	return m.store.Snapshot().Orders
}

// mergeCart validates the cart and folds repeated products into one line, keeping first-seen order.
func mergeCart(op string, cart []models.CartItem) ([]models.CartItem, error) {
	if len(cart) == 0 {
		return nil, apperr.New(op, apperr.ErrInvalidOrderInput, "cart is empty")
	}

	merged := make([]models.CartItem, 0, len(cart))
	pos := make(map[string]int, len(cart))
	for _, item := range cart {
		if err := validate.Struct(op, item); err != nil {
			return nil, err
		}
		if i, ok := pos[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		pos[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged, nil
}

// Margin returns revenue minus cost of goods for an order, excluding tax.
func Margin(o models.Order) decimal.Decimal {
	margin := decimal.Zero
	for _, item := range o.Items {
		qty := decimal.NewFromInt(int64(item.Quantity))
		margin = margin.Add(item.UnitPrice.Sub(item.CostPrice).Mul(qty))
	}
	return margin
}
