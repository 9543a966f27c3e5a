// Package ledger is the only writer of Product.Stock and Product.CostPrice.
//
// A batch is checked in full before any product is touched: either every delta
// applies or none does. Sales never drive stock below zero. Purchase reversals
// clamp at zero and report what could not be deducted.
package ledger

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/internal/logger"
	"billing/internal/state"
)

// Movement names why stock changes. It fixes the sign a delta must have.
type Movement int

const (
	Sale             Movement = iota + 1 // Invoice issued, delta < 0
	SaleReversal                         // Invoice deleted, delta > 0
	PurchaseReceipt                      // Purchase finalized, delta > 0
	PurchaseReversal                     // Confirmed purchase reverted, delta < 0, clamped at zero
)

func (m Movement) String() string {
	switch m {
	case Sale:
		return "sale"
	case SaleReversal:
		return "sale_reversal"
	case PurchaseReceipt:
		return "purchase_receipt"
	case PurchaseReversal:
		return "purchase_reversal"
	}
	return fmt.Sprintf("movement(%d)", int(m))
}

func (m Movement) incoming() bool {
	return m == SaleReversal || m == PurchaseReceipt
}

// Change is the effect of one delta on one product.
type Change struct {
	ProductID string
	Before    int
	After     int
	Shortfall int // Units a clamped reversal could not deduct
}

// Result lists the changes of a batch in product id order.
type Result struct {
	Movement Movement
	Changes  []Change
}

// Shortfalls returns the changes that were clamped at zero.
func (r Result) Shortfalls() []Change {
	var out []Change
	for _, c := range r.Changes {
		if c.Shortfall > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Ledger applies stock movements to a state under mutation.
type Ledger struct {
	log zerolog.Logger
}

func New() *Ledger {
	return &Ledger{log: logger.WithComponent("ledger")}
}

// ApplyDelta applies a single product delta.
func (l *Ledger) ApplyDelta(st *state.State, productID string, m Movement, delta int) (Change, error) {
	res, err := l.ApplyBatch(st, m, map[string]int{productID: delta})
	if err != nil {
		return Change{}, err
	}
	return res.Changes[0], nil
}

// ApplyBatch applies every delta in deltas or, on any violation, none of them.
func (l *Ledger) ApplyBatch(st *state.State, m Movement, deltas map[string]int) (Result, error) {
	const op = "ApplyBatch"

	if len(deltas) == 0 {
		return Result{}, apperr.New(op, apperr.ErrInvalidOrderInput, "empty batch")
	}

	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var unknown, wrongSign, short []string
	index := make([]int, len(ids))
	for i, id := range ids {
		index[i] = st.Product(id)
		delta := deltas[id]
		switch {
		case index[i] < 0:
			unknown = append(unknown, id)
		case delta == 0 || (delta > 0) != m.incoming():
			wrongSign = append(wrongSign, id)
		case m == Sale && st.Products[index[i]].Stock+delta < 0:
			short = append(short, id)
		}
	}
	switch {
	case len(unknown) > 0:
		return Result{}, apperr.New(op, apperr.ErrUnknownProduct, "", unknown...)
	case len(wrongSign) > 0:
		return Result{}, apperr.New(op, apperr.ErrInvalidOrderInput, "delta sign does not match "+m.String(), wrongSign...)
	case len(short) > 0:
		return Result{}, apperr.New(op, apperr.ErrInsufficientStock, "", short...)
	}

	res := Result{Movement: m, Changes: make([]Change, len(ids))}
	for i, id := range ids {
		p := &st.Products[index[i]]
		c := Change{ProductID: id, Before: p.Stock, After: p.Stock + deltas[id]}
		if c.After < 0 {
			c.Shortfall = -c.After
			c.After = 0
		}
		p.Stock = c.After
		res.Changes[i] = c
	}

	l.log.Debug().
		Str("movement", m.String()).
		Int("products", len(ids)).
		Msg("Applied stock batch")

	return res, nil
}

// SetLandedCost overwrites a product's cost price with the latest landed unit cost.
func (l *Ledger) SetLandedCost(st *state.State, productID string, cost decimal.Decimal) error {
	const op = "SetLandedCost"

	i := st.Product(productID)
	if i < 0 {
		return apperr.New(op, apperr.ErrUnknownProduct, "", productID)
	}
	if cost.IsNegative() {
		return apperr.New(op, apperr.ErrInvalidOrderInput, "negative cost", productID)
	}
	st.Products[i].CostPrice = cost
	return nil
}
