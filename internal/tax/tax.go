// Package tax computes GST line taxes, invoice totals and invoice serial numbers.
// Every function here is pure.
package tax

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/pkg/models"
)

// MinorUnitPlaces is the currency precision amounts are rounded to (paise).
const MinorUnitPlaces = 2

var (
	hundred = decimal.NewFromInt(100)
	two     = decimal.NewFromInt(2)
)

// Line is the priced input of one invoice line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
	Rate      decimal.Decimal // Percent
}

// Split is the breakdown of a total tax amount.
type Split struct {
	CGST decimal.Decimal
	SGST decimal.Decimal
	IGST decimal.Decimal
}

// Totals are the summed amounts of an invoice.
type Totals struct {
	Subtotal decimal.Decimal
	TotalTax decimal.Decimal
	Total    decimal.Decimal
	Lines    []decimal.Decimal // Tax per line, same order as the input
}

// LineTax returns unitPrice * quantity * rate / 100 rounded to the minor unit.
func LineTax(unitPrice decimal.Decimal, quantity int, rate decimal.Decimal) decimal.Decimal {
	return unitPrice.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(rate).
		Div(hundred).
		Round(MinorUnitPlaces)
}

// SplitTax splits totalTax into all-IGST for inter-state sales, or equal CGST and SGST halves.
func SplitTax(totalTax decimal.Decimal, interState bool) Split {
	if interState {
		return Split{CGST: decimal.Zero, SGST: decimal.Zero, IGST: totalTax}
	}
	half := totalTax.Div(two)
	return Split{CGST: half, SGST: half, IGST: decimal.Zero}
}

// IsInterState compares the two-digit state codes that lead each GSTIN.
// A sale without a customer GSTIN is treated as intra-state.
func IsInterState(companyGSTIN, customerGSTIN string) bool {
	company := strings.TrimSpace(companyGSTIN)
	customer := strings.TrimSpace(customerGSTIN)
	if len(company) < 2 || len(customer) < 2 {
		return false
	}
	return company[:2] != customer[:2]
}

// ValidateLine rejects lines that cannot be taxed.
func ValidateLine(line Line) error {
	const op = "ValidateLine"

	switch {
	case line.Quantity <= 0:
		return apperr.New(op, apperr.ErrInvalidOrderInput, fmt.Sprintf("quantity %d must be positive", line.Quantity))
	case line.UnitPrice.IsNegative():
		return apperr.New(op, apperr.ErrInvalidOrderInput, "unit price must not be negative")
	case line.Rate.IsNegative() || line.Rate.GreaterThan(hundred):
		return apperr.New(op, apperr.ErrInvalidOrderInput, fmt.Sprintf("tax rate %s out of range", line.Rate))
	}
	return nil
}

// Compute validates every line and sums them. Totals are exact sums of the per-line values.
func Compute(lines []Line) (Totals, error) {
	const op = "Compute"

	if len(lines) == 0 {
		return Totals{}, apperr.New(op, apperr.ErrInvalidOrderInput, "no lines")
	}

	t := Totals{
		Subtotal: decimal.Zero,
		TotalTax: decimal.Zero,
		Lines:    make([]decimal.Decimal, len(lines)),
	}
	for i, line := range lines {
		if err := ValidateLine(line); err != nil {
			return Totals{}, err
		}
		lineTax := LineTax(line.UnitPrice, line.Quantity, line.Rate)
		t.Lines[i] = lineTax
		t.Subtotal = t.Subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		t.TotalTax = t.TotalTax.Add(lineTax)
	}
	t.Total = t.Subtotal.Add(t.TotalTax)
	return t, nil
}

// NextSerial returns the serial for an invoice issued at now and the sequence to persist with it.
// The sequence restarts at models.FirstInvoiceSequence when no order exists yet in now's year.
func NextSerial(cfg models.CompanyConfig, orders []models.Order, now time.Time) (string, int) {
	year := now.Year()

	seq := cfg.InvoiceSequence
	if seq < models.FirstInvoiceSequence || !hasOrderInYear(orders, year, now.Location()) {
		seq = models.FirstInvoiceSequence
	}

	prefix := cfg.InvoicePrefix
	if prefix == "" {
		prefix = models.DefaultInvoicePrefix
	}

	return fmt.Sprintf("%s/%d/%04d", prefix, year, seq), seq + 1
}

func hasOrderInYear(orders []models.Order, year int, loc *time.Location) bool {
	for _, o := range orders {
		if o.Date.In(loc).Year() == year {
			return true
		}
	}
	return false
}
