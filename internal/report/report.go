// Package report summarizes issued invoices for GST filing and the dashboard.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"billing/internal/apperr"
	"billing/internal/orders"
	"billing/internal/state"
	"billing/pkg/models"
)

// Period selects a calendar year, a month of it, or a quarter of it.
type Period struct {
	Year    int
	Month   int // 1-12, or 0
	Quarter int // 1-4, or 0
}

func (p Period) Validate() error {
	const op = "Period"

	switch {
	case p.Year < 2000 || p.Year > 9999:
		return apperr.New(op, apperr.ErrInvalidOrderInput, fmt.Sprintf("year %d out of range", p.Year))
	case p.Month != 0 && p.Quarter != 0:
		return apperr.New(op, apperr.ErrInvalidOrderInput, "choose a month or a quarter, not both")
	case p.Month < 0 || p.Month > 12:
		return apperr.New(op, apperr.ErrInvalidOrderInput, fmt.Sprintf("month %d out of range", p.Month))
	case p.Quarter < 0 || p.Quarter > 4:
		return apperr.New(op, apperr.ErrInvalidOrderInput, fmt.Sprintf("quarter %d out of range", p.Quarter))
	}
	return nil
}

// Contains reports whether t falls in the period.
func (p Period) Contains(t time.Time) bool {
	if t.Year() != p.Year {
		return false
	}
	m := int(t.Month())
	switch {
	case p.Month != 0:
		return m == p.Month
	case p.Quarter != 0:
		return (m-1)/3+1 == p.Quarter
	}
	return true
}

func (p Period) String() string {
	switch {
	case p.Month != 0:
		return fmt.Sprintf("%d-%02d", p.Year, p.Month)
	case p.Quarter != 0:
		return fmt.Sprintf("%d-Q%d", p.Year, p.Quarter)
	}
	return fmt.Sprintf("%d", p.Year)
}

// GSTLine is one invoice in a GST report.
type GSTLine struct {
	Serial   string
	Date     time.Time
	Customer string
	GSTIN    string
	Taxable  decimal.Decimal
	CGST     decimal.Decimal
	SGST     decimal.Decimal
	IGST     decimal.Decimal
	TotalTax decimal.Decimal
	Total    decimal.Decimal
}

// GSTReport totals the tax collected over a period.
type GSTReport struct {
	Period       Period
	Lines        []GSTLine // Oldest first
	TaxableValue decimal.Decimal
	CGST         decimal.Decimal
	SGST         decimal.Decimal
	IGST         decimal.Decimal
	TotalTax     decimal.Decimal
	TotalAmount  decimal.Decimal
}

// GST builds the report for p. Cancelled invoices are left out. Dates are
// compared in loc.
func GST(list []models.Order, p Period, loc *time.Location) (GSTReport, error) {
	if err := p.Validate(); err != nil {
		return GSTReport{}, err
	}

	r := GSTReport{
		Period:       p,
		TaxableValue: decimal.Zero,
		CGST:         decimal.Zero,
		SGST:         decimal.Zero,
		IGST:         decimal.Zero,
		TotalTax:     decimal.Zero,
		TotalAmount:  decimal.Zero,
	}
	for _, o := range list {
		date := o.Date.In(loc)
		if o.Status == models.OrderCancelled || !p.Contains(date) {
			continue
		}
		r.Lines = append(r.Lines, GSTLine{
			Serial:   o.SerialNumber,
			Date:     date,
			Customer: o.CustomerName,
			GSTIN:    o.CustomerGSTIN,
			Taxable:  o.Subtotal,
			CGST:     o.CGST,
			SGST:     o.SGST,
			IGST:     o.IGST,
			TotalTax: o.TotalTax,
			Total:    o.TotalAmount,
		})
		r.TaxableValue = r.TaxableValue.Add(o.Subtotal)
		r.CGST = r.CGST.Add(o.CGST)
		r.SGST = r.SGST.Add(o.SGST)
		r.IGST = r.IGST.Add(o.IGST)
		r.TotalTax = r.TotalTax.Add(o.TotalTax)
		r.TotalAmount = r.TotalAmount.Add(o.TotalAmount)
	}
	sort.SliceStable(r.Lines, func(i, j int) bool { return r.Lines[i].Date.Before(r.Lines[j].Date) })
	return r, nil
}

// LowStockItem is a product below the low-stock threshold.
type LowStockItem struct {
	ProductID string
	Name      string
	Stock     int
}

// DailySales is the invoiced total of one day.
type DailySales struct {
	Day   string // 2006-01-02
	Total decimal.Decimal
}

// Summary holds the dashboard figures.
type Summary struct {
	TotalSales    decimal.Decimal
	OrderCount    int
	AvgOrderValue decimal.Decimal
	GrossMargin   decimal.Decimal
	Threshold     int
	LowStock      []LowStockItem
	LastWeek      []DailySales // Oldest first, ending on now's day
}

// Dashboard summarises st as of now.
func Dashboard(st *state.State, now time.Time) Summary {
	s := Summary{
		TotalSales:    decimal.Zero,
		AvgOrderValue: decimal.Zero,
		GrossMargin:   decimal.Zero,
		Threshold:     st.LowStockThreshold,
	}

	daily := make(map[string]decimal.Decimal, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		daily[day] = decimal.Zero
		s.LastWeek = append(s.LastWeek, DailySales{Day: day})
	}

	for _, o := range st.Orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		s.OrderCount++
		s.TotalSales = s.TotalSales.Add(o.TotalAmount)
		s.GrossMargin = s.GrossMargin.Add(orders.Margin(o))
		day := o.Date.In(now.Location()).Format("2006-01-02")
		if v, ok := daily[day]; ok {
			daily[day] = v.Add(o.TotalAmount)
		}
	}
	for i := range s.LastWeek {
		s.LastWeek[i].Total = daily[s.LastWeek[i].Day]
	}
	if s.OrderCount > 0 {
		s.AvgOrderValue = s.TotalSales.Div(decimal.NewFromInt(int64(s.OrderCount))).Round(2)
	}

	for _, p := range st.Products {
		if p.Stock < st.LowStockThreshold {
			s.LowStock = append(s.LowStock, LowStockItem{ProductID: p.ID, Name: p.Name, Stock: p.Stock})
		}
	}
	sort.SliceStable(s.LowStock, func(i, j int) bool { return s.LowStock[i].Stock < s.LowStock[j].Stock })
	return s
}
