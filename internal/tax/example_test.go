package tax_test

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"billing/internal/tax"
	"billing/pkg/models"
)

// Example computes an intra-state invoice and its serial.
func Example() {
	totals, err := tax.Compute([]tax.Line{
		{UnitPrice: decimal.NewFromInt(1200), Quantity: 2, Rate: decimal.NewFromInt(18)},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	split := tax.SplitTax(totals.TotalTax, tax.IsInterState("27AAAAA0000A1Z5", "27BBBBB0000B1Z5"))

	serial, next := tax.NextSerial(models.CompanyConfig{InvoiceSequence: 1001}, nil,
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	fmt.Println(totals.Subtotal, split.CGST, split.SGST, totals.Total)
	fmt.Println(serial, next)
	// Output:
	// 2400 216 216 2832
	// TE/2025/1001 1002
}
