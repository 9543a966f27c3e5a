package purchase

import (
	"github.com/shopspring/decimal"

	"billing/pkg/models"
)

// recompute refreshes every derived amount of po from its lines and charges.
func recompute(po *models.PurchaseOrder) {
	itemsTotal := decimal.Zero
	qty := 0
	for i := range po.Items {
		item := &po.Items[i]
		item.TotalForeign = item.CostPerUnit.Mul(decimal.NewFromInt(int64(item.Quantity)))
		itemsTotal = itemsTotal.Add(item.TotalForeign)
		qty += item.Quantity
	}

	po.TotalQuantity = qty
	po.TotalForeignAmount = itemsTotal.Add(po.ExtraFee)
	po.InvestmentINR = po.TotalForeignAmount.Mul(po.ExchangeRate).Round(2)
	po.RemainingBalance = po.TotalForeignAmount.Sub(po.DepositAmount)
}

// landedCost converts a foreign unit cost to INR.
func landedCost(item models.PurchaseOrderItem, rate decimal.Decimal) decimal.Decimal {
	return item.CostPerUnit.Mul(rate).Round(2)
}

// link fills the internal SKU, name and wattage of unlinked lines from the mappings.
func link(po *models.PurchaseOrder, suppliers []models.SupplierMapping, watts []models.WattMapping) {
	for i := range po.Items {
		item := &po.Items[i]
		if item.InternalSKU == "" {
			if m, ok := findMapping(suppliers, po.SupplierName, item.SupplierSKU); ok {
				item.InternalSKU = m.InternalSKU
				if item.Name == "" {
					item.Name = m.InternalName
				}
			}
		}
		if item.Watts == "" && item.InternalSKU != "" {
			for _, w := range watts {
				if w.InternalSKU == item.InternalSKU {
					item.Watts = w.Watts
					break
				}
			}
		}
	}
}

// findMapping prefers a mapping recorded for the same supplier over one for any supplier.
func findMapping(mappings []models.SupplierMapping, supplier, sku string) (models.SupplierMapping, bool) {
	var fallback *models.SupplierMapping
	for i := range mappings {
		m := &mappings[i]
		if m.SupplierSKU != sku {
			continue
		}
		if m.SupplierName == supplier {
			return *m, true
		}
		if fallback == nil {
			fallback = m
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return models.SupplierMapping{}, false
}
