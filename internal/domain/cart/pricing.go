package cart

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// UnitPrice is the base price plus every resolved option delta. Unresolved
// options contribute nothing.
func UnitPrice(base decimal.Decimal, options []catalog.ResolvedOption) decimal.Decimal {
	unit := base
	for _, o := range options {
		if o.Unresolved {
			continue
		}
		unit = unit.Add(o.Price)
	}
	return unit
}

// LineTotal multiplies the unit price by quantity.
func LineTotal(unit decimal.Decimal, quantity int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(quantity)))
}
