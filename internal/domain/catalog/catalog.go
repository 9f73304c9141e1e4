// Package catalog describes the menu scraped from the upstream food-delivery
// API: categories, products and their customization groups.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Category groups products on the menu.
type Category struct {
	ID       int64
	Name     string
	Active   bool
	Products []Product
}

// Product is a menu item. Prices are in the smallest currency unit (VND).
type Product struct {
	ID           int64
	CategoryID   int64
	Name         string
	Details      string
	Restaurant   string
	Image        string
	Price        decimal.Decimal
	Active       bool
	Customizable []CustomizationGroup
}

// CustomizationGroup is a set of options a customer picks from.
type CustomizationGroup struct {
	ID       int64
	Name     string
	Required bool
	// CheckBox marks groups rendered as multi-select upstream. Selections
	// still hold a single option per group.
	CheckBox   bool
	LowerLimit int
	UpperLimit int
	Options    []CustomizationOption
}

// CustomizationOption is a single choice inside a group. Price is added once
// per unit of quantity.
type CustomizationOption struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	IsDefault bool
}

// Repository provides access to the cached catalog.
type Repository interface {
	Categories(ctx context.Context) ([]Category, error)
	Products(ctx context.Context) ([]Product, error)
	Product(ctx context.Context, id int64) (*Product, error)
	// ReplaceAll swaps the cached catalog for the given categories.
	ReplaceAll(ctx context.Context, categories []Category) error
}

// Group returns the customization group with the given id.
func (p *Product) Group(id int64) (*CustomizationGroup, bool) {
	for i := range p.Customizable {
		if p.Customizable[i].ID == id {
			return &p.Customizable[i], true
		}
	}
	return nil, false
}

// Option returns the option with the given id.
func (g *CustomizationGroup) Option(id int64) (*CustomizationOption, bool) {
	for i := range g.Options {
		if g.Options[i].ID == id {
			return &g.Options[i], true
		}
	}
	return nil, false
}

// DefaultSelection picks the default option of every required group, the way
// the product dialog pre-fills its form.
func (p *Product) DefaultSelection() Selection {
	sel := make(Selection)
	for _, g := range p.Customizable {
		if !g.Required {
			continue
		}
		for _, o := range g.Options {
			if o.IsDefault {
				sel[g.ID] = o.ID
				break
			}
		}
	}
	return sel
}

// MissingOptionsError lists required groups that have no chosen option.
type MissingOptionsError struct {
	ProductID int64
	Groups    []string
}

func (e *MissingOptionsError) Error() string {
	return fmt.Sprintf("product %d: required options not selected: %s",
		e.ProductID, strings.Join(e.Groups, ", "))
}

// MissingRequired reports required groups without a choice in selection.
// It returns nil when every required group is covered.
func (p *Product) MissingRequired(selection Selection) error {
	var missing []string
	for _, g := range p.Customizable {
		if !g.Required {
			continue
		}
		if _, ok := selection[g.ID]; !ok {
			missing = append(missing, g.Name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingOptionsError{ProductID: p.ID, Groups: missing}
}

// Flatten returns all products of the given categories, keeping category order.
func Flatten(categories []Category) []Product {
	var n int
	for _, c := range categories {
		n += len(c.Products)
	}
	out := make([]Product, 0, n)
	for _, c := range categories {
		out = append(out, c.Products...)
	}
	return out
}
