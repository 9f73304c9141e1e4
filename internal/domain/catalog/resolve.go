package catalog

import (
	"slices"

	"github.com/shopspring/decimal"
)

// Selection maps a customization group id to the chosen option id. Only one
// option per group is kept.
type Selection map[int64]int64

// GroupIDs returns the selection's group ids in ascending order.
func (s Selection) GroupIDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Clone returns a copy that does not share storage with s.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ResolvedOption is a selection entry looked up in the product definition.
//
// When the group or option is no longer part of the product, Unresolved is
// set, names are empty and Price is zero. Such an option is distinct from an
// option that is deliberately free.
type ResolvedOption struct {
	GroupID    int64
	GroupName  string
	OptionID   int64
	OptionName string
	Price      decimal.Decimal
	Unresolved bool
}

// Resolve looks up every selected option in ascending group id order.
// Missing references do not fail resolution.
func (p *Product) Resolve(selection Selection) []ResolvedOption {
	out := make([]ResolvedOption, 0, len(selection))
	for _, groupID := range selection.GroupIDs() {
		optionID := selection[groupID]
		r := ResolvedOption{
			GroupID:    groupID,
			OptionID:   optionID,
			Price:      decimal.Zero,
			Unresolved: true,
		}
		if g, ok := p.Group(groupID); ok {
			r.GroupName = g.Name
			if o, ok := g.Option(optionID); ok {
				r.OptionName = o.Name
				r.Price = o.Price
				r.Unresolved = false
			}
		}
		out = append(out, r)
	}
	return out
}

// CountUnresolved reports how many options failed to resolve.
func CountUnresolved(options []ResolvedOption) int {
	var n int
	for _, o := range options {
		if o.Unresolved {
			n++
		}
	}
	return n
}
