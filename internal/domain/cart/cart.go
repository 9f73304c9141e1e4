// Package cart implements the shopping cart: line identity, line pricing,
// quantity mutations and per-session persistence.
package cart

import (
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 999

var (
	// ErrInvalidQuantity is returned when a quantity outside
	// [1, MaxQuantity] is requested.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 999")
	// ErrLineNotFound is returned when no line has the given key.
	ErrLineNotFound = errors.New("cart line not found")
)

// ValidQuantity reports whether q is an allowed line quantity.
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxQuantity
}

// ProductRef is the part of a catalog product a cart line keeps.
type ProductRef struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}

// Line is one cart entry.
type Line struct {
	Key       string
	Product   ProductRef
	Quantity  int
	Selection catalog.Selection
	Options   []catalog.ResolvedOption
	UnitPrice decimal.Decimal
	Total     decimal.Decimal
}

func (l *Line) reprice() {
	l.UnitPrice = UnitPrice(l.Product.Price, l.Options)
	l.Total = LineTotal(l.UnitPrice, l.Quantity)
}

func (l Line) clone() Line {
	l.Selection = l.Selection.Clone()
	l.Options = slices.Clone(l.Options)
	return l
}

// Totals are the cart-level aggregates.
type Totals struct {
	Lines int
	Items int
	Price decimal.Decimal
}

// Snapshot is a consistent copy of the cart contents.
type Snapshot struct {
	Lines  []Line
	Totals Totals
}

// Cart is an ordered set of lines keyed by Key. It is safe for concurrent
// use; every mutation is applied atomically and returns the new totals.
type Cart struct {
	mu     sync.Mutex
	lines  []Line
	totals Totals

	subMu   sync.Mutex
	subs    map[int]func(Totals)
	nextSub int
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{totals: Totals{Price: decimal.Zero}}
}

// Restore builds a cart from previously saved lines. Line prices are
// recomputed from the stored product price and options.
func Restore(lines []Line) *Cart {
	c := New()
	for _, l := range lines {
		if !ValidQuantity(l.Quantity) {
			continue
		}
		l = l.clone()
		l.reprice()
		c.lines = append(c.lines, l)
	}
	c.recompute()
	return c
}

// Add puts quantity units of product with the given selection into the cart.
// Adding a configuration already present accumulates its quantity; an
// accumulated quantity above MaxQuantity is rejected and the line is kept.
func (c *Cart) Add(p *catalog.Product, quantity int, selection catalog.Selection) (Totals, error) {
	if !ValidQuantity(quantity) {
		return Totals{}, ErrInvalidQuantity
	}
	key, err := NewKey(p.ID, selection)
	if err != nil {
		return Totals{}, err
	}
	id := key.String()
	ref := ProductRef{ID: p.ID, Name: p.Name, Price: p.Price}
	options := p.Resolve(selection)

	c.mu.Lock()
	if i := c.indexLocked(id); i >= 0 {
		l := &c.lines[i]
		if l.Quantity > MaxQuantity-quantity {
			c.mu.Unlock()
			return Totals{}, ErrInvalidQuantity
		}
		l.Product = ref
		l.Options = options
		l.Quantity += quantity
		l.reprice()
	} else {
		l := Line{
			Key:       id,
			Product:   ref,
			Quantity:  quantity,
			Selection: selection.Clone(),
			Options:   options,
		}
		l.reprice()
		c.lines = append(c.lines, l)
	}
	totals := c.recompute()
	c.mu.Unlock()

	c.notify(totals)
	return totals, nil
}

// UpdateQuantity replaces the quantity of a line. Quantities outside
// [1, MaxQuantity] are rejected and leave the line unchanged.
func (c *Cart) UpdateQuantity(key string, quantity int) (Totals, error) {
	if !ValidQuantity(quantity) {
		return Totals{}, ErrInvalidQuantity
	}

	c.mu.Lock()
	i := c.indexLocked(key)
	if i < 0 {
		c.mu.Unlock()
		return Totals{}, ErrLineNotFound
	}
	c.lines[i].Quantity = quantity
	c.lines[i].reprice()
	totals := c.recompute()
	c.mu.Unlock()

	c.notify(totals)
	return totals, nil
}

// Remove deletes a line.
func (c *Cart) Remove(key string) (Totals, error) {
	c.mu.Lock()
	i := c.indexLocked(key)
	if i < 0 {
		c.mu.Unlock()
		return Totals{}, ErrLineNotFound
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	totals := c.recompute()
	c.mu.Unlock()

	c.notify(totals)
	return totals, nil
}

// Clear empties the cart.
func (c *Cart) Clear() Totals {
	c.mu.Lock()
	c.lines = nil
	totals := c.recompute()
	c.mu.Unlock()

	c.notify(totals)
	return totals
}

// Line returns a copy of the line with the given key.
func (c *Cart) Line(key string) (Line, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexLocked(key)
	if i < 0 {
		return Line{}, false
	}
	return c.lines[i].clone(), true
}

// Totals returns the current aggregates.
func (c *Cart) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

// Snapshot returns a copy of all lines and totals.
func (c *Cart) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]Line, len(c.lines))
	for i, l := range c.lines {
		lines[i] = l.clone()
	}
	return Snapshot{Lines: lines, Totals: c.totals}
}

// Subscribe registers fn to be called with the new totals after every
// mutation. The returned function removes the subscription.
func (c *Cart) Subscribe(fn func(Totals)) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.subs == nil {
		c.subs = make(map[int]func(Totals))
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Cart) notify(t Totals) {
	c.subMu.Lock()
	fns := make([]func(Totals), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(t)
	}
}

func (c *Cart) indexLocked(key string) int {
	return slices.IndexFunc(c.lines, func(l Line) bool { return l.Key == key })
}

// recompute rebuilds the aggregates from scratch. Callers hold c.mu.
func (c *Cart) recompute() Totals {
	t := Totals{Lines: len(c.lines), Price: decimal.Zero}
	for _, l := range c.lines {
		t.Items += l.Quantity
		t.Price = t.Price.Add(l.Total)
	}
	c.totals = t
	return t
}
