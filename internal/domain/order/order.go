// Package order turns carts into immutable orders and implements the admin
// operations on stored orders.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// Sentinel errors of the order domain.
var (
	ErrNotFound      = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidStatus = errors.New("invalid order status")
)

// Status is the processing state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusPending, StatusProcessing, StatusCompleted, StatusCancelled}

// ParseStatus returns the status named s.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", errors.Wrapf(ErrInvalidStatus, "%q", s)
}

// Option is a customization option frozen into an order item. Options that
// could not be resolved when the item was frozen keep their ids with empty
// names and a zero price.
type Option struct {
	GroupID    int64           `json:"customize_id"`
	GroupName  string          `json:"customize_name"`
	OptionID   int64           `json:"option_id"`
	OptionName string          `json:"option_name"`
	Price      decimal.Decimal `json:"price"`
}

// Item is an order line. It does not change when the catalog does.
type Item struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Options     []Option        `json:"options"`
	Total       decimal.Decimal `json:"total_price"`
}

// CustomerInfo is the contact and surcharge data entered at checkout.
type CustomerInfo struct {
	Name          string
	Phone         string
	Address       string
	Surcharge     decimal.Decimal
	SurchargeNote string
}

// Order is a submitted order.
type Order struct {
	ID        string
	Customer  CustomerInfo
	Items     []Item
	Total     decimal.Decimal
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal is the sum of item totals, surcharge excluded.
func (o *Order) Subtotal() decimal.Decimal {
	return Subtotal(o.Items)
}

// Subtotal sums item totals.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Total)
	}
	return sum
}

// FreezeLine copies a cart line into an order item.
func FreezeLine(l cart.Line) Item {
	return newItem(l.Product.ID, l.Product.Name, l.Product.Price, l.Quantity, l.Options)
}

// FreezeProduct resolves a selection against the current catalog entry and
// freezes the result.
func FreezeProduct(p *catalog.Product, quantity int, selection catalog.Selection) Item {
	return newItem(p.ID, p.Name, p.Price, quantity, p.Resolve(selection))
}

func newItem(productID int64, name string, base decimal.Decimal, quantity int, resolved []catalog.ResolvedOption) Item {
	unit := cart.UnitPrice(base, resolved)
	it := Item{
		ProductID:   productID,
		ProductName: name,
		Quantity:    quantity,
		Price:       base,
		UnitPrice:   unit,
		Options:     make([]Option, 0, len(resolved)),
		Total:       cart.LineTotal(unit, quantity),
	}
	for _, r := range resolved {
		price := r.Price
		if r.Unresolved {
			price = decimal.Zero
		}
		it.Options = append(it.Options, Option{
			GroupID:    r.GroupID,
			GroupName:  r.GroupName,
			OptionID:   r.OptionID,
			OptionName: r.OptionName,
			Price:      price,
		})
	}
	return it
}

// Filter narrows List results.
type Filter struct {
	// Status keeps only orders in this status when set.
	Status Status
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// List returns orders newest first.
	List(ctx context.Context, filter Filter) ([]Order, error)
	Get(ctx context.Context, id string) (*Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Update stores customer fields and status, leaves items untouched and
	// recomputes the total from the stored items and the new surcharge in the
	// same write. It returns the stored order.
	Update(ctx context.Context, o *Order) (*Order, error)
	// AppendItem atomically adds item to the stored items, recomputes the
	// total and returns the stored order.
	AppendItem(ctx context.Context, id string, item Item) (*Order, error)
}
