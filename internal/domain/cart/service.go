package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// Storage persists carts per session.
type Storage interface {
	// Load returns the saved cart of a session, or an empty cart when the
	// session has none.
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
}

const instrumentationName = "github.com/xenking/koi-kart/internal/domain/cart"

// Service applies cart mutations to session carts. Every successful mutation
// is followed by an explicit Save; when the save fails the stored cart is
// left as it was.
type Service struct {
	storage  Storage
	products catalog.Repository

	cartItems metric.Int64Histogram
	cartValue metric.Float64Histogram
}

// NewService creates a cart Service. Totals of every saved mutation are
// recorded as histograms on mp.
func NewService(storage Storage, products catalog.Repository, mp metric.MeterProvider) (*Service, error) {
	meter := mp.Meter(instrumentationName)
	items, err := meter.Int64Histogram("koi.cart.items",
		metric.WithDescription("Item count of a cart after a saved mutation"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cart items histogram")
	}
	value, err := meter.Float64Histogram("koi.cart.value",
		metric.WithDescription("Total price of a cart after a saved mutation"),
		metric.WithUnit("VND"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "cart value histogram")
	}
	return &Service{
		storage:   storage,
		products:  products,
		cartItems: items,
		cartValue: value,
	}, nil
}

// Get returns the session cart.
func (s *Service) Get(ctx context.Context, sessionID string) (Snapshot, error) {
	c, err := s.storage.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load cart")
	}
	return c.Snapshot(), nil
}

// Add looks the product up in the catalog and adds it to the session cart.
// Required customization groups must be covered by the selection.
func (s *Service) Add(ctx context.Context, sessionID string, productID int64, quantity int, selection catalog.Selection) (Snapshot, error) {
	if !ValidQuantity(quantity) {
		return Snapshot{}, ErrInvalidQuantity
	}
	p, err := s.products.Product(ctx, productID)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "get product %d", productID)
	}
	if err := p.MissingRequired(selection); err != nil {
		return Snapshot{}, err
	}

	return s.mutate(ctx, sessionID, func(c *Cart) error {
		if _, err := c.Add(p, quantity, selection); err != nil {
			return err
		}
		key, _ := NewKey(p.ID, selection)
		if l, ok := c.Line(key.String()); ok {
			if n := catalog.CountUnresolved(l.Options); n > 0 {
				zctx.From(ctx).Warn("Unresolved cart options priced at zero",
					zap.Int64("product_id", p.ID),
					zap.Int("unresolved", n),
				)
			}
		}
		return nil
	})
}

// UpdateQuantity sets the quantity of one line of the session cart.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID, key string, quantity int) (Snapshot, error) {
	if !ValidQuantity(quantity) {
		return Snapshot{}, ErrInvalidQuantity
	}
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		_, err := c.UpdateQuantity(key, quantity)
		return err
	})
}

// Remove deletes one line of the session cart.
func (s *Service) Remove(ctx context.Context, sessionID, key string) (Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		_, err := c.Remove(key)
		return err
	})
}

// Clear empties the session cart.
func (s *Service) Clear(ctx context.Context, sessionID string) (Snapshot, error) {
	return s.mutate(ctx, sessionID, func(c *Cart) error {
		c.Clear()
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(c *Cart) error) (Snapshot, error) {
	c, err := s.storage.Load(ctx, sessionID)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "load cart")
	}

	var (
		totals  Totals
		changed bool
	)
	unsubscribe := c.Subscribe(func(t Totals) {
		totals, changed = t, true
	})
	err = fn(c)
	unsubscribe()
	if err != nil {
		return Snapshot{}, err
	}

	if err := s.storage.Save(ctx, sessionID, c); err != nil {
		return Snapshot{}, errors.Wrap(err, "save cart")
	}
	if changed {
		s.cartItems.Record(ctx, int64(totals.Items))
		s.cartValue.Record(ctx, totals.Price.InexactFloat64())
	}
	return c.Snapshot(), nil
}
