package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
)

const instrumentationName = "github.com/xenking/koi-kart/internal/domain/order"

// Carts is the part of the session cart service checkout needs.
type Carts interface {
	Get(ctx context.Context, sessionID string) (cart.Snapshot, error)
	Clear(ctx context.Context, sessionID string) (cart.Snapshot, error)
}

// UpdateRequest replaces the editable fields of an order.
type UpdateRequest struct {
	Customer CustomerInfo
	Status   Status
}

// Service encapsulates order submission and admin editing.
type Service struct {
	orders   Repository
	products catalog.Repository
	carts    Carts
	now      func() time.Time

	tracer        trace.Tracer
	ordersPlaced  metric.Int64Counter
	itemsAppended metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	orders Repository,
	products catalog.Repository,
	carts Carts,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter(instrumentationName)
	placed, err := meter.Int64Counter("koi.orders.placed",
		metric.WithDescription("Number of submitted orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}
	appended, err := meter.Int64Counter("koi.orders.items_appended",
		metric.WithDescription("Number of items appended to existing orders"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "items appended counter")
	}
	return &Service{
		orders:        orders,
		products:      products,
		carts:         carts,
		now:           time.Now,
		tracer:        tp.Tracer(instrumentationName),
		ordersPlaced:  placed,
		itemsAppended: appended,
	}, nil
}

// Submit validates customer data, freezes the cart lines into a new pending
// order and stores it. The cart itself is not touched.
func (s *Service) Submit(ctx context.Context, lines []cart.Line, customer CustomerInfo) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit")
	defer func() { endSpan(span, rerr) }()

	customer = customer.Normalize()
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = FreezeLine(l)
	}
	now := s.now().UTC()
	o := &Order{
		ID:        uuid.New().String(),
		Customer:  customer,
		Items:     items,
		Total:     Subtotal(items).Add(customer.Surcharge),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	span.SetAttributes(
		attribute.String("order.id", o.ID),
		attribute.Int("order.items", len(items)),
	)
	s.ordersPlaced.Add(ctx, 1)
	return o, nil
}

// Checkout submits the session cart as an order and clears the cart once the
// order is stored. A failure to clear is logged; the order stands.
func (s *Service) Checkout(ctx context.Context, sessionID string, customer CustomerInfo) (*Order, error) {
	snap, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	o, err := s.Submit(ctx, snap.Lines, customer)
	if err != nil {
		return nil, err
	}
	if _, err := s.carts.Clear(ctx, sessionID); err != nil {
		zctx.From(ctx).Warn("Clear cart after checkout",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
	}
	return o, nil
}

// List returns orders newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Order, error) {
	if filter.Status != "" {
		if _, err := ParseStatus(string(filter.Status)); err != nil {
			return nil, err
		}
	}
	orders, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	return o, nil
}

// UpdateStatus moves an order to any valid status.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Order, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, id, status); err != nil {
		return nil, errors.Wrapf(err, "update order %s status", id)
	}
	return s.Get(ctx, id)
}

// Update replaces customer fields, status and surcharge. The total becomes
// the stored item subtotal plus the new surcharge.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Update",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer func() { endSpan(span, rerr) }()

	customer := req.Customer.Normalize()
	var failures fieldErrors
	if err := customer.Validate(); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return nil, err
		}
		for name, msg := range ve.Fields {
			failures.add(name, errors.New(msg))
		}
	}
	if _, err := ParseStatus(string(req.Status)); err != nil {
		failures.add(FieldStatus, err)
	}
	if err := failures.err(nil); err != nil {
		return nil, err
	}

	o, err := s.orders.Update(ctx, &Order{
		ID:        id,
		Customer:  customer,
		Status:    req.Status,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "update order %s", id)
	}
	return o, nil
}

// AppendItem resolves a product selection against the current catalog and
// appends it to an existing order. Existing items are never modified; the
// stored total is recomputed by the repository in the same write.
func (s *Service) AppendItem(ctx context.Context, id string, productID int64, quantity int, selection catalog.Selection) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.AppendItem",
		trace.WithAttributes(
			attribute.String("order.id", id),
			attribute.Int64("product.id", productID),
		),
	)
	defer func() { endSpan(span, rerr) }()

	if !cart.ValidQuantity(quantity) {
		return nil, &ValidationError{Fields: map[string]string{
			FieldQuantity: cart.ErrInvalidQuantity.Error(),
		}}
	}
	p, err := s.products.Product(ctx, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", productID)
	}
	if err := p.MissingRequired(selection); err != nil {
		return nil, err
	}
	item := FreezeProduct(p, quantity, selection)
	if n := catalog.CountUnresolved(p.Resolve(selection)); n > 0 {
		zctx.From(ctx).Warn("Unresolved options appended at zero price",
			zap.String("order_id", id),
			zap.Int64("product_id", productID),
			zap.Int("unresolved", n),
		)
	}
	o, err := s.orders.AppendItem(ctx, id, item)
	if err != nil {
		return nil, errors.Wrapf(err, "append item to order %s", id)
	}

	s.itemsAppended.Add(ctx, 1)
	return o, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
