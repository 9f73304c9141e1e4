package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/koi-kart/internal/domain/order"
)

const (
	orderColumns = `id, customer_name, customer_phone, customer_address, items,
		surcharge, surcharge_note, total, status, created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`

	// total is always recomputed from the stored items in the same UPDATE.
	updateOrderSQL = `UPDATE orders SET
		customer_name = $2, customer_phone = $3, customer_address = $4,
		surcharge = $5, surcharge_note = $6, status = $7, updated_at = $8,
		total = (SELECT COALESCE(SUM((i ->> 'total_price')::numeric), 0)
			FROM jsonb_array_elements(items) AS i) + $5
		WHERE id = $1
		RETURNING ` + orderColumns

	appendOrderItemSQL = `UPDATE orders SET
		items = items || $2::jsonb, updated_at = now(),
		total = (SELECT COALESCE(SUM((i ->> 'total_price')::numeric), 0)
			FROM jsonb_array_elements(items || $2::jsonb) AS i) + surcharge
		WHERE id = $1
		RETURNING ` + orderColumns
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Items
// are stored in a JSONB array.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	c := o.Customer
	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, c.Name, c.Phone, c.Address, itemsJSON,
		c.Surcharge, c.SurchargeNote, o.Total, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// List returns orders newest first, optionally filtered by status.
func (r *OrderRepository) List(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return orders, nil
}

// Get returns one order by id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return collectOrder(rows, "getting", id)
}

// UpdateStatus sets the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Update stores customer fields and status of an order and returns the
// stored row. The total is recomputed from the stored items.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) (*order.Order, error) {
	c := o.Customer
	rows, err := r.pool.Query(ctx, updateOrderSQL,
		o.ID, c.Name, c.Phone, c.Address, c.Surcharge, c.SurchargeNote,
		string(o.Status), o.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	return collectOrder(rows, "updating", o.ID)
}

// AppendItem appends item to the stored JSONB array in place, recomputes
// the total and returns the stored row.
func (r *OrderRepository) AppendItem(ctx context.Context, id string, item order.Item) (*order.Order, error) {
	itemJSON, err := json.Marshal([]order.Item{item})
	if err != nil {
		return nil, fmt.Errorf("marshaling order item: %w", err)
	}
	rows, err := r.pool.Query(ctx, appendOrderItemSQL, id, itemJSON)
	if err != nil {
		return nil, fmt.Errorf("appending item to order %q: %w", id, err)
	}
	return collectOrder(rows, "appending item to", id)
}

func collectOrder(rows pgx.Rows, op, id string) (*order.Order, error) {
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("%s order %q: %w", op, id, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		status    string
	)
	if err := row.Scan(
		&o.ID, &o.Customer.Name, &o.Customer.Phone, &o.Customer.Address, &itemsJSON,
		&o.Customer.Surcharge, &o.Customer.SurchargeNote, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("decoding order %q items: %w", o.ID, err)
	}
	return o, nil
}
