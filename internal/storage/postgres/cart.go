package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/koi-kart/internal/domain/cart"
)

const (
	loadCartSQL = `SELECT data FROM carts WHERE session_id = $1 AND updated_at > $2`

	saveCartSQL = `INSERT INTO carts (session_id, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

	purgeCartsSQL = `DELETE FROM carts WHERE updated_at <= $1`
)

var _ cart.Storage = (*CartRepository)(nil)

// CartRepository keeps session carts as JSONB documents. Carts untouched for
// longer than the TTL are treated as empty.
type CartRepository struct {
	pool *pgxpool.Pool
	ttl  time.Duration
	now  func() time.Time
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool, ttl time.Duration) *CartRepository {
	return &CartRepository{pool: pool, ttl: ttl, now: time.Now}
}

func (r *CartRepository) cutoff() time.Time {
	if r.ttl <= 0 {
		return time.Time{}
	}
	return r.now().Add(-r.ttl)
}

// Load returns the session cart, or an empty cart when none is stored.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, loadCartSQL, sessionID, r.cutoff()).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return cart.New(), nil
		}
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	lines, err := cart.DecodeLines(data)
	if err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	return cart.Restore(lines), nil
}

// Save stores the session cart.
func (r *CartRepository) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	data, err := c.Snapshot().MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding cart: %w", err)
	}
	if _, err := r.pool.Exec(ctx, saveCartSQL, sessionID, data); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	return nil
}

// PurgeExpired deletes carts older than the TTL and returns how many were
// removed.
func (r *CartRepository) PurgeExpired(ctx context.Context) (int64, error) {
	if r.ttl <= 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, purgeCartsSQL, r.cutoff())
	if err != nil {
		return 0, fmt.Errorf("purging carts: %w", err)
	}
	return tag.RowsAffected(), nil
}
