package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

const (
	listCategoriesSQL = `SELECT id, name, active FROM categories ORDER BY position, id`

	productColumns = `p.id, p.category_id, p.name, p.details, p.restaurant, p.image, p.price, p.active, p.customizable`

	listProductsSQL = `SELECT ` + productColumns + `
		FROM products p JOIN categories c ON c.id = p.category_id
		ORDER BY c.position, c.id, p.position, p.id`

	getProductSQL = `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	insertCategorySQL = `INSERT INTO categories (id, name, active, position) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`

	insertProductSQL = `INSERT INTO products
		(id, category_id, name, details, restaurant, image, price, active, customizable, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository stores the cached upstream catalog.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// groupDoc is the JSONB form of a customization group.
type groupDoc struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Required   bool        `json:"required"`
	CheckBox   bool        `json:"check_box"`
	LowerLimit int         `json:"lower_limit"`
	UpperLimit int         `json:"upper_limit"`
	Options    []optionDoc `json:"options"`
}

type optionDoc struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	IsDefault bool            `json:"is_default"`
}

func marshalGroups(groups []catalog.CustomizationGroup) ([]byte, error) {
	docs := make([]groupDoc, len(groups))
	for i, g := range groups {
		d := groupDoc{
			ID:         g.ID,
			Name:       g.Name,
			Required:   g.Required,
			CheckBox:   g.CheckBox,
			LowerLimit: g.LowerLimit,
			UpperLimit: g.UpperLimit,
			Options:    make([]optionDoc, len(g.Options)),
		}
		for j, o := range g.Options {
			d.Options[j] = optionDoc{ID: o.ID, Name: o.Name, Price: o.Price, IsDefault: o.IsDefault}
		}
		docs[i] = d
	}
	return json.Marshal(docs)
}

func unmarshalGroups(data []byte) ([]catalog.CustomizationGroup, error) {
	var docs []groupDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, err
	}
	groups := make([]catalog.CustomizationGroup, len(docs))
	for i, d := range docs {
		g := catalog.CustomizationGroup{
			ID:         d.ID,
			Name:       d.Name,
			Required:   d.Required,
			CheckBox:   d.CheckBox,
			LowerLimit: d.LowerLimit,
			UpperLimit: d.UpperLimit,
			Options:    make([]catalog.CustomizationOption, len(d.Options)),
		}
		for j, o := range d.Options {
			g.Options[j] = catalog.CustomizationOption{ID: o.ID, Name: o.Name, Price: o.Price, IsDefault: o.IsDefault}
		}
		groups[i] = g
	}
	return groups, nil
}

// Categories returns all categories with their products, in menu order.
func (r *CatalogRepository) Categories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	categories, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Category, error) {
		var c catalog.Category
		err := row.Scan(&c.ID, &c.Name, &c.Active)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}

	products, err := r.Products(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[int64]int, len(categories))
	for i, c := range categories {
		index[c.ID] = i
	}
	for _, p := range products {
		if i, ok := index[p.CategoryID]; ok {
			categories[i].Products = append(categories[i].Products, p)
		}
	}
	return categories, nil
}

// Products returns every product in menu order.
func (r *CatalogRepository) Products(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// Product returns a single product by id.
func (r *CatalogRepository) Product(ctx context.Context, id int64) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// ReplaceAll swaps the whole catalog in one transaction. Products whose id
// was already inserted earlier in the same call are skipped.
func (r *CatalogRepository) ReplaceAll(ctx context.Context, categories []catalog.Category) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog replace: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clearing products: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM categories`); err != nil {
		return fmt.Errorf("clearing categories: %w", err)
	}

	batch := &pgx.Batch{}
	for ci, c := range categories {
		batch.Queue(insertCategorySQL, c.ID, c.Name, c.Active, ci)
		for pi, p := range c.Products {
			groups, err := marshalGroups(p.Customizable)
			if err != nil {
				return fmt.Errorf("marshaling product %d options: %w", p.ID, err)
			}
			batch.Queue(insertProductSQL,
				p.ID, c.ID, p.Name, p.Details, p.Restaurant, p.Image, p.Price, p.Active, groups, pi,
			)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting catalog: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit catalog replace: %w", err)
	}
	return nil
}

// Empty reports whether no product is cached.
func (r *CatalogRepository) Empty(ctx context.Context) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking catalog: %w", err)
	}
	return !exists, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p      catalog.Product
		groups []byte
	)
	if err := row.Scan(
		&p.ID, &p.CategoryID, &p.Name, &p.Details, &p.Restaurant, &p.Image, &p.Price, &p.Active, &groups,
	); err != nil {
		return p, err
	}
	customizable, err := unmarshalGroups(groups)
	if err != nil {
		return p, fmt.Errorf("decoding product %d options: %w", p.ID, err)
	}
	p.Customizable = customizable
	return p, nil
}
