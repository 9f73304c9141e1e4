//go:build integration

package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/koi-kart/internal/domain/auth"
	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
	"github.com/xenking/koi-kart/internal/domain/order"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "koi",
				"POSTGRES_PASSWORD": "koi",
				"POSTGRES_DB":       "koi",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		log.Fatalf("mapped port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://koi:koi@%s:%s/koi?sslmode=disable", host, port.Port())

	// The port opens before the server accepts queries.
	deadline := time.Now().Add(30 * time.Second)
	for {
		testPool, err = NewPool(ctx, dsn)
		if err == nil {
			if err = testPool.Ping(ctx); err == nil {
				break
			}
			testPool.Close()
		}
		if time.Now().After(deadline) {
			log.Fatalf("connect: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
	defer testPool.Close()

	if err := RunMigrations(ctx, testPool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	return m.Run()
}

func testCategories() []catalog.Category {
	return []catalog.Category{
		{
			ID:     7,
			Name:   "Món chính",
			Active: true,
			Products: []catalog.Product{
				{
					ID:         101,
					CategoryID: 7,
					Name:       "Phở Bò",
					Restaurant: "Koi Kitchen",
					Price:      decimal.NewFromInt(75000),
					Active:     true,
					Customizable: []catalog.CustomizationGroup{{
						ID:       1,
						Name:     "Size",
						Required: true,
						Options: []catalog.CustomizationOption{
							{ID: 10, Name: "Regular", Price: decimal.Zero, IsDefault: true},
							{ID: 11, Name: "Large", Price: decimal.NewFromInt(10000)},
						},
					}},
				},
			},
		},
		{
			ID:     8,
			Name:   "Đồ uống",
			Active: true,
			Products: []catalog.Product{
				{ID: 202, CategoryID: 8, Name: "Trà đá", Price: decimal.NewFromInt(5000), Active: true},
				{ID: 101, CategoryID: 8, Name: "Duplicate", Price: decimal.NewFromInt(1)},
			},
		},
	}
}

func TestCatalogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCatalogRepository(testPool)

	require.NoError(t, repo.ReplaceAll(ctx, testCategories()))

	empty, err := repo.Empty(ctx)
	require.NoError(t, err)
	assert.False(t, empty)

	cats, err := repo.Categories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Món chính", cats[0].Name)
	require.Len(t, cats[1].Products, 1, "duplicate product id is skipped")

	p, err := repo.Product(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, "Phở Bò", p.Name)
	assert.True(t, decimal.NewFromInt(75000).Equal(p.Price))
	require.Len(t, p.Customizable, 1)
	assert.True(t, p.Customizable[0].Required)
	assert.True(t, decimal.NewFromInt(10000).Equal(p.Customizable[0].Options[1].Price))

	_, err = repo.Product(ctx, 999)
	require.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, repo.ReplaceAll(ctx, testCategories()[1:]))
	products, err := repo.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 2)
}

func TestCartRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(testPool, time.Hour)

	c, err := repo.Load(ctx, "fresh-session")
	require.NoError(t, err)
	assert.Zero(t, c.Totals().Lines)

	pho := testCategories()[0].Products[0]
	_, err = c.Add(&pho, 3, catalog.Selection{1: 11})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "s-1", c))

	loaded, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Totals().Items)
	assert.True(t, decimal.NewFromInt(255000).Equal(loaded.Totals().Price))

	loaded.Clear()
	require.NoError(t, repo.Save(ctx, "s-1", loaded))
	again, err := repo.Load(ctx, "s-1")
	require.NoError(t, err)
	assert.Zero(t, again.Totals().Lines)
}

func TestCartRepository_Expiry(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(testPool, time.Minute)

	tea := testCategories()[1].Products[0]
	c := cart.New()
	_, err := c.Add(&tea, 1, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, "old-session", c))

	repo.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	loaded, err := repo.Load(ctx, "old-session")
	require.NoError(t, err)
	assert.Zero(t, loaded.Totals().Lines)

	n, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	pho := testCategories()[0].Products[0]
	o := &order.Order{
		ID: "11111111-1111-1111-1111-111111111111",
		Customer: order.CustomerInfo{
			Name:      "Nguyễn Văn A",
			Phone:     "0901234567",
			Address:   "12 Lê Lợi",
			Surcharge: decimal.NewFromInt(15000),
		},
		Items:     []order.Item{order.FreezeProduct(&pho, 3, catalog.Selection{1: 11})},
		Total:     decimal.NewFromInt(270000),
		Status:    order.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nguyễn Văn A", got.Customer.Name)
	assert.True(t, decimal.NewFromInt(270000).Equal(got.Total))
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Large", got.Items[0].Options[0].OptionName)
	assert.True(t, decimal.NewFromInt(255000).Equal(got.Items[0].Total))

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusProcessing))
	require.ErrorIs(t, repo.UpdateStatus(ctx, "missing", order.StatusProcessing), order.ErrNotFound)

	extra := order.FreezeProduct(&pho, 1, catalog.Selection{1: 10})
	appended, err := repo.AppendItem(ctx, o.ID, extra)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(345000).Equal(appended.Total))

	got, err = repo.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, got.Status)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Large", got.Items[0].Options[0].OptionName)
	assert.Equal(t, "Regular", got.Items[1].Options[0].OptionName)
	assert.True(t, decimal.NewFromInt(345000).Equal(got.Total))

	_, err = repo.AppendItem(ctx, "missing", extra)
	require.ErrorIs(t, err, order.ErrNotFound)

	got.Customer.Phone = "0912345678"
	got.Customer.Surcharge = decimal.Zero
	// A stale total on the input is ignored.
	got.Total = decimal.NewFromInt(1)
	updated, err := repo.Update(ctx, got)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(330000).Equal(updated.Total))

	_, err = repo.Update(ctx, &order.Order{ID: "missing", Status: order.StatusPending})
	require.ErrorIs(t, err, order.ErrNotFound)

	processing, err := repo.List(ctx, order.Filter{Status: order.StatusProcessing})
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, "0912345678", processing[0].Customer.Phone)

	pending, err := repo.List(ctx, order.Filter{Status: order.StatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)
}

func newTestOrder(t *testing.T, repo *OrderRepository, id string, items ...order.Item) *order.Order {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	o := &order.Order{
		ID: id,
		Customer: order.CustomerInfo{
			Name:      "Lê Văn C",
			Phone:     "0901234567",
			Address:   "1 Hai Bà Trưng",
			Surcharge: decimal.NewFromInt(15000),
		},
		Items:     items,
		Total:     order.Subtotal(items).Add(decimal.NewFromInt(15000)),
		Status:    order.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, repo.Create(context.Background(), o))
	return o
}

func TestOrderRepository_ConcurrentAppendKeepsTotal(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(testPool)
	pho := testCategories()[0].Products[0]
	tea := testCategories()[1].Products[0]

	o := newTestOrder(t, repo, "22222222-2222-2222-2222-222222222222",
		order.FreezeProduct(&pho, 1, catalog.Selection{1: 10}))

	const appends = 20
	var wg sync.WaitGroup
	errs := make(chan error, appends+1)
	for i := range appends {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AppendItem(ctx, o.ID, order.FreezeProduct(&tea, i%3+1, nil))
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		c := o.Customer
		c.Surcharge = decimal.NewFromInt(20000)
		_, err := repo.Update(ctx, &order.Order{ID: o.ID, Customer: c, Status: order.StatusProcessing, UpdatedAt: time.Now()})
		errs <- err
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, appends+1)
	assert.True(t, decimal.NewFromInt(20000).Equal(got.Customer.Surcharge))
	want := got.Subtotal().Add(got.Customer.Surcharge)
	assert.True(t, want.Equal(got.Total), "total %s, want %s", got.Total, want)
}

func TestOrderRepository_CatalogChangeKeepsFrozenItems(t *testing.T) {
	ctx := context.Background()
	catalogRepo := NewCatalogRepository(testPool)
	orders := NewOrderRepository(testPool)

	require.NoError(t, catalogRepo.ReplaceAll(ctx, testCategories()))
	pho, err := catalogRepo.Product(ctx, 101)
	require.NoError(t, err)

	o := newTestOrder(t, orders, "33333333-3333-3333-3333-333333333333",
		order.FreezeProduct(pho, 3, catalog.Selection{1: 11}))

	changed := testCategories()
	changed[0].Products[0].Name = "Phở Bò Đặc Biệt"
	changed[0].Products[0].Price = decimal.NewFromInt(99000)
	changed[0].Products[0].Customizable[0].Options[1].Price = decimal.NewFromInt(20000)
	require.NoError(t, catalogRepo.ReplaceAll(ctx, changed))

	repriced, err := catalogRepo.Product(ctx, 101)
	require.NoError(t, err)
	require.True(t, decimal.NewFromInt(99000).Equal(repriced.Price))

	got, err := orders.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	item := got.Items[0]
	assert.Equal(t, "Phở Bò", item.ProductName)
	assert.True(t, decimal.NewFromInt(75000).Equal(item.Price))
	assert.True(t, decimal.NewFromInt(85000).Equal(item.UnitPrice))
	assert.True(t, decimal.NewFromInt(10000).Equal(item.Options[0].Price))
	assert.True(t, decimal.NewFromInt(255000).Equal(item.Total))
	assert.True(t, decimal.NewFromInt(270000).Equal(got.Total))
}

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	a := auth.NewAuthenticator(NewAPIKeyRepository(testPool), []byte("pepper"))

	require.NoError(t, a.Register(ctx, "admin", "Admin", "s3cret", auth.ScopeOrdersAdmin))

	k, err := a.Authenticate(ctx, "s3cret", auth.ScopeOrdersAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin", k.ID)

	_, err = a.Authenticate(ctx, "nope", auth.ScopeOrdersAdmin)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}
