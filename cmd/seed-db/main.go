package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/koi-kart/internal/app"
	"github.com/xenking/koi-kart/internal/domain/auth"
	"github.com/xenking/koi-kart/internal/storage/postgres"
)

func main() {
	var (
		databaseURL  string
		apiKey       string
		apiKeyPepper string
		force        bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or KOI_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KOI_API_KEY_PEPPER env)")
	flag.BoolVar(&force, "force-catalog", false, "replace the catalog with the bundled one even when it is not empty")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("KOI_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or KOI_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("KOI_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiKey, apiKeyPepper, force); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiKey, pepper string, force bool) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	catalogRepo := postgres.NewCatalogRepository(pool)
	if force {
		categories, err := app.BundledCatalog()
		if err != nil {
			return err
		}
		if err := catalogRepo.ReplaceAll(ctx, categories); err != nil {
			return errors.Wrap(err, "replace catalog")
		}
		slog.Info("catalog replaced with bundled menu", slog.Int("categories", len(categories)))
	} else {
		seeded, err := app.SeedCatalog(ctx, catalogRepo)
		if err != nil {
			return errors.Wrap(err, "seed catalog")
		}
		slog.Info("catalog checked", slog.Bool("seeded", seeded))
	}

	authn := auth.NewAuthenticator(postgres.NewAPIKeyRepository(pool), []byte(pepper))
	if err := authn.Register(ctx, "admin", "Default admin key", apiKey, auth.ScopeOrdersAdmin); err != nil {
		return errors.Wrap(err, "seed api key")
	}
	slog.Info("upserted API key", slog.String("id", "admin"), slog.String("scope", auth.ScopeOrdersAdmin))

	return nil
}
