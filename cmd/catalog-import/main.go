package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"

	"github.com/xenking/koi-kart/internal/befood"
	"github.com/xenking/koi-kart/internal/catalogimport"
	"github.com/xenking/koi-kart/internal/storage/postgres"
)

// listFlag collects a repeatable, comma separated flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

func main() {
	var (
		restaurants listFlag
		files       listFlag
		databaseURL string
		concurrency int
		dryRun      bool
		upstream    befood.Config
	)

	flag.Var(&restaurants, "restaurant", "restaurant id to fetch from the upstream API (repeatable, comma separated)")
	flag.Var(&files, "file", "menu dump file, .json or .json.gz (repeatable, comma separated)")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&concurrency, "concurrency", 4, "sources loaded in parallel")
	flag.BoolVar(&dryRun, "dry-run", false, "load and deduplicate without writing the catalog")
	flag.StringVar(&upstream.BaseURL, "upstream-url", befood.DefaultBaseURL, "upstream API base URL")
	flag.StringVar(&upstream.Token, "upstream-token", "", "upstream API bearer token (or KOI_UPSTREAM_TOKEN env)")
	flag.DurationVar(&upstream.Timeout, "upstream-timeout", 15*time.Second, "upstream request timeout")
	flag.Float64Var(&upstream.Latitude, "lat", 10.77253621500006, "customer latitude sent upstream")
	flag.Float64Var(&upstream.Longitude, "lon", 106.69798153800008, "customer longitude sent upstream")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if upstream.Token == "" {
		upstream.Token = os.Getenv("KOI_UPSTREAM_TOKEN")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, upstream, restaurants, files, databaseURL, concurrency, dryRun); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(
	ctx context.Context,
	upstream befood.Config,
	restaurants, files []string,
	databaseURL string,
	concurrency int,
	dryRun bool,
) error {
	var sources []catalogimport.Source
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
		sources = append(sources, catalogimport.FileSource{Path: f})
	}
	if len(restaurants) > 0 {
		client := befood.NewClient(upstream, otel.GetTracerProvider())
		for _, id := range restaurants {
			sources = append(sources, catalogimport.RestaurantSource{Client: client, RestaurantID: id})
		}
	}
	if len(sources) == 0 {
		return errors.New("nothing to import: pass --restaurant or --file")
	}

	im := &catalogimport.Importer{
		Logger:      slog.Default(),
		Concurrency: concurrency,
		DryRun:      dryRun,
	}
	if !dryRun {
		slog.Info("connecting to database")
		pool, err := postgres.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		im.Store = postgres.NewCatalogRepository(pool)
	}

	stats, err := im.Run(ctx, sources)
	if err != nil {
		return err
	}
	slog.Info("catalog imported",
		slog.Int("sources", stats.Sources),
		slog.Int("categories", stats.Categories),
		slog.Int("products", stats.Products),
		slog.Int("duplicates", stats.Duplicates),
	)
	return nil
}
