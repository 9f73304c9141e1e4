package catalogimport

import (
	"context"
	"log/slog"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// Stats summarizes an import.
type Stats struct {
	Sources    int
	Categories int
	Products   int
	Duplicates int
}

// Importer loads sources concurrently and replaces the catalog cache.
type Importer struct {
	Store       catalog.Repository
	Logger      *slog.Logger
	Concurrency int
	// DryRun skips the final ReplaceAll.
	DryRun bool
}

// Run loads every source, drops duplicate products and stores the result.
// Any source failure aborts the import before the store is touched.
func (im *Importer) Run(ctx context.Context, sources []Source) (Stats, error) {
	if len(sources) == 0 {
		return Stats{}, errors.New("no sources")
	}
	lg := im.Logger
	if lg == nil {
		lg = slog.Default()
	}

	loaded := make([]Loaded, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	if im.Concurrency > 0 {
		g.SetLimit(im.Concurrency)
	}
	for i, src := range sources {
		g.Go(func() error {
			categories, err := src.Load(gctx)
			if err != nil {
				return errors.Wrapf(err, "load %s", src.Name())
			}
			loaded[i] = Loaded{Source: src.Name(), Categories: categories}
			lg.Info("loaded source",
				slog.String("source", src.Name()),
				slog.Int("categories", len(categories)),
				slog.Int("products", len(catalog.Flatten(categories))),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	merged, dropped := Dedup(loaded)
	for _, d := range dropped {
		lg.Warn("duplicate product dropped",
			slog.Int64("product_id", d.ProductID),
			slog.String("source", d.Source),
			slog.String("kept_from", d.KeptFrom),
		)
	}

	stats := Stats{
		Sources:    len(sources),
		Categories: len(merged),
		Products:   len(catalog.Flatten(merged)),
		Duplicates: len(dropped),
	}
	if im.DryRun {
		lg.Info("dry run, catalog not stored")
		return stats, nil
	}
	if err := im.Store.ReplaceAll(ctx, merged); err != nil {
		return Stats{}, errors.Wrap(err, "replace catalog")
	}
	return stats, nil
}
