package app

import (
	"bytes"
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/koi-kart/db"
	"github.com/xenking/koi-kart/internal/befood"
	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// CatalogStore is a catalog repository that can report whether it is empty.
type CatalogStore interface {
	catalog.Repository
	Empty(ctx context.Context) (bool, error)
}

// BundledCatalog decodes the menu shipped with the binary.
func BundledCatalog() ([]catalog.Category, error) {
	menu, err := befood.DecodeMenu(bytes.NewReader(db.SeedCatalog))
	if err != nil {
		return nil, errors.Wrap(err, "decode bundled catalog")
	}
	return menu.Catalog(), nil
}

// SeedCatalog stores the bundled catalog when the catalog cache is empty. It
// reports whether anything was stored.
func SeedCatalog(ctx context.Context, store CatalogStore) (bool, error) {
	empty, err := store.Empty(ctx)
	if err != nil {
		return false, errors.Wrap(err, "check catalog")
	}
	if !empty {
		return false, nil
	}
	categories, err := BundledCatalog()
	if err != nil {
		return false, err
	}
	if err := store.ReplaceAll(ctx, categories); err != nil {
		return false, errors.Wrap(err, "store bundled catalog")
	}
	return true, nil
}
