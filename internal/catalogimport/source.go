// Package catalogimport loads menus from the upstream API and dump files,
// drops products already provided by an earlier source and stores the
// result as the catalog cache.
package catalogimport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/koi-kart/internal/befood"
	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// Source yields one menu.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]catalog.Category, error)
}

// MenuFetcher is implemented by befood.Client.
type MenuFetcher interface {
	RestaurantMenu(ctx context.Context, restaurantID string) (*befood.Menu, error)
}

// RestaurantSource fetches a restaurant menu from the upstream API.
type RestaurantSource struct {
	Client       MenuFetcher
	RestaurantID string
}

func (s RestaurantSource) Name() string { return "restaurant:" + s.RestaurantID }

func (s RestaurantSource) Load(ctx context.Context) ([]catalog.Category, error) {
	menu, err := s.Client.RestaurantMenu(ctx, s.RestaurantID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch restaurant %s", s.RestaurantID)
	}
	return menu.Catalog(), nil
}

// FileSource reads a menu dump. Files ending in .gz are gzip compressed.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + filepath.Base(s.Path) }

func (s FileSource) Load(ctx context.Context) (_ []catalog.Category, rerr error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", s.Path)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = errors.Wrapf(err, "close %s", s.Path)
		}
	}()

	var r io.Reader = f
	if strings.HasSuffix(s.Path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", s.Path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	menu, err := befood.DecodeMenu(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", s.Path)
	}
	return menu.Catalog(), nil
}
