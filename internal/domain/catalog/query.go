package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/go-faster/errors"
)

// Product table page sizes. Larger PerPage values are clamped to MaxPerPage.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// uncategorized is the category label for products outside every category.
const uncategorized = "Không có danh mục"

// SortField names a sortable product table column.
type SortField string

const (
	SortNone       SortField = ""
	SortName       SortField = "name"
	SortCategory   SortField = "category"
	SortRestaurant SortField = "restaurant"
	SortPrice      SortField = "price"
	SortActive     SortField = "active"
)

// ErrInvalidSortField is returned for an unknown sort column.
var ErrInvalidSortField = errors.New("invalid sort field")

// ParseSortField validates a sort column name.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case SortNone, SortName, SortCategory, SortRestaurant, SortPrice, SortActive:
		return f, nil
	default:
		return SortNone, errors.Wrapf(ErrInvalidSortField, "%q", s)
	}
}

// Query filters, sorts and paginates the product table.
type Query struct {
	Search  string
	Sort    SortField
	Desc    bool
	Page    int
	PerPage int
}

// Row is a product together with the name of the category containing it.
type Row struct {
	Product  Product
	Category string
}

// Page is one page of query results.
type Page struct {
	Rows       []Row
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// Apply runs the query over the given categories. Pages are 1-based; a page
// past the end yields no rows.
func (q Query) Apply(categories []Category) Page {
	rows := make([]Row, 0)
	for _, c := range categories {
		for _, p := range c.Products {
			rows = append(rows, Row{Product: p, Category: c.Name})
		}
	}
	for i := range rows {
		if rows[i].Category == "" {
			rows[i].Category = uncategorized
		}
	}

	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		rows = slices.DeleteFunc(rows, func(r Row) bool {
			return !r.matches(term)
		})
	}

	if cmpFn := q.comparator(); cmpFn != nil {
		slices.SortStableFunc(rows, cmpFn)
	}

	perPage := q.PerPage
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	page := max(q.Page, 1)

	out := Page{
		Total:      len(rows),
		Page:       page,
		PerPage:    perPage,
		TotalPages: (len(rows) + perPage - 1) / perPage,
	}
	if page > out.TotalPages {
		out.Rows = []Row{}
		return out
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(rows))
	out.Rows = rows[start:end]
	return out
}

func (r Row) matches(term string) bool {
	for _, s := range []string{r.Product.Name, r.Product.Details, r.Product.Restaurant, r.Category} {
		if strings.Contains(strings.ToLower(s), term) {
			return true
		}
	}
	return false
}

func (q Query) comparator() func(a, b Row) int {
	var fn func(a, b Row) int
	switch q.Sort {
	case SortName:
		fn = func(a, b Row) int { return strings.Compare(a.Product.Name, b.Product.Name) }
	case SortCategory:
		fn = func(a, b Row) int { return strings.Compare(a.Category, b.Category) }
	case SortRestaurant:
		fn = func(a, b Row) int { return strings.Compare(a.Product.Restaurant, b.Product.Restaurant) }
	case SortPrice:
		fn = func(a, b Row) int { return a.Product.Price.Cmp(b.Product.Price) }
	case SortActive:
		fn = func(a, b Row) int { return cmp.Compare(boolRank(a.Product.Active), boolRank(b.Product.Active)) }
	default:
		return nil
	}
	if q.Desc {
		return func(a, b Row) int { return fn(b, a) }
	}
	return fn
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
