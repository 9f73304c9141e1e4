package catalogimport

import (
	"slices"
	"strconv"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

const bloomFPR = 0.001

// Loaded is the menu read from one source.
type Loaded struct {
	Source     string
	Categories []catalog.Category
}

// Duplicate is a product dropped because an earlier source already had it.
type Duplicate struct {
	ProductID int64
	Source    string
	KeptFrom  string
}

// index is the pass 1 summary of one source.
type index struct {
	filter *bloom.BloomFilter
	ids    []int64 // sorted
}

func newIndex(categories []catalog.Category) index {
	products := catalog.Flatten(categories)
	filter := bloom.NewWithEstimates(uint(max(len(products), 1)), bloomFPR)
	ids := make([]int64, 0, len(products))
	for _, p := range products {
		filter.AddString(strconv.FormatInt(p.ID, 10))
		ids = append(ids, p.ID)
	}
	slices.Sort(ids)
	return index{filter: filter, ids: ids}
}

func (ix index) has(id int64, key string) bool {
	if !ix.filter.TestString(key) {
		return false
	}
	_, found := slices.BinarySearch(ix.ids, id)
	return found
}

// Dedup merges sources in order. Pass 1 builds a bloom filter per source;
// pass 2 checks every product against the filters of earlier sources,
// confirms hits against their exact ids and drops confirmed duplicates.
// Categories with the same id are merged.
func Dedup(sources []Loaded) ([]catalog.Category, []Duplicate) {
	indexes := make([]index, len(sources))
	for i, s := range sources {
		indexes[i] = newIndex(s.Categories)
	}

	var (
		merged     []catalog.Category
		byCategory = make(map[int64]int)
		dropped    []Duplicate
	)
	for i, s := range sources {
		for _, c := range s.Categories {
			products := make([]catalog.Product, 0, len(c.Products))
			for _, p := range c.Products {
				if j, dup := earlier(indexes[:i], p.ID); dup {
					dropped = append(dropped, Duplicate{
						ProductID: p.ID,
						Source:    s.Source,
						KeptFrom:  sources[j].Source,
					})
					continue
				}
				products = append(products, p)
			}

			if k, ok := byCategory[c.ID]; ok {
				merged[k].Products = append(merged[k].Products, products...)
				continue
			}
			c.Products = products
			byCategory[c.ID] = len(merged)
			merged = append(merged, c)
		}
	}
	return merged, dropped
}

func earlier(indexes []index, id int64) (int, bool) {
	key := strconv.FormatInt(id, 10)
	for j, ix := range indexes {
		if ix.has(id, key) {
			return j, true
		}
	}
	return 0, false
}
