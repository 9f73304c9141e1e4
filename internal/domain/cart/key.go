package cart

import (
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// ErrInvalidSelection is returned when a product or selection id is negative.
var ErrInvalidSelection = errors.New("invalid selection")

// Pair is one (group, option) choice of a line key.
type Pair struct {
	GroupID  int64
	OptionID int64
}

// Key identifies a cart line by product and selection. Pairs are sorted by
// group id, so two keys built from equal selections are equal.
type Key struct {
	ProductID int64
	Pairs     []Pair
}

// NewKey builds the line key for a product and its selected options.
func NewKey(productID int64, selection catalog.Selection) (Key, error) {
	if productID < 0 {
		return Key{}, errors.Wrapf(ErrInvalidSelection, "product id %d", productID)
	}
	k := Key{ProductID: productID, Pairs: make([]Pair, 0, len(selection))}
	for _, groupID := range selection.GroupIDs() {
		optionID := selection[groupID]
		if groupID < 0 || optionID < 0 {
			return Key{}, errors.Wrapf(ErrInvalidSelection, "group %d option %d", groupID, optionID)
		}
		k.Pairs = append(k.Pairs, Pair{GroupID: groupID, OptionID: optionID})
	}
	return k, nil
}

// String renders the key as "productId_g1-o1_g2-o2". Ids are non-negative
// base-10 integers, so the rendering is injective.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatInt(k.ProductID, 10))
	b.WriteByte('_')
	for i, p := range k.Pairs {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(strconv.FormatInt(p.GroupID, 10))
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(p.OptionID, 10))
	}
	return b.String()
}
