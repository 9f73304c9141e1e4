package befood

import (
	"encoding/json"
	"io"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/koi-kart/internal/domain/catalog"
)

// Menu is the category tree returned by the restaurant detail endpoint. The
// same document is used for catalog dump files.
type Menu struct {
	Categories []Category `json:"categories"`
}

// Category is an upstream menu section.
type Category struct {
	ID     int64  `json:"category_id"`
	Name   string `json:"category_name"`
	Active int    `json:"category_active"`
	Items  []Item `json:"items"`
}

// Item is an upstream menu item.
type Item struct {
	ID              int64           `json:"restaurant_item_id"`
	RestaurantID    int64           `json:"restaurant_id"`
	RestaurantName  string          `json:"restaurant_name"`
	Name            string          `json:"item_name"`
	Details         string          `json:"item_details"`
	Image           string          `json:"item_image"`
	ImageCompressed string          `json:"item_image_compressed"`
	Price           decimal.Decimal `json:"price"`
	OldPrice        decimal.Decimal `json:"old_price"`
	Active          int             `json:"is_active"`
	Customize       []Customize     `json:"customize_item"`
}

// Customize is an upstream customization group.
type Customize struct {
	ID         int64             `json:"customize_id"`
	Name       string            `json:"customize_item_name"`
	UpperLimit int               `json:"customize_item_limit"`
	LowerLimit int               `json:"customize_item_lower_limit"`
	Required   bool              `json:"is_required"`
	CheckBox   int               `json:"is_check_box"`
	Options    []CustomizeOption `json:"customize_options"`
}

// CustomizeOption is an upstream customization option.
type CustomizeOption struct {
	ID        int64           `json:"customize_option_id"`
	Name      string          `json:"customize_option_name"`
	IsDefault bool            `json:"is_default"`
	Price     decimal.Decimal `json:"customize_price"`
	Active    *int            `json:"customize_option_active,omitempty"`
}

// DecodeMenu reads a menu document.
func DecodeMenu(r io.Reader) (*Menu, error) {
	var m Menu
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, errors.Wrap(err, "decode menu")
	}
	return &m, nil
}

// Catalog converts the menu into catalog categories. Items without an id are
// dropped; inactive options are kept out of their group.
func (m *Menu) Catalog() []catalog.Category {
	out := make([]catalog.Category, 0, len(m.Categories))
	for _, c := range m.Categories {
		cat := catalog.Category{
			ID:       c.ID,
			Name:     c.Name,
			Active:   c.Active == 1,
			Products: make([]catalog.Product, 0, len(c.Items)),
		}
		for _, it := range c.Items {
			if it.ID == 0 {
				continue
			}
			cat.Products = append(cat.Products, it.product(c.ID))
		}
		out = append(out, cat)
	}
	return out
}

func (it Item) product(categoryID int64) catalog.Product {
	image := it.Image
	if image == "" {
		image = it.ImageCompressed
	}
	p := catalog.Product{
		ID:           it.ID,
		CategoryID:   categoryID,
		Name:         it.Name,
		Details:      it.Details,
		Restaurant:   it.RestaurantName,
		Image:        image,
		Price:        it.Price,
		Active:       it.Active == 1,
		Customizable: make([]catalog.CustomizationGroup, 0, len(it.Customize)),
	}
	for _, g := range it.Customize {
		group := catalog.CustomizationGroup{
			ID:         g.ID,
			Name:       g.Name,
			Required:   g.Required,
			CheckBox:   g.CheckBox == 1,
			LowerLimit: g.LowerLimit,
			UpperLimit: g.UpperLimit,
			Options:    make([]catalog.CustomizationOption, 0, len(g.Options)),
		}
		for _, o := range g.Options {
			if o.Active != nil && *o.Active == 0 {
				continue
			}
			price := o.Price
			if price.IsNegative() {
				price = decimal.Zero
			}
			group.Options = append(group.Options, catalog.CustomizationOption{
				ID:        o.ID,
				Name:      o.Name,
				Price:     price,
				IsDefault: o.IsDefault,
			})
		}
		p.Customizable = append(p.Customizable, group)
	}
	return p
}
