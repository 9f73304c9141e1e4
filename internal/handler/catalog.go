package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
	"github.com/xenking/koi-kart/pkg/jxdecimal"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, c := range categories {
			e.ObjStart()
			e.FieldStart("id")
			e.Int64(c.ID)
			e.FieldStart("name")
			e.Str(c.Name)
			e.FieldStart("active")
			e.Bool(c.Active)
			e.FieldStart("products")
			e.ArrStart()
			for i := range c.Products {
				h.encodeProduct(e, &c.Products[i], nil)
			}
			e.ArrEnd()
			e.ObjEnd()
		}
		e.ArrEnd()
	})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	page := q.Apply(categories)

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("items")
		e.ArrStart()
		for i := range page.Rows {
			row := &page.Rows[i]
			h.encodeProduct(e, &row.Product, func(e *jx.Encoder) {
				e.FieldStart("category")
				e.Str(row.Category)
			})
		}
		e.ArrEnd()
		e.FieldStart("total")
		e.Int(page.Total)
		e.FieldStart("page")
		e.Int(page.Page)
		e.FieldStart("perPage")
		e.Int(page.PerPage)
		e.FieldStart("totalPages")
		e.Int(page.TotalPages)
		e.ObjEnd()
	})
}

func parseQuery(r *http.Request) (catalog.Query, error) {
	v := r.URL.Query()
	sort, err := catalog.ParseSortField(v.Get("sort"))
	if err != nil {
		return catalog.Query{}, err
	}
	var desc bool
	switch v.Get("order") {
	case "", "asc":
	case "desc":
		desc = true
	default:
		return catalog.Query{}, badRequest("invalid order %q", v.Get("order"))
	}
	page, err := queryInt(r, "page")
	if err != nil {
		return catalog.Query{}, err
	}
	perPage, err := queryInt(r, "perPage")
	if err != nil {
		return catalog.Query{}, err
	}
	return catalog.Query{
		Search:  v.Get("search"),
		Sort:    sort,
		Desc:    desc,
		Page:    page,
		PerPage: perPage,
	}, nil
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.catalog.Product(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		h.encodeProduct(e, p, func(e *jx.Encoder) {
			e.FieldStart("defaultSelection")
			cart.EncodeSelection(e, p.DefaultSelection())
		})
	})
}

// encodeProduct writes p as an object; extra may append fields.
func (h *Handler) encodeProduct(e *jx.Encoder, p *catalog.Product, extra func(e *jx.Encoder)) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(p.ID)
	e.FieldStart("categoryId")
	e.Int64(p.CategoryID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("details")
	e.Str(p.Details)
	e.FieldStart("restaurant")
	e.Str(p.Restaurant)
	e.FieldStart("image")
	e.Str(h.imageURL(p.Image))
	e.FieldStart("price")
	jxdecimal.Encode(e, p.Price)
	e.FieldStart("active")
	e.Bool(p.Active)
	e.FieldStart("customizable")
	e.ArrStart()
	for _, g := range p.Customizable {
		e.ObjStart()
		e.FieldStart("id")
		e.Int64(g.ID)
		e.FieldStart("name")
		e.Str(g.Name)
		e.FieldStart("required")
		e.Bool(g.Required)
		e.FieldStart("checkBox")
		e.Bool(g.CheckBox)
		e.FieldStart("lowerLimit")
		e.Int(g.LowerLimit)
		e.FieldStart("upperLimit")
		e.Int(g.UpperLimit)
		e.FieldStart("options")
		e.ArrStart()
		for _, o := range g.Options {
			e.ObjStart()
			e.FieldStart("id")
			e.Int64(o.ID)
			e.FieldStart("name")
			e.Str(o.Name)
			e.FieldStart("price")
			jxdecimal.Encode(e, o.Price)
			e.FieldStart("isDefault")
			e.Bool(o.IsDefault)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.ObjEnd()
	}
	e.ArrEnd()
	if extra != nil {
		extra(e)
	}
	e.ObjEnd()
}
