package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/koi-kart/internal/domain/order"
	"github.com/xenking/koi-kart/pkg/jxdecimal"
)

// decodeCustomer reads the customer fields shared by checkout and admin
// update bodies. A missing surcharge is zero. The status field is returned
// separately.
func decodeCustomer(w http.ResponseWriter, r *http.Request) (order.CustomerInfo, string, error) {
	c := order.CustomerInfo{Surcharge: decimal.Zero}
	var status string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case order.FieldName:
			c.Name, err = d.Str()
		case order.FieldPhone:
			c.Phone, err = d.Str()
		case order.FieldAddress:
			c.Address, err = d.Str()
		case order.FieldSurcharge:
			if d.Next() == jx.Null {
				return d.Null()
			}
			c.Surcharge, err = jxdecimal.Decode(d)
		case "surcharge_note":
			c.SurchargeNote, err = d.Str()
		case order.FieldStatus:
			status, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return c, status, err
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	customer, _, err := decodeCustomer(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Checkout(r.Context(), sid, customer)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("id")
		e.Str(o.ID)
		e.ObjEnd()
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var filter order.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := order.ParseStatus(s)
		if err != nil {
			fail(w, r, badRequest("invalid status %q", s))
			return
		}
		filter.Status = st
	}
	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for i := range orders {
			encodeOrder(e, &orders[i])
		}
		e.ArrEnd()
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOrder(w, o)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	customer, status, err := decodeCustomer(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Update(r.Context(), r.PathValue("id"), order.UpdateRequest{
		Customer: customer,
		Status:   order.Status(status),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOrder(w, o)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var status string
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != order.FieldStatus {
			return d.Skip()
		}
		var err error
		status, err = d.Str()
		return err
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	st, err := order.ParseStatus(status)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), st)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOrder(w, o)
}

func (h *Handler) appendOrderItem(w http.ResponseWriter, r *http.Request) {
	req, err := decodeItemRequest(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.AppendItem(r.Context(), r.PathValue("id"), req.ProductID, req.Quantity, req.Selection)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOrder(w, o)
}

func writeOrder(w http.ResponseWriter, o *order.Order) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOrder(e, o)
	})
}

// encodeOrder writes an order with the same snake_case names its stored row
// and request bodies use.
func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart(order.FieldName)
	e.Str(o.Customer.Name)
	e.FieldStart(order.FieldPhone)
	e.Str(o.Customer.Phone)
	e.FieldStart(order.FieldAddress)
	e.Str(o.Customer.Address)
	e.FieldStart(order.FieldSurcharge)
	jxdecimal.Encode(e, o.Customer.Surcharge)
	e.FieldStart("surcharge_note")
	e.Str(o.Customer.SurchargeNote)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		encodeItem(e, it)
	}
	e.ArrEnd()
	e.FieldStart("subtotal")
	jxdecimal.Encode(e, o.Subtotal())
	e.FieldStart("total")
	jxdecimal.Encode(e, o.Total)
	e.FieldStart(order.FieldStatus)
	e.Str(string(o.Status))
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updated_at")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, it order.Item) {
	e.ObjStart()
	e.FieldStart("product_id")
	e.Int64(it.ProductID)
	e.FieldStart("product_name")
	e.Str(it.ProductName)
	e.FieldStart("quantity")
	e.Int(it.Quantity)
	e.FieldStart("price")
	jxdecimal.Encode(e, it.Price)
	e.FieldStart("unit_price")
	jxdecimal.Encode(e, it.UnitPrice)
	e.FieldStart("options")
	e.ArrStart()
	for _, o := range it.Options {
		e.ObjStart()
		e.FieldStart("customize_id")
		e.Int64(o.GroupID)
		e.FieldStart("customize_name")
		e.Str(o.GroupName)
		e.FieldStart("option_id")
		e.Int64(o.OptionID)
		e.FieldStart("option_name")
		e.Str(o.OptionName)
		e.FieldStart("price")
		jxdecimal.Encode(e, o.Price)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total_price")
	jxdecimal.Encode(e, it.Total)
	e.ObjEnd()
}
