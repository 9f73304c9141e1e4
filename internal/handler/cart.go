package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
	"github.com/xenking/koi-kart/pkg/httpmiddleware"
)

func sessionID(r *http.Request) (string, error) {
	id := httpmiddleware.SessionIDFromContext(r.Context())
	if id == "" {
		return "", badRequest("missing session")
	}
	return id, nil
}

func writeCart(w http.ResponseWriter, snap cart.Snapshot) {
	writeJSON(w, http.StatusOK, snap.Encode)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	snap, err := h.carts.Get(r.Context(), sid)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, snap)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	snap, err := h.carts.Clear(r.Context(), sid)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, snap)
}

// itemRequest is the body of add-to-cart and append-to-order requests.
type itemRequest struct {
	ProductID int64
	Quantity  int
	Selection catalog.Selection
}

func decodeItemRequest(w http.ResponseWriter, r *http.Request) (itemRequest, error) {
	req := itemRequest{Quantity: 1, Selection: catalog.Selection{}}
	var hasProduct bool
	err := decodeObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			hasProduct = true
			req.ProductID, err = d.Int64()
		case "quantity":
			req.Quantity, err = d.Int()
		case "selection":
			req.Selection, err = cart.DecodeSelection(d)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return itemRequest{}, err
	}
	if !hasProduct {
		return itemRequest{}, badRequest("productId is required")
	}
	return req, nil
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req, err := decodeItemRequest(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	snap, err := h.carts.Add(r.Context(), sid, req.ProductID, req.Quantity, req.Selection)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, snap)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	var (
		quantity int
		has      bool
	)
	err = decodeObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		has = true
		var err error
		quantity, err = d.Int()
		return err
	})
	if err == nil && !has {
		err = badRequest("quantity is required")
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	snap, err := h.carts.UpdateQuantity(r.Context(), sid, r.PathValue("key"), quantity)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, snap)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	sid, err := sessionID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	snap, err := h.carts.Remove(r.Context(), sid, r.PathValue("key"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCart(w, snap)
}
