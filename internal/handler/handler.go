// Package handler exposes the catalog, session cart and order services over
// HTTP.
package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
	"github.com/xenking/koi-kart/internal/domain/order"
	"github.com/xenking/koi-kart/pkg/httpmiddleware"
)

// Carts is the session cart service.
type Carts interface {
	Get(ctx context.Context, sessionID string) (cart.Snapshot, error)
	Add(ctx context.Context, sessionID string, productID int64, quantity int, selection catalog.Selection) (cart.Snapshot, error)
	UpdateQuantity(ctx context.Context, sessionID, key string, quantity int) (cart.Snapshot, error)
	Remove(ctx context.Context, sessionID, key string) (cart.Snapshot, error)
	Clear(ctx context.Context, sessionID string) (cart.Snapshot, error)
}

// Orders is the order service.
type Orders interface {
	Checkout(ctx context.Context, sessionID string, customer order.CustomerInfo) (*order.Order, error)
	List(ctx context.Context, filter order.Filter) ([]order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) (*order.Order, error)
	Update(ctx context.Context, id string, req order.UpdateRequest) (*order.Order, error)
	AppendItem(ctx context.Context, id string, productID int64, quantity int, selection catalog.Selection) (*order.Order, error)
}

// Config holds non-dependency settings of the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative product image paths. When empty
	// image paths are returned as stored.
	ImageBaseURL string
}

// Handler serves the public storefront API and the admin order API.
type Handler struct {
	catalog      catalog.Repository
	carts        Carts
	orders       Orders
	imageBaseURL string
}

// New creates a Handler.
func New(cfg Config, products catalog.Repository, carts Carts, orders Orders) *Handler {
	return &Handler{
		catalog:      products,
		carts:        carts,
		orders:       orders,
		imageBaseURL: strings.TrimRight(cfg.ImageBaseURL, "/"),
	}
}

// Register adds the API routes to mux. Admin routes are wrapped with admin.
// Cart and checkout routes expect the session middleware to run first.
func (h *Handler) Register(mux *http.ServeMux, admin httpmiddleware.Middleware) {
	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)

	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/items", h.addCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{key}", h.updateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{key}", h.removeCartItem)

	mux.HandleFunc("POST /api/orders", h.checkout)

	mux.Handle("GET /api/orders", admin(http.HandlerFunc(h.listOrders)))
	mux.Handle("GET /api/orders/{id}", admin(http.HandlerFunc(h.getOrder)))
	mux.Handle("PATCH /api/orders/{id}", admin(http.HandlerFunc(h.updateOrder)))
	mux.Handle("PUT /api/orders/{id}/status", admin(http.HandlerFunc(h.updateOrderStatus)))
	mux.Handle("POST /api/orders/{id}/items", admin(http.HandlerFunc(h.appendOrderItem)))
}

func (h *Handler) imageURL(path string) string {
	if h.imageBaseURL == "" || path == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return h.imageBaseURL + "/" + strings.TrimLeft(path, "/")
}
