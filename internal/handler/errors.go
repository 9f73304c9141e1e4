package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/koi-kart/internal/domain/auth"
	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/catalog"
	"github.com/xenking/koi-kart/internal/domain/order"
	"github.com/xenking/koi-kart/pkg/httpmiddleware"
)

// fail maps a service error to its HTTP error response. Unknown errors are
// logged and answered with a generic 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	httpmiddleware.WriteError(w, r, toHTTPError(r, err))
}

func toHTTPError(r *http.Request, err error) httpmiddleware.Error {
	var (
		bad     *badRequestError
		invalid *order.ValidationError
		missing *catalog.MissingOptionsError
	)
	switch {
	case errors.As(err, &bad):
		return httpmiddleware.Error{Code: http.StatusBadRequest, Message: bad.Error()}
	case errors.Is(err, catalog.ErrInvalidSortField):
		return httpmiddleware.Error{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, auth.ErrUnauthorized):
		return httpmiddleware.Error{Code: http.StatusUnauthorized, Message: "unauthorized"}
	case errors.Is(err, auth.ErrForbidden):
		return httpmiddleware.Error{Code: http.StatusForbidden, Message: "forbidden"}
	case errors.Is(err, catalog.ErrNotFound):
		return httpmiddleware.Error{Code: http.StatusNotFound, Message: catalog.ErrNotFound.Error()}
	case errors.Is(err, order.ErrNotFound):
		return httpmiddleware.Error{Code: http.StatusNotFound, Message: order.ErrNotFound.Error()}
	case errors.Is(err, cart.ErrLineNotFound):
		return httpmiddleware.Error{Code: http.StatusNotFound, Message: cart.ErrLineNotFound.Error()}
	case errors.As(err, &invalid):
		return httpmiddleware.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: "invalid order",
			Fields:  invalid.Fields,
		}
	case errors.As(err, &missing):
		return httpmiddleware.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: missing.Error(),
			Fields:  map[string]string{"selection": "required options not selected"},
		}
	case errors.Is(err, cart.ErrInvalidQuantity):
		return httpmiddleware.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
			Fields:  map[string]string{order.FieldQuantity: err.Error()},
		}
	case errors.Is(err, order.ErrInvalidStatus):
		return httpmiddleware.Error{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
			Fields:  map[string]string{order.FieldStatus: err.Error()},
		}
	case errors.Is(err, cart.ErrInvalidSelection), errors.Is(err, order.ErrEmptyCart):
		return httpmiddleware.Error{Code: http.StatusUnprocessableEntity, Message: err.Error()}
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		return httpmiddleware.Error{Code: http.StatusInternalServerError, Message: "internal error"}
	}
}
