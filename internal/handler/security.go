package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/koi-kart/internal/domain/auth"
	"github.com/xenking/koi-kart/pkg/httpmiddleware"
)

// APIKeyHeader carries the admin API key.
const APIKeyHeader = "api_key"

// RequireAPIKey rejects requests whose api_key header does not resolve to a
// key with scope. The authenticated key is stored in the request context.
func RequireAPIKey(a *auth.Authenticator, scope string) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, err := a.Authenticate(r.Context(), r.Header.Get(APIKeyHeader), scope)
			if err != nil {
				fail(w, r, err)
				return
			}
			ctx := auth.WithKey(r.Context(), key)
			ctx = zctx.With(ctx, zap.String("api_key_id", key.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
