package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/koi-kart/internal/domain/auth"
	"github.com/xenking/koi-kart/internal/domain/cart"
	"github.com/xenking/koi-kart/internal/domain/order"
	"github.com/xenking/koi-kart/internal/handler"
	"github.com/xenking/koi-kart/internal/storage/postgres"
	"github.com/xenking/koi-kart/pkg/health"
	"github.com/xenking/koi-kart/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	cartRepo := postgres.NewCartRepository(pool, cfg.Session.TTL)
	orderRepo := postgres.NewOrderRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	seeded, err := SeedCatalog(ctx, catalogRepo)
	if err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if seeded {
		lg.Info("Catalog cache was empty, loaded bundled catalog")
	}

	// Domain services.
	cartService, err := cart.NewService(cartRepo, catalogRepo, m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create cart service")
	}
	orderService, err := order.NewService(orderRepo, catalogRepo, cartService, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create order service")
	}
	authn := auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper))

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	go purgeCarts(ctx, lg, cartRepo, cfg.Session.PurgeInterval)

	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		catalogRepo,
		cartService,
		orderService,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, handler.RequireAPIKey(authn, auth.ScopeOrdersAdmin))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           chain(ctx, mux, m, cfg),
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
	return serve(ctx, lg, server, healthSvc, cfg.Graceful)
}

// chain wraps the router with the middleware stack, outermost first.
func chain(ctx context.Context, mux *http.ServeMux, m *app.Telemetry, cfg *Config) http.Handler {
	route := httpmiddleware.MakeRouteFinder(mux)
	return httpmiddleware.Wrap(mux,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(zctx.From(ctx)),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", handler.APIKeyHeader, httpmiddleware.SessionHeader},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
			Skip:   isProbe,
		}),
		httpmiddleware.Session(httpmiddleware.SessionConfig{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.Secure,
		}),
		httpmiddleware.Instrument("koi-api", route, m),
		httpmiddleware.LogRequests(route),
		httpmiddleware.Labeler(route),
	)
}

// serve runs server until ctx is done. Readiness drops before in-flight
// requests are drained.
func serve(ctx context.Context, lg *zap.Logger, server *http.Server, probes *health.Health, g GracefulConfig) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		<-ctx.Done()

		probes.SetReady(false)
		lg.Info("Not ready, draining", zap.Duration("delay", g.ReadinessDelay))
		time.Sleep(g.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.ShutdownTimeout)
		defer cancel()
		lg.Info("Shutting down server", zap.Duration("timeout", g.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		probes.Stop()
	}()

	lg.Info("Server listening", zap.String("addr", server.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-stopped
	return nil
}

func isProbe(r *http.Request) bool {
	return !strings.HasPrefix(r.URL.Path, "/api/")
}

// CartPurger deletes carts that outlived the session TTL.
type CartPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeCarts deletes expired carts every interval until ctx is done.
func purgeCarts(ctx context.Context, lg *zap.Logger, p CartPurger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				lg.Warn("Purge expired carts", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("Purged expired carts", zap.Int64("count", n))
			}
		}
	}
}
