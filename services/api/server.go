package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/helo0ks/heloyse4bimestre/services/auth"
	"github.com/helo0ks/heloyse4bimestre/services/catalog"
	"github.com/helo0ks/heloyse4bimestre/services/orders"
	"github.com/helo0ks/heloyse4bimestre/services/people"
	"github.com/helo0ks/heloyse4bimestre/services/reports"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"
)

const (
	rateLimitExpiresIn = 15 * time.Minute
	shutdownTimeout    = 10 * time.Second
)

// Pinger é a dependência usada pelo health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// handlers agrupa os handlers de cada domínio montados no roteador
type handlers struct {
	products *catalog.ProductHandler
	people   *people.Handler
	orders   *orders.OrderHandler
	reports  *reports.ReportHandler
}

func newHandlers(cfg Config, pool *pgxpool.Pool, reportsDB *sqlx.DB, tel *telemetry) (handlers, error) {
	tracer := tel.tracerProvider.Tracer(cfg.ServiceName)
	meter := tel.meterProvider.Meter(cfg.ServiceName)

	productRepo := catalog.NewPostgresProductRepository(pool)
	peopleRepo := people.NewPostgresRepository(pool)
	orderRepo := orders.NewPostgresRepository(pool)

	var pricePolicy orders.PricePolicy = orders.TrustClientPrice{}
	if cfg.EnforceCatalogPrice {
		pricePolicy = orders.CatalogPrice{}
	}
	checkout, err := orders.NewCheckoutUseCase(orderRepo, nil, pricePolicy, tracer, meter)
	if err != nil {
		return handlers{}, err
	}

	return handlers{
		products: catalog.NewProductHandler(catalog.NewProductUseCase(productRepo, cfg.MaxImageBytes), tracer),
		people: people.NewHandler(
			people.NewPersonUseCase(peopleRepo, cfg.BcryptCost),
			people.NewPositionUseCase(peopleRepo),
			people.NewEmployeeUseCase(peopleRepo),
			tracer,
		),
		orders: orders.NewOrderHandler(
			checkout,
			orders.NewOrderUseCase(orderRepo),
			orders.NewLookupUseCase(orderRepo),
			tracer,
		),
		reports: reports.NewReportHandler(reports.NewReportUseCase(reports.NewSQLRepository(reportsDB)), tracer),
	}, nil
}

// newRouter monta o roteador com middlewares globais e os grupos de rotas
func newRouter(cfg Config, verifier auth.Verifier, db Pinger, h handlers) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxImageBytes + 1<<20

	r.Use(gin.Recovery())
	r.Use(requestID())
	r.Use(requestLogger())
	r.Use(corsMiddleware(cfg))
	r.Use(newIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst, rateLimitExpiresIn).Middleware())
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	// Health check
	r.GET("/health", healthCheck(cfg.ServiceName, db))

	// Vitrine
	h.products.RegisterPublic(r)
	h.orders.RegisterPublic(r)

	// Painel administrativo
	admin := r.Group("/admin", auth.RequireIdentity(verifier), auth.RequireRole(auth.RoleAdmin))
	h.products.RegisterAdmin(admin)
	h.people.RegisterAdmin(admin)
	h.reports.RegisterAdmin(admin)

	// Pedidos: clientes autenticados, CRUD só para administradores
	ordersGroup := r.Group("/orders", auth.RequireIdentity(verifier))
	h.orders.Register(ordersGroup, auth.RequireRole(auth.RoleAdmin))

	return r
}

func healthCheck(service string, db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			log.WithError(err).Warn("health check: database unreachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": service,
				"error":   "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": service,
		})
	}
}

// serve sobe o servidor HTTP e encerra com elegância quando ctx é cancelado
func serve(ctx context.Context, cfg Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🚀 %s listening on port %s", cfg.ServiceName, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
