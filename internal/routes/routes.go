package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/credisave/internal/analytics"
	"github.com/congo-pay/credisave/internal/auth"
	"github.com/congo-pay/credisave/internal/config"
	"github.com/congo-pay/credisave/internal/credit"
	"github.com/congo-pay/credisave/internal/dashboard"
	"github.com/congo-pay/credisave/internal/identity"
	"github.com/congo-pay/credisave/internal/infra"
	"github.com/congo-pay/credisave/internal/ledger"
	"github.com/congo-pay/credisave/internal/middleware"
	"github.com/congo-pay/credisave/internal/notification"
	"github.com/congo-pay/credisave/internal/savings"
	"github.com/congo-pay/credisave/internal/transactions"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// handlers groups every feature handler plus the pieces routes need directly.
type handlers struct {
	auth          *auth.Handler
	identity      *identity.Handler
	savings       *savings.Handler
	credit        *credit.Handler
	dashboard     *dashboard.Handler
	transactions  *transactions.Handler
	notifications *notification.Handler
	analytics     *analytics.Handler
	authService   *auth.Service
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	h, err := build(context.Background(), d)
	if err != nil {
		return err
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	idem := middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginRateLimit, d.Logger)
	jwt := middleware.JWTAuth(h.authService)

	RegisterAuthRoutes(api, h.auth, h.identity, rateLimiter, jwt)

	protected := api.Group("", jwt)
	RegisterProfileRoutes(protected, h.identity)
	protected.Get("/dashboard", h.dashboard.Get)
	RegisterSavingsRoutes(protected, h.savings, idem)
	RegisterCreditRoutes(protected, h.credit, idem)
	RegisterTransactionRoutes(protected, h.transactions)
	RegisterNotificationRoutes(protected, h.notifications)

	admin := api.Group("/admin", jwt, middleware.RequireRole(identity.RoleAdmin))
	RegisterAdminRoutes(admin, h, idem)

	return nil
}

// build selects Postgres or in-memory backends and constructs every service.
func build(ctx context.Context, d Deps) (handlers, error) {
	var (
		store        ledger.Store
		identityRepo identity.Repository
		inboxRepo    notification.Repository
		source       analytics.Source
	)

	if d.DB != nil {
		store = ledger.NewPostgresStore(d.DB)
		identityRepo = identity.NewPostgresRepository(d.DB)
		inboxRepo = notification.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("no database configured, using in-memory storage")
		store = ledger.NewInMemory()
		identityRepo = identity.NewMemoryRepository()
		inboxRepo = notification.NewMemoryRepository()
	}

	savingsSvc := savings.NewService(store, d.Cfg.DefaultCurrency, d.Logger)
	identitySvc := identity.NewService(identityRepo, savingsSvc, d.Logger)
	if d.Cfg.AdminEmail != "" {
		if _, err := identitySvc.EnsureAdmin(ctx, d.Cfg.AdminEmail, d.Cfg.AdminPassword); err != nil {
			return handlers{}, fmt.Errorf("provision admin: %w", err)
		}
	}

	tokens := auth.NewTokenManager(d.Cfg.JWTSecret, d.Cfg.RefreshSecret, d.Cfg.JWTIssuer,
		d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL)
	authSvc := auth.NewService(tokens, identitySvc, identityRepo, d.Logger)

	inboxSvc := notification.NewService(inboxRepo)
	notifier := notification.Fanout{
		notification.NewInboxNotifier(inboxSvc, d.Logger),
		notification.NewLoggerNotifier(d.Logger),
	}
	creditSvc := credit.NewService(store, borrowerDirectory{repo: identityRepo}, notifier, d.Logger)

	if d.DB != nil {
		source = analytics.NewPostgresSource(d.DB)
	} else {
		source = analytics.NewLedgerSource(store, identitySvc)
	}
	var cache *infra.JSONCache
	if d.Cache != nil {
		cache = infra.NewJSONCache(d.Cache, "analytics:", d.Cfg.AnalyticsCacheTTL)
	}
	analyticsSvc := analytics.NewService(source, cache, d.Logger)

	return handlers{
		auth:          auth.NewHandler(authSvc),
		identity:      identity.NewHandler(identitySvc),
		savings:       savings.NewHandler(savingsSvc),
		credit:        credit.NewHandler(creditSvc),
		dashboard:     dashboard.NewHandler(dashboard.NewService(store, identitySvc, inboxSvc)),
		transactions:  transactions.NewHandler(transactions.NewService(store)),
		notifications: notification.NewHandler(inboxSvc),
		analytics:     analytics.NewHandler(analyticsSvc),
		authService:   authSvc,
	}, nil
}
