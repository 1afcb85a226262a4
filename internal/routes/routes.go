package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/balance"
	"github.com/congo-pay/algopay/internal/config"
	"github.com/congo-pay/algopay/internal/eligibility"
	"github.com/congo-pay/algopay/internal/journal"
	"github.com/congo-pay/algopay/internal/metrics"
	"github.com/congo-pay/algopay/internal/middleware"
	"github.com/congo-pay/algopay/internal/notification"
	"github.com/congo-pay/algopay/internal/payments"
	"github.com/congo-pay/algopay/internal/signer"
	"github.com/congo-pay/algopay/internal/submit"
	"github.com/congo-pay/algopay/internal/wallet"
)

// Node is the algod surface the HTTP service needs.
type Node interface {
	balance.Reader
	payments.ParamsReader
	submit.RawSender
	submit.StatusReader
}

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Node     Node
	Signer   signer.Signer
	Registry *asset.Registry
	Metrics  *metrics.Metrics
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
	if d.Node == nil || d.Signer == nil {
		return fmt.Errorf("node and signer are required")
	}
	if d.Registry == nil {
		d.Registry = asset.DefaultRegistry()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health and metrics
	RegisterHealthRoutes(app, d)
	if d.Metrics != nil {
		app.Get("/metrics", d.Metrics.Handler())
	}

	// Services and handlers
	var store journal.Journal
	if d.DB != nil {
		store = journal.NewPostgresJournal(d.DB)
	} else {
		store = journal.NewInMemory()
	}

	session := wallet.NewSession(d.Signer, d.Node, d.Logger)
	app.Hooks().OnShutdown(func() error {
		session.Close()
		return nil
	})

	paymentSvc := payments.NewService(payments.Deps{
		Session:     session,
		Registry:    d.Registry,
		Assets:      balance.NewAggregator(d.Node, balance.Strict, d.Logger),
		Checker:     eligibility.NewChecker(d.Node),
		Node:        d.Node,
		Broadcaster: submit.NewBroadcaster(d.Signer, d.Node, d.Logger),
		Waiter:      submit.NewWaiter(d.Node),
		Journal:     store,
		Notifier:    notification.NewLoggerNotifier(d.Logger),
		Metrics:     d.Metrics,
		MaxRounds:   d.Cfg.ConfirmationRounds,
		Logger:      d.Logger,
	})

	walletHandler := wallet.NewHandler(session)
	balanceHandler := balance.NewHandler(d.Node, session, d.Logger)
	assetHandler := asset.NewHandler(d.Registry, d.Node)
	paymentHandler := payments.NewHandler(paymentSvc, store)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Reads are open; anything that touches the wallet needs the API key.
	RegisterBalanceRoutes(api, balanceHandler, assetHandler)
	RegisterPaymentReadRoutes(api, paymentHandler)

	protected := api.Group("", middleware.APIKey(d.Cfg.APIKeyHash))
	RegisterWalletRoutes(protected, walletHandler)

	send := []fiber.Handler{middleware.SendRateLimit(d.Cache, d.Cfg.SendRateLimit, d.Logger)}
	if d.Cache != nil {
		send = append(send, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterPaymentRoutes(protected.Group("", send...), paymentHandler)

	return nil
}
