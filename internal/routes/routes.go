package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/goldwar/goldwar/internal/captcha"
	"github.com/goldwar/goldwar/internal/chat"
	"github.com/goldwar/goldwar/internal/config"
	"github.com/goldwar/goldwar/internal/gate"
	"github.com/goldwar/goldwar/internal/identity"
	"github.com/goldwar/goldwar/internal/ledger"
	"github.com/goldwar/goldwar/internal/middleware"
	"github.com/goldwar/goldwar/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Locations seeded on startup; quotas only move down from here until the
// daily administrative reset.
var defaultLocations = []ledger.Location{
	{ID: "graha-dipta", Name: "Butik Emas LM - Graha Dipta", Region: "jabodetabek", QuotaRemaining: 30},
	{ID: "juanda", Name: "Butik Emas LM - Juanda", Region: "jabodetabek", QuotaRemaining: 25},
	{ID: "gedung-antam", Name: "Butik Emas LM - Gedung Antam", Region: "jabodetabek", QuotaRemaining: 40},
	{ID: "setiabudi-one", Name: "Butik Emas LM - Setiabudi One", Region: "jabodetabek", QuotaRemaining: 20},
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores: Postgres/Redis in production, in-memory in dev mode.
	var captchaStore captcha.Store
	if d.Cache != nil {
		captchaStore = captcha.NewRedisStore(d.Cache)
	} else {
		captchaStore = captcha.NewMemoryStore()
	}
	captchaSvc := captcha.NewService(captchaStore, d.Cfg.CaptchaTTL)

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)

	var ticketLedger ledger.Ledger
	if d.DB != nil {
		ticketLedger = ledger.NewPostgresLedger(d.DB)
	} else {
		ticketLedger = ledger.NewInMemory()
	}
	for _, loc := range defaultLocations {
		if err := ticketLedger.EnsureLocation(context.Background(), loc); err != nil {
			return fmt.Errorf("seed location %s: %w", loc.ID, err)
		}
	}

	pool, err := gate.NewWarPool(context.Background(), d.Cache, d.Cfg.WarQuota)
	if err != nil {
		return fmt.Errorf("seed war pool: %w", err)
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	gateSvc := gate.NewService(d.Cfg, captchaSvc, identityRepo, ticketLedger, pool, notifier)

	captchaHandler := captcha.NewHandler(captchaSvc)
	identityHandler := identity.NewHandler(identitySvc, captchaSvc)
	gateHandler := gate.NewHandler(gateSvc)

	api := app.Group("/api")

	// Captcha
	api.Get("/captcha/math", captchaHandler.Math)
	api.Get("/captcha/image", captchaHandler.Image)

	// Authentication
	api.Post("/register", identityHandler.Register)
	api.Post("/login", middleware.LoginRateLimit(d.Cache, 5), identityHandler.Login)

	// Claims: one in-flight claim per identity.
	claimGuard := middleware.ClaimGuard(d.Cache, d.Cfg.ClaimGuardTTL, d.Logger)
	api.Post("/ticket", claimGuard, gateHandler.CreateTicket)
	api.Post("/war", claimGuard, gateHandler.War)

	// Display polling and lookups
	api.Get("/status", gateHandler.Status)
	api.Get("/locations", gateHandler.Locations)
	api.Get("/ticket/:id", gateHandler.GetTicket)

	// Support assistant, only when a document is configured and readable.
	if d.Cfg.ChatDocPath != "" {
		retriever, err := chat.NewRetrieverFromFile(d.Cfg.ChatDocPath)
		if err != nil {
			d.Logger.Warn("support chat disabled", slog.String("path", d.Cfg.ChatDocPath), slog.Any("error", err))
		} else {
			chatSvc := chat.NewService(retriever, chat.NewOllamaGenerator(d.Cfg.OllamaBaseURL, d.Cfg.OllamaModel), d.Logger)
			api.Post("/chat", chat.NewHandler(chatSvc).Ask)
		}
	}

	return nil
}
