package routes

import (
    "context"
    "fmt"
    "log/slog"
    "net/http"
    "strings"
    "time"

    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/recover"
    "github.com/redis/go-redis/v9"
    "go.mongodb.org/mongo-driver/v2/mongo"

    "github.com/authgate/authgate/internal/account"
    "github.com/authgate/authgate/internal/auth"
    "github.com/authgate/authgate/internal/cache"
    "github.com/authgate/authgate/internal/config"
    "github.com/authgate/authgate/internal/middleware"
    "github.com/authgate/authgate/internal/oauth"
    "github.com/authgate/authgate/internal/otp"
    "github.com/authgate/authgate/internal/password"
    "github.com/authgate/authgate/internal/task"
    "github.com/authgate/authgate/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
    Cfg    config.Config
    Mongo  *mongo.Client
    Cache  *redis.Client
    Keys   token.KeyPair
    Pool   *task.Pool
    Logger *slog.Logger

    // Sender overrides the OTP delivery channel; tests inject fakes here.
    Sender otp.Sender
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
    // The ephemeral store carries every in-flight flow; nothing works without it.
    if d.Cache == nil {
        return fmt.Errorf("redis is required")
    }
    if d.Mongo == nil && !isDev(d.Cfg.AppEnv) {
        return fmt.Errorf("mongo is required when APP_ENV=%s", d.Cfg.AppEnv)
    }

    // Middlewares
    app.Use(recover.New())
    app.Use(middleware.RequestID())
    app.Use(middleware.Audit(d.Logger))
    app.Use(middleware.Idempotency(d.Cache, 24*time.Hour, d.Logger))

    // Health
    RegisterHealthRoutes(app, d)

    // Stores and engines
    var accounts account.Store
    if d.Mongo != nil {
        store := account.NewMongoStore(d.Mongo.Database(d.Cfg.MongoDatabase))
        ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
        defer cancel()
        if err := store.EnsureIndexes(ctx); err != nil {
            return err
        }
        accounts = store
    } else {
        accounts = account.NewMemoryStore()
    }
    flowCache := cache.New(d.Cache)

    sender := d.Sender
    if sender == nil {
        if d.Cfg.OTPBaseURL != "" {
            sender = otp.NewHTTPSender(d.Cfg.OTPBaseURL)
        } else {
            sender = otp.NewLoggerSender(d.Logger)
        }
    }

    otpEngine := otp.NewEngine(flowCache, sender, d.Logger, otp.Options{
        AllowBypass:     d.Cfg.AllowOTPBypass && !d.Cfg.IsProduction(),
        RequireEmailOTP: d.Cfg.RequireEmailOTP,
    })
    tokenEngine := token.NewEngine(d.Keys, accounts, d.Cfg.TokenIssuer, d.Cfg.AccessTokenTTL, d.Cfg.RefreshTokenTTL)

    authSvc := auth.NewService(accounts, flowCache, otpEngine, tokenEngine, d.Pool, d.Logger)
    authHandler := auth.NewHandler(authSvc, tokenEngine, d.Cfg.DefaultCountryCode)

    passwordSvc := password.NewService(accounts, flowCache, otpEngine, d.Logger)
    passwordHandler := password.NewHandler(passwordSvc)

    registry := oauth.NewRegistry()
    registry.Register("google", oauth.NewGoogle(d.Cfg.GoogleClientID, d.Cfg.GoogleClientSecret, d.Cfg.GoogleRedirectURI, accounts, tokenEngine))
    registry.Register("linkedin", oauth.NewLinkedIn(d.Cfg.LinkedInClientID, d.Cfg.LinkedInClientSecret, d.Cfg.LinkedInRedirectURI))
    oauthHandler := oauth.NewHandler(registry)

    // API routes
    api := app.Group("/api/v1")
    api.Get("/ping", func(c *fiber.Ctx) error {
        reqID, _ := c.Locals("X-Request-ID").(string)
        return c.Status(http.StatusOK).JSON(fiber.Map{
            "status": "ok",
            "request_id": reqID,
            "timestamp": time.Now().UTC().Format(time.RFC3339Nano),
        })
    })

    bearer := middleware.BearerAuth(tokenEngine)
    rateLimiter := middleware.LoginRateLimit(d.Cache, 5)
    RegisterAuthRoutes(api, authHandler, passwordHandler, oauthHandler, bearer, rateLimiter)

    return nil
}

func isDev(env string) bool {
    switch strings.ToLower(env) {
    case "dev", "development", "local", "test":
        return true
    default:
        return false
    }
}
