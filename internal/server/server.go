package server

import (
    "context"
    "errors"
    "log/slog"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/authgate/authgate/internal/apperr"
    "github.com/authgate/authgate/internal/routes"
)

// Server wraps the Fiber application and shared dependencies.
type Server struct {
    app  *fiber.App
    deps routes.Deps
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(d routes.Deps) (*Server, error) {
    app := fiber.New(fiber.Config{
        AppName:      d.Cfg.AppName,
        ReadTimeout:  30 * time.Second,
        WriteTimeout: 30 * time.Second,
        ErrorHandler: errorHandler(d.Logger),
    })

    if err := routes.Setup(app, d); err != nil {
        return nil, err
    }

    return &Server{app: app, deps: d}, nil
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
    return s.app.Listen(s.deps.Cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
    return s.app.ShutdownWithContext(ctx)
}

// errorHandler resolves every error to one structured response. Domain errors
// keep their code and status; infrastructure errors collapse to a generic 500
// with the cause logged, never echoed.
func errorHandler(log *slog.Logger) fiber.ErrorHandler {
    return func(c *fiber.Ctx, err error) error {
        var domainErr *apperr.Error
        if errors.As(err, &domainErr) {
            return c.Status(domainErr.Status).JSON(fiber.Map{"error": domainErr})
        }

        var conflict *apperr.UserAlreadyExists
        if errors.As(err, &conflict) {
            resp := conflict.AsError()
            payload := fiber.Map{"error": resp}
            if conflict.ExistingID != "" {
                payload["existingUserId"] = conflict.ExistingID
            }
            return c.Status(resp.Status).JSON(payload)
        }

        var fiberErr *fiber.Error
        if errors.As(err, &fiberErr) {
            return c.Status(fiberErr.Code).JSON(fiber.Map{
                "error": fiber.Map{"code": "request_error", "message": fiberErr.Message},
            })
        }

        log.Error("internal error", "method", c.Method(), "path", c.Path(), "error", err)
        return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
            "error": fiber.Map{"code": "internal_error", "message": "Internal server error"},
        })
    }
}
