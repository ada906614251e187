package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/authgate/authgate/internal/auth"
    "github.com/authgate/authgate/internal/oauth"
    "github.com/authgate/authgate/internal/password"
)

// RegisterAuthRoutes wires the signup/login, token, password, and OAuth endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, ph *password.Handler, oh *oauth.Handler, bearer fiber.Handler, rateLimiter fiber.Handler) {
    group := r.Group("/auth")

    group.Post("/signup", h.Signup)
    if rateLimiter != nil {
        group.Post("/login", rateLimiter, h.Login)
    } else {
        group.Post("/login", h.Login)
    }
    group.Post("/validate_otp", h.ValidateOTP)
    group.Post("/resend_otp", h.ResendOTP)

    group.Get("/validate_token", h.ValidateToken)
    group.Get("/refresh", h.Refresh)
    group.Post("/refresh", h.Refresh)

    group.Post("/forgot_password", ph.Forgot)
    group.Post("/validate_forgot_password", ph.ValidateForgot)
    group.Post("/change_password", bearer, ph.Change)

    group.Get("/redirect/:provider", oh.Redirect)
    group.Get("/callback/:provider", oh.Callback)
}
