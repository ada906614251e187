package oauth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the provider redirect and callback endpoints.
type Handler struct {
	registry *Registry
}

// NewHandler builds the OAuth handler over a provider registry.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

// Redirect returns the provider's authorization URL.
func (h *Handler) Redirect(c *fiber.Ctx) error {
	provider, err := h.registry.Get(c.Params("provider"))
	if err != nil {
		return err
	}

	url, err := provider.RedirectURL()
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"redirectUrl": url})
}

// Callback completes the provider login from the authorization-code callback.
func (h *Handler) Callback(c *fiber.Ctx) error {
	provider, err := h.registry.Get(c.Params("provider"))
	if err != nil {
		return err
	}

	result, err := provider.CompleteLogin(c.UserContext(), c.BaseURL()+c.OriginalURL())
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(result)
}
