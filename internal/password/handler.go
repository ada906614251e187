package password

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/middleware"
)

// Handler exposes password reset and change endpoints.
type Handler struct {
	svc *Service
}

// NewHandler builds the password handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// Forgot starts the reset flow and returns the validation token.
func (h *Handler) Forgot(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return apperr.Validation("email", "must not be empty")
	}

	validationID, err := h.svc.Initiate(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"validationId": validationID})
}

type validateForgotRequest struct {
	ValidationID string `json:"validationId"`
	OTP          string `json:"otp"`
	NewPassword  string `json:"newPassword"`
}

// ValidateForgot consumes the reset OTP and applies the new password.
func (h *Handler) ValidateForgot(c *fiber.Ctx) error {
	var req validateForgotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ValidationID == "" {
		return apperr.Validation("validationId", "must not be empty")
	}
	if req.NewPassword == "" {
		return apperr.Validation("newPassword", "must not be empty")
	}

	if err := h.svc.ValidateAndApply(c.UserContext(), req.ValidationID, req.OTP, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Change updates the password of the authenticated account.
func (h *Handler) Change(c *fiber.Ctx) error {
	accountID := middleware.AccountID(c)
	if accountID == "" {
		return apperr.ErrUnauthorized
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.NewPassword == "" {
		return apperr.Validation("newPassword", "must not be empty")
	}

	if err := h.svc.Change(c.UserContext(), accountID, req.CurrentPassword, req.NewPassword, false); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}
