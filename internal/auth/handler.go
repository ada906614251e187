package auth

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/token"
)

var mobilePattern = regexp.MustCompile(`^\+[0-9]{8,15}$`)

// Handler exposes the signup/login flow endpoints.
type Handler struct {
	svc                *Service
	tokens             *token.Engine
	defaultCountryCode string
}

// NewHandler builds the auth handler.
func NewHandler(svc *Service, tokens *token.Engine, defaultCountryCode string) *Handler {
	return &Handler{svc: svc, tokens: tokens, defaultCountryCode: defaultCountryCode}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Mobile   string `json:"mobileNumber"`
	Password string `json:"password"`
}

type validationResponse struct {
	ValidationID string `json:"validationId"`
}

// Signup stages a new account and returns its validation token.
func (h *Handler) Signup(c *fiber.Ctx) error {
	return h.begin(c, FlowSignup)
}

// Login stages an authentication attempt and returns its validation token.
func (h *Handler) Login(c *fiber.Ctx) error {
	return h.begin(c, FlowLogin)
}

func (h *Handler) begin(c *fiber.Ctx, kind FlowKind) error {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	candidate, err := h.normalize(req, kind)
	if err != nil {
		return err
	}

	validationID, err := h.svc.BeginFlow(c.UserContext(), candidate, kind)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(validationResponse{ValidationID: validationID})
}

type validateOTPRequest struct {
	ValidationID string `json:"validationId"`
	OTP          string `json:"otp"`
}

// ValidateOTP completes the staged flow and returns the token pair.
func (h *Handler) ValidateOTP(c *fiber.Ctx) error {
	var req validateOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ValidationID == "" {
		return apperr.Validation("validationId", "must not be empty")
	}

	pair, err := h.svc.CompleteFlow(c.UserContext(), req.ValidationID, req.OTP)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(pair)
}

type resendOTPRequest struct {
	ValidationID string `json:"validationId"`
}

// ResendOTP re-delivers the code for a staged flow.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req resendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ValidationID == "" {
		return apperr.Validation("validationId", "must not be empty")
	}

	if err := h.svc.ResendOTP(c.UserContext(), req.ValidationID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusOK)
}

// Refresh mints a new access token from a refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	refreshToken := c.Query("refreshToken")
	if refreshToken == "" {
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = c.BodyParser(&req)
		refreshToken = req.RefreshToken
	}
	if refreshToken == "" {
		return apperr.Validation("refreshToken", "must not be empty")
	}

	pair, err := h.tokens.Refresh(c.UserContext(), refreshToken)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(pair)
}

// ValidateToken decodes the bearer token and echoes the claims in the
// x-user-details response header for upstream proxies.
func (h *Handler) ValidateToken(c *fiber.Ctx) error {
	authz := c.Get(fiber.HeaderAuthorization)
	if authz == "" {
		return c.SendStatus(http.StatusOK)
	}
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return apperr.ErrUnauthorized
	}

	claims, err := h.tokens.Verify(strings.TrimSpace(authz[len("Bearer "):]))
	if err != nil {
		return apperr.ErrUnauthorized
	}

	encoded, err := json.Marshal(claims)
	if err != nil {
		return err
	}
	c.Set("x-user-details", string(encoded))
	return c.SendStatus(http.StatusOK)
}

// normalize validates and canonicalizes the submitted identity. Mobile
// numbers without a country prefix get the configured default.
func (h *Handler) normalize(req credentialsRequest, kind FlowKind) (Candidate, error) {
	candidate := Candidate{
		Email:    strings.TrimSpace(req.Email),
		Mobile:   strings.TrimSpace(req.Mobile),
		Password: req.Password,
	}

	if candidate.Email != "" {
		if _, err := mail.ParseAddress(candidate.Email); err != nil {
			return Candidate{}, apperr.Validation("email", "must be a valid email address")
		}
	}

	if candidate.Mobile != "" {
		if !strings.HasPrefix(candidate.Mobile, "+") {
			candidate.Mobile = h.defaultCountryCode + candidate.Mobile
		}
		if !mobilePattern.MatchString(candidate.Mobile) {
			return Candidate{}, apperr.Validation("mobileNumber", "must be a valid mobile number")
		}
	}

	if kind == FlowSignup && candidate.Email != "" && candidate.Password == "" {
		return Candidate{}, apperr.Validation("password", "should not be empty")
	}

	return candidate, nil
}
