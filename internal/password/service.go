package password

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate/internal/account"
	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/cache"
	"github.com/authgate/authgate/internal/otp"
)

// resetRecord scopes a reset OTP to the account it belongs to. Unlike the
// login/signup OTP it is keyed by validation token, not by contact.
type resetRecord struct {
	OTP       string `json:"otp"`
	AccountID string `json:"user_id"`
}

func resetKey(validationToken string) string {
	return "change_password_" + validationToken
}

// Service runs the forgot-password flow and direct password changes.
type Service struct {
	accounts account.Store
	cache    *cache.Cache
	otp      *otp.Engine
	logger   *slog.Logger
}

// NewService wires the reset orchestrator to its collaborators.
func NewService(accounts account.Store, c *cache.Cache, engine *otp.Engine, logger *slog.Logger) *Service {
	return &Service{accounts: accounts, cache: c, otp: engine, logger: logger}
}

// Initiate starts a forgot-password flow for the email's account. The code
// is stored before delivery fires; delivery failure fails the whole
// initiation, there is no silent drop on this path.
func (s *Service) Initiate(ctx context.Context, email string) (string, error) {
	a, err := s.accounts.Find(ctx, account.Filter{Email: email})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", apperr.ErrUserNotFound
		}
		return "", err
	}

	validationToken := uuid.NewString()
	code, err := otp.GenerateCode()
	if err != nil {
		return "", err
	}

	record := resetRecord{OTP: code, AccountID: a.ID}
	if err := s.cache.SetJSON(ctx, resetKey(validationToken), otp.ResetTTL, record); err != nil {
		return "", err
	}

	if err := s.otp.Deliver(ctx, email, account.ContactEmail, code); err != nil {
		return "", err
	}

	return validationToken, nil
}

// ValidateAndApply consumes the reset record and applies the new password.
// A wrong code leaves the record in place so the user can retry until the
// TTL runs out; a right code consumes it exactly once.
func (s *Service) ValidateAndApply(ctx context.Context, validationToken, suppliedOTP, newPassword string) error {
	key := resetKey(validationToken)

	var record resetRecord
	if err := s.cache.GetJSON(ctx, key, &record); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return apperr.ErrInvalidValidationID
		}
		return err
	}

	if subtle.ConstantTimeCompare([]byte(record.OTP), []byte(suppliedOTP)) != 1 {
		return apperr.ErrInvalidOTP
	}

	if err := s.cache.ConsumeJSON(ctx, key, &record); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return apperr.ErrInvalidValidationID
		}
		return err
	}

	// OTP possession pre-authenticates this path; no current-password check.
	return s.Change(ctx, record.AccountID, "", newPassword, true)
}

// Change updates the account's password. Unless bypassed, the caller's
// current password must match the stored hash first.
func (s *Service) Change(ctx context.Context, accountID, currentPassword, newPassword string, bypassCurrentCheck bool) error {
	a, err := s.accounts.Find(ctx, account.Filter{ID: accountID})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}

	if !bypassCurrentCheck {
		if a.PasswordHash == "" {
			return apperr.ErrPasswordMismatch
		}
		if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(currentPassword)); err != nil {
			return apperr.ErrPasswordMismatch
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, a.ID, string(hash)); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}
	return nil
}
