package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/cache"
)

const (
	// LoginTTL bounds how long a login/signup code stays verifiable.
	LoginTTL = 5 * time.Minute
	// ResetTTL bounds how long a password-reset code stays verifiable.
	ResetTTL = 15 * time.Minute

	codeDigits = 6

	// bypassCode is accepted when the engine was built with allowBypass.
	// Config refuses to enable it in production.
	bypassCode = "000000"
)

// Engine generates, stores, delivers, and verifies one-time codes.
type Engine struct {
	cache           *cache.Cache
	sender          Sender
	logger          *slog.Logger
	allowBypass     bool
	requireEmailOTP bool
}

// Options tune engine policy.
type Options struct {
	// AllowBypass accepts the fixed test code unconditionally. Never set in
	// production deployments.
	AllowBypass bool
	// RequireEmailOTP extends mandatory OTP verification to email-only logins.
	RequireEmailOTP bool
}

// NewEngine wires the engine to its cache and delivery channel.
func NewEngine(c *cache.Cache, sender Sender, logger *slog.Logger, opts Options) *Engine {
	return &Engine{
		cache:           c,
		sender:          sender,
		logger:          logger,
		allowBypass:     opts.AllowBypass,
		requireEmailOTP: opts.RequireEmailOTP,
	}
}

// GenerateCode returns a uniformly random 6-digit code, leading zeros kept.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n), nil
}

func contactKey(contact string) string {
	return fmt.Sprintf("%s_otp", contact)
}

// Issue generates a code for the contact, stores it for the login/signup
// window, and delivers it. The stored code must be durably visible before
// delivery fires so a fast round-trip cannot verify against nothing.
func (e *Engine) Issue(ctx context.Context, contact, kind string) error {
	code, err := GenerateCode()
	if err != nil {
		return err
	}
	if err := e.cache.SetString(ctx, contactKey(contact), LoginTTL, code); err != nil {
		return err
	}
	return e.Deliver(ctx, contact, kind, code)
}

// Deliver hands an already-stored code to the delivery channel. The
// password-reset flow stores its code inside its own scoped record and only
// needs delivery from the engine.
func (e *Engine) Deliver(ctx context.Context, contact, kind, code string) error {
	if err := e.sender.Send(ctx, contact, kind, code); err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	return nil
}

// RequireForLogin reports whether a login must verify an OTP. Mobile contacts
// always do; email-only logins follow the configured policy so that email
// deliverability does not block login by default.
func (e *Engine) RequireForLogin(hasMobile bool) bool {
	if hasMobile {
		return true
	}
	return e.requireEmailOTP
}

// Verify checks the supplied code against the one stored for the contact.
// A correct code is consumed atomically, so at most one verification per
// issuance succeeds; the loser of a concurrent race observes the same error
// as an expired code. Mismatch and absence are logged apart but surfaced
// identically.
func (e *Engine) Verify(ctx context.Context, contact, supplied string) error {
	key := contactKey(contact)

	if e.allowBypass && supplied == bypassCode {
		if err := e.cache.Delete(ctx, key); err != nil {
			e.logger.Warn("bypass otp cleanup failed", "error", err)
		}
		return nil
	}

	stored, err := e.cache.GetString(ctx, key)
	if errors.Is(err, cache.ErrNotFound) {
		e.logger.Info("otp verification failed", "contact", contact, "reason", "expired_or_unknown")
		return apperr.ErrInvalidOTP
	}
	if err != nil {
		return err
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) != 1 {
		e.logger.Info("otp verification failed", "contact", contact, "reason", "mismatch")
		return apperr.ErrInvalidOTP
	}

	// Codes are single-use: consume atomically and treat a lost race as expiry.
	if _, err := e.cache.ConsumeString(ctx, key); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return apperr.ErrInvalidOTP
		}
		return err
	}
	return nil
}
