package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgate/authgate/internal/account"
	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/cache"
	"github.com/authgate/authgate/internal/otp"
	"github.com/authgate/authgate/internal/task"
	"github.com/authgate/authgate/internal/token"
)

// FlowKind tags a pending identity with the flow that staged it.
type FlowKind string

const (
	FlowLogin  FlowKind = "LOGIN"
	FlowSignup FlowKind = "SIGNUP"
)

// PendingIdentity bridges the gap between a staged signup/login and its OTP
// verification. It lives only in the ephemeral store, keyed by the validation
// token, and is consumed exactly once.
type PendingIdentity struct {
	Kind    FlowKind        `json:"validation_type"`
	Account account.Account `json:"user"`
}

const pendingTTL = 15 * time.Minute

func pendingKey(validationToken string) string {
	return "validation_" + validationToken
}

// Candidate is the identity submitted to begin a flow.
type Candidate struct {
	Email    string
	Mobile   string
	Password string
}

// Service orchestrates the signup/login state machine:
// Requested -> Staged -> Verified -> Materialized|Authenticated.
type Service struct {
	accounts account.Store
	cache    *cache.Cache
	otp      *otp.Engine
	tokens   *token.Engine
	pool     *task.Pool
	logger   *slog.Logger
}

// NewService wires the orchestrator to its collaborators.
func NewService(accounts account.Store, c *cache.Cache, engine *otp.Engine, tokens *token.Engine, pool *task.Pool, logger *slog.Logger) *Service {
	return &Service{
		accounts: accounts,
		cache:    c,
		otp:      engine,
		tokens:   tokens,
		pool:     pool,
		logger:   logger,
	}
}

// BeginFlow validates preconditions, stages a pending identity, and triggers
// OTP issuance in the background. The returned validation token identifies
// the staged attempt for 15 minutes.
func (s *Service) BeginFlow(ctx context.Context, c Candidate, kind FlowKind) (string, error) {
	if c.Email == "" && c.Mobile == "" {
		return "", apperr.ErrEmailMobileEmpty
	}

	existing, err := s.accounts.Find(ctx, account.Filter{Email: c.Email, Mobile: c.Mobile})
	found := err == nil
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return "", err
	}

	var candidate account.Account
	switch kind {
	case FlowLogin:
		if !found {
			return "", apperr.ErrUserNotFound
		}
		if err := s.checkLogin(c, existing); err != nil {
			return "", err
		}
		candidate = existing
	case FlowSignup:
		if found {
			return "", &apperr.UserAlreadyExists{ExistingID: existing.ID}
		}
		candidate, err = s.buildSignupCandidate(c)
		if err != nil {
			return "", err
		}
	default:
		return "", fmt.Errorf("unknown flow kind %q", kind)
	}

	validationToken := uuid.NewString()
	pending := PendingIdentity{Kind: kind, Account: candidate}
	if err := s.cache.SetJSON(ctx, pendingKey(validationToken), pendingTTL, pending); err != nil {
		return "", err
	}

	// The pending record is durably staged; the caller gets the token back
	// regardless of how delivery goes. Failures land in the pool's log and the
	// resend endpoint covers a lost code.
	if s.requiresOTP(kind, candidate) {
		contact, contactKind := candidate.PreferredContact()
		s.pool.Submit(task.Task{
			Name: "otp-delivery",
			Run: func(taskCtx context.Context) error {
				return s.otp.Issue(taskCtx, contact, contactKind)
			},
		})
	}

	return validationToken, nil
}

// CompleteFlow verifies the staged identity's OTP, consumes the pending
// record, and converts the flow into tokens; signup additionally materializes
// the account. A consumed or expired token yields InvalidValidationId.
func (s *Service) CompleteFlow(ctx context.Context, validationToken, suppliedOTP string) (token.Pair, error) {
	key := pendingKey(validationToken)

	var pending PendingIdentity
	if err := s.cache.GetJSON(ctx, key, &pending); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return token.Pair{}, apperr.ErrInvalidValidationID
		}
		return token.Pair{}, err
	}

	if s.requiresOTP(pending.Kind, pending.Account) {
		contact, _ := pending.Account.PreferredContact()
		if contact == "" {
			return token.Pair{}, apperr.ErrUserContactMissing
		}
		if err := s.otp.Verify(ctx, contact, suppliedOTP); err != nil {
			return token.Pair{}, err
		}
	}

	// Consume before any side effect. Two racing completions cannot both get
	// past this point: GETDEL hands the record to exactly one of them.
	if err := s.cache.ConsumeJSON(ctx, key, &pending); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return token.Pair{}, apperr.ErrInvalidValidationID
		}
		return token.Pair{}, err
	}

	resolved := pending.Account
	if pending.Kind == FlowSignup {
		id, err := s.accounts.Create(ctx, resolved)
		if err != nil {
			if errors.Is(err, account.ErrDuplicate) {
				// Lost the race against a concurrent signup with the same contact.
				return token.Pair{}, (&apperr.UserAlreadyExists{}).AsError()
			}
			return token.Pair{}, err
		}
		resolved.ID = id
	}

	return s.tokens.Issue(resolved)
}

// ResendOTP re-issues the code for a staged flow without touching the pending
// record's TTL. Unlike the background issuance at staging time, delivery
// failures surface to the caller here.
func (s *Service) ResendOTP(ctx context.Context, validationToken string) error {
	var pending PendingIdentity
	if err := s.cache.GetJSON(ctx, pendingKey(validationToken), &pending); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return apperr.ErrInvalidValidationID
		}
		return err
	}

	if !s.requiresOTP(pending.Kind, pending.Account) {
		return nil
	}

	contact, contactKind := pending.Account.PreferredContact()
	if contact == "" {
		return apperr.ErrUserContactMissing
	}
	return s.otp.Issue(ctx, contact, contactKind)
}

func (s *Service) requiresOTP(kind FlowKind, a account.Account) bool {
	if kind == FlowSignup {
		return true
	}
	return s.otp.RequireForLogin(a.Mobile != "")
}

// checkLogin enforces password auth for email logins; mobile logins defer all
// verification to the OTP.
func (s *Service) checkLogin(c Candidate, existing account.Account) error {
	if c.Mobile != "" {
		return nil
	}
	if existing.PasswordHash == "" {
		return apperr.ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(existing.PasswordHash), []byte(c.Password)); err != nil {
		return apperr.ErrPasswordMismatch
	}
	return nil
}

func (s *Service) buildSignupCandidate(c Candidate) (account.Account, error) {
	a := account.Account{
		Email:  c.Email,
		Mobile: c.Mobile,
		Roles:  []string{account.RoleDefault},
	}
	if c.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
		if err != nil {
			return account.Account{}, fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = string(hash)
	}
	return a, nil
}
