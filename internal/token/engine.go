package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/authgate/authgate/internal/account"
	"github.com/authgate/authgate/internal/apperr"
)

// Claims is the shared shape of access and refresh tokens. The two differ
// only in the refresh marker and lifetime.
type Claims struct {
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles"`
	IsRefresh bool     `json:"is_refresh,omitempty"`
	jwt.RegisteredClaims
}

// Pair is an access/refresh token response. RefreshToken is empty on refresh
// responses; this design does not rotate refresh tokens.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Engine signs and verifies tokens. It is stateless apart from the account
// store it consults to resolve identity during refresh.
type Engine struct {
	keys       KeyPair
	accounts   account.Store
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewEngine builds a token engine around the loaded key pair.
func NewEngine(keys KeyPair, accounts account.Store, issuer string, accessTTL, refreshTTL time.Duration) *Engine {
	return &Engine{
		keys:       keys,
		accounts:   accounts,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs an access/refresh pair for the account identity.
func (e *Engine) Issue(a account.Account) (Pair, error) {
	now := e.now()

	access := Claims{
		Email: a.Email,
		Roles: a.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    e.issuer,
			Subject:   a.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.accessTTL)),
		},
	}

	refresh := access
	refresh.IsRefresh = true
	refresh.ExpiresAt = jwt.NewNumericDate(now.Add(e.refreshTTL))

	accessToken, err := e.sign(access)
	if err != nil {
		return Pair{}, err
	}
	refreshToken, err := e.sign(refresh)
	if err != nil {
		return Pair{}, err
	}

	return Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (e *Engine) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(e.keys.Private)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify decodes a presented token against the public key. Expiry is
// rechecked against wall-clock time on top of the library's validation so a
// stale exp can never slip through a parser quirk.
func (e *Engine) Verify(tokenString string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		return e.keys.Public, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithIssuer(e.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperr.ErrTokenExpired
		}
		return Claims{}, apperr.ErrUnauthorized
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(e.now()) {
		return Claims{}, apperr.ErrTokenExpired
	}

	return claims, nil
}

// Refresh mints a fresh access token from a valid refresh token. The refresh
// token itself is not rotated.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (Pair, error) {
	claims, err := e.Verify(refreshToken)
	if err != nil {
		return Pair{}, err
	}
	if !claims.IsRefresh {
		return Pair{}, apperr.ErrInvalidRefreshToken
	}

	a, err := e.accounts.Find(ctx, account.Filter{ID: claims.Subject})
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return Pair{}, apperr.ErrUnauthorized
		}
		return Pair{}, err
	}

	pair, err := e.Issue(a)
	if err != nil {
		return Pair{}, err
	}
	pair.RefreshToken = ""
	return pair, nil
}
