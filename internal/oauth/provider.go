package oauth

import (
	"context"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/token"
)

// ProfileHints are non-identity profile fields the provider happened to
// share, passed through for the caller's onboarding UI.
type ProfileHints struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// LoginResult is the outcome of a completed provider login: a token pair for
// the matched-or-created account plus profile hints.
type LoginResult struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken,omitempty"`
	ProfileHints ProfileHints `json:"profileHints"`
}

// Provider is one third-party identity provider. The set is closed: adding a
// provider means adding an implementation and registering it, not touching
// dispatch.
type Provider interface {
	// RedirectURL builds the provider's authorization URL.
	RedirectURL() (string, error)
	// CompleteLogin exchanges the authorization code carried by the callback
	// URL, verifies the provider's identity token, and converts it into local
	// tokens.
	CompleteLogin(ctx context.Context, callbackURL string) (LoginResult, error)
}

// Registry dispatches provider slugs to implementations.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its slug.
func (r *Registry) Register(slug string, p Provider) {
	r.providers[slug] = p
}

// Get resolves a slug, rejecting unknown providers.
func (r *Registry) Get(slug string) (Provider, error) {
	p, ok := r.providers[slug]
	if !ok {
		return nil, apperr.ErrOAuthProviderNotFound
	}
	return p, nil
}

func loginResult(pair token.Pair, hints ProfileHints) LoginResult {
	return LoginResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ProfileHints: hints,
	}
}
