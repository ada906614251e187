package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/authgate/authgate/internal/account"
	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/token"
)

const googleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// Google implements the Google OAuth login: authorization-code exchange, an
// id_token verified against Google's published signing keys, then local
// account attach-or-create.
type Google struct {
	conf     *oauth2.Config
	accounts account.Store
	tokens   *token.Engine
	client   *http.Client
	jwksURL  string
	now      func() time.Time
}

// NewGoogle builds the Google provider from client credentials.
func NewGoogle(clientID, clientSecret, redirectURI string, accounts account.Store, tokens *token.Engine) *Google {
	return &Google{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     googleEndpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.profile",
				"https://www.googleapis.com/auth/userinfo.email",
			},
		},
		accounts: accounts,
		tokens:   tokens,
		client:   &http.Client{Timeout: 10 * time.Second},
		jwksURL:  googleJWKSURL,
		now:      time.Now,
	}
}

// RedirectURL builds the consent-screen URL.
func (g *Google) RedirectURL() (string, error) {
	return g.conf.AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	), nil
}

type googleIDClaims struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	jwt.RegisteredClaims
}

// CompleteLogin exchanges the code from the callback URL and logs the Google
// identity into a local account.
func (g *Google) CompleteLogin(ctx context.Context, callbackURL string) (LoginResult, error) {
	parsed, err := url.Parse(callbackURL)
	if err != nil {
		return LoginResult{}, apperr.Validation("callback", "malformed callback URL")
	}
	code := parsed.Query().Get("code")
	if code == "" {
		return LoginResult{}, apperr.Validation("code", "cannot be empty")
	}

	exchangeCtx := context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.conf.Exchange(exchangeCtx, code)
	if err != nil {
		return LoginResult{}, apperr.OAuthFailed(err.Error())
	}

	idToken, ok := tok.Extra("id_token").(string)
	if !ok || idToken == "" {
		return LoginResult{}, apperr.OAuthFailed("missing id token in response")
	}

	claims, err := g.verifyIDToken(ctx, idToken)
	if err != nil {
		return LoginResult{}, err
	}

	a, err := g.resolveAccount(ctx, claims.Email)
	if err != nil {
		return LoginResult{}, err
	}

	pair, err := g.tokens.Issue(a)
	if err != nil {
		return LoginResult{}, err
	}
	return loginResult(pair, ProfileHints{FirstName: claims.GivenName, LastName: claims.FamilyName}), nil
}

func (g *Google) verifyIDToken(ctx context.Context, idToken string) (googleIDClaims, error) {
	keys, err := fetchSigningKeys(ctx, g.client, g.jwksURL)
	if err != nil {
		return googleIDClaims{}, err
	}

	var claims googleIDClaims
	_, err = jwt.ParseWithClaims(idToken, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("no signing key for kid %q", kid)
		}
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return googleIDClaims{}, apperr.ErrTokenExpired
		}
		return googleIDClaims{}, apperr.OAuthFailed("id token verification failed")
	}

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(g.now()) {
		return googleIDClaims{}, apperr.ErrTokenExpired
	}
	if claims.Email == "" {
		return googleIDClaims{}, apperr.OAuthFailed("id token carries no email")
	}
	return claims, nil
}

// resolveAccount attaches to the existing account for the email or creates a
// passwordless one with the default role.
func (g *Google) resolveAccount(ctx context.Context, email string) (account.Account, error) {
	existing, err := g.accounts.Find(ctx, account.Filter{Email: email})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, account.ErrNotFound) {
		return account.Account{}, err
	}

	created := account.Account{
		Email: email,
		Roles: []string{account.RoleDefault},
	}
	id, err := g.accounts.Create(ctx, created)
	if err != nil {
		if errors.Is(err, account.ErrDuplicate) {
			// Raced another login for the same identity; use the winner's account.
			return g.accounts.Find(ctx, account.Filter{Email: email})
		}
		return account.Account{}, err
	}
	created.ID = id
	return created, nil
}
