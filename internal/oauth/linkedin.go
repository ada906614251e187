package oauth

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/authgate/authgate/internal/apperr"
)

var linkedinEndpoint = oauth2.Endpoint{
	AuthURL:  "https://www.linkedin.com/oauth/v2/authorization",
	TokenURL: "https://www.linkedin.com/oauth/v2/accessToken",
}

// LinkedIn implements the LinkedIn provider. Only the authorization redirect
// is supported; the callback leg is not wired to an identity exchange yet.
type LinkedIn struct {
	conf *oauth2.Config
}

// NewLinkedIn builds the LinkedIn provider from client credentials.
func NewLinkedIn(clientID, clientSecret, redirectURI string) *LinkedIn {
	return &LinkedIn{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     linkedinEndpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
}

// RedirectURL builds the authorization URL.
func (l *LinkedIn) RedirectURL() (string, error) {
	return l.conf.AuthCodeURL(""), nil
}

// CompleteLogin is not implemented for LinkedIn.
func (l *LinkedIn) CompleteLogin(_ context.Context, _ string) (LoginResult, error) {
	return LoginResult{}, apperr.New("not_implemented", "LinkedIn login is not implemented", http.StatusNotImplemented)
}
