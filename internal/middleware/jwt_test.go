package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/authgate/authgate/internal/account"
	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/token"
)

func newAuthApp(t *testing.T) (*fiber.App, token.Pair) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	accounts := account.NewMemoryStore()
	id, err := accounts.Create(context.Background(), account.Account{Email: "a@b.com", Roles: []string{account.RoleDefault}})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	engine := token.NewEngine(token.KeyPair{Private: key, Public: &key.PublicKey}, accounts, "authgate", time.Hour, 24*time.Hour)
	pair, err := engine.Issue(account.Account{ID: id, Email: "a@b.com", Roles: []string{account.RoleDefault}})
	if err != nil {
		t.Fatalf("issue pair: %v", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var domainErr *apperr.Error
			if errors.As(err, &domainErr) {
				return c.SendStatus(domainErr.Status)
			}
			return c.SendStatus(fiber.StatusInternalServerError)
		},
	})
	app.Get("/me", BearerAuth(engine), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": AccountID(c)})
	})
	return app, pair
}

func TestBearerAuthAcceptsAccessToken(t *testing.T) {
	app, pair := newAuthApp(t)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestBearerAuthRejectsRefreshToken(t *testing.T) {
	app, pair := newAuthApp(t)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestBearerAuthRejectsMissingHeader(t *testing.T) {
	app, _ := newAuthApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/me", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
