package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/authgate/authgate/internal/account"
	"github.com/authgate/authgate/internal/apperr"
)

func testKeys(t *testing.T) KeyPair {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return KeyPair{Private: key, Public: &key.PublicKey}
}

func testEngine(t *testing.T) (*Engine, account.Store, account.Account) {
	t.Helper()
	store := account.NewMemoryStore()
	a := account.Account{
		Email: "a@b.com",
		Roles: []string{account.RoleDefault},
	}
	id, err := store.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	a.ID = id
	return NewEngine(testKeys(t), store, "authgate", 24*time.Hour, 720*time.Hour), store, a
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	engine, _, a := testEngine(t)

	pair, err := engine.Issue(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	claims, err := engine.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.Subject != a.ID || claims.Email != a.Email {
		t.Fatalf("identity mismatch: %+v", claims)
	}
	if claims.IsRefresh {
		t.Fatal("access token carries the refresh marker")
	}

	refreshClaims, err := engine.Verify(pair.RefreshToken)
	if err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
	if !refreshClaims.IsRefresh {
		t.Fatal("refresh token is missing the refresh marker")
	}
	if !refreshClaims.ExpiresAt.After(claims.ExpiresAt.Time) {
		t.Fatal("refresh token should outlive the access token")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	engine, _, a := testEngine(t)

	pair, err := engine.Issue(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	engine.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	if _, err := engine.Verify(pair.AccessToken); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	engine, _, _ := testEngine(t)

	if _, err := engine.Verify("not.a.token"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestVerifyForeignSignature(t *testing.T) {
	engine, _, a := testEngine(t)
	other, _, _ := testEngine(t)

	pair, err := engine.Issue(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.Verify(pair.AccessToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for a foreign key, got %v", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	engine, _, a := testEngine(t)

	pair, err := engine.Issue(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := engine.Refresh(context.Background(), pair.AccessToken); !errors.Is(err, apperr.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshReturnsAccessOnly(t *testing.T) {
	engine, _, a := testEngine(t)

	pair, err := engine.Issue(a)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	refreshed, err := engine.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Fatal("expected a fresh access token")
	}
	if refreshed.RefreshToken != "" {
		t.Fatal("refresh tokens are not rotated")
	}

	claims, err := engine.Verify(refreshed.AccessToken)
	if err != nil {
		t.Fatalf("verify refreshed access: %v", err)
	}
	if claims.Subject != a.ID {
		t.Fatalf("expected subject %q, got %q", a.ID, claims.Subject)
	}
}

func TestRefreshForDeletedAccount(t *testing.T) {
	engine, _, _ := testEngine(t)

	ghost := account.Account{ID: "gone", Email: "ghost@b.com", Roles: []string{account.RoleDefault}}
	pair, err := engine.Issue(ghost)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := engine.Refresh(context.Background(), pair.RefreshToken); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
