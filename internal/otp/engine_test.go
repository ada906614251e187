package otp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/cache"
)

type recordingSender struct {
	mu    sync.Mutex
	codes []string
}

func (s *recordingSender) Send(_ context.Context, _, _, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, code)
	return nil
}

func (s *recordingSender) last(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		t.Fatal("no code delivered")
	}
	return s.codes[len(s.codes)-1]
}

func setupEngine(t *testing.T, opts Options) (*Engine, *recordingSender, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	sender := &recordingSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(cache.New(client), sender, logger, opts), sender, mr
}

func TestGenerateCodeShape(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9]{6}$`)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("expected 6 digits, got %q", code)
		}
	}
}

func TestIssueAndVerifyIsSingleUse(t *testing.T) {
	engine, sender, _ := setupEngine(t, Options{})
	ctx := context.Background()

	if err := engine.Issue(ctx, "+919876543210", "MOBILE"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := sender.last(t)

	if err := engine.Verify(ctx, "+919876543210", code); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The correct code was consumed; replaying it must fail.
	if err := engine.Verify(ctx, "+919876543210", code); !errors.Is(err, apperr.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP on replay, got %v", err)
	}
}

func TestVerifyMismatchKeepsCode(t *testing.T) {
	engine, sender, _ := setupEngine(t, Options{})
	ctx := context.Background()

	if err := engine.Issue(ctx, "a@b.com", "EMAIL"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := sender.last(t)

	wrong := "999999"
	if wrong == code {
		wrong = "999998"
	}
	if err := engine.Verify(ctx, "a@b.com", wrong); !errors.Is(err, apperr.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	// A wrong guess must not burn the stored code.
	if err := engine.Verify(ctx, "a@b.com", code); err != nil {
		t.Fatalf("verify after mismatch: %v", err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	engine, sender, mr := setupEngine(t, Options{})
	ctx := context.Background()

	if err := engine.Issue(ctx, "+919876543210", "MOBILE"); err != nil {
		t.Fatalf("issue: %v", err)
	}
	code := sender.last(t)

	mr.FastForward(LoginTTL + time.Second)

	if err := engine.Verify(ctx, "+919876543210", code); !errors.Is(err, apperr.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP after expiry, got %v", err)
	}
}

func TestBypassCodeOnlyWhenAllowed(t *testing.T) {
	ctx := context.Background()

	engine, _, _ := setupEngine(t, Options{AllowBypass: true})
	if err := engine.Verify(ctx, "+919876543210", "000000"); err != nil {
		t.Fatalf("bypass should verify without issuance: %v", err)
	}

	strict, _, _ := setupEngine(t, Options{})
	if err := strict.Verify(ctx, "+919876543210", "000000"); !errors.Is(err, apperr.ErrInvalidOTP) {
		t.Fatalf("bypass must be rejected when disabled, got %v", err)
	}
}

func TestRequireForLogin(t *testing.T) {
	engine, _, _ := setupEngine(t, Options{})
	if !engine.RequireForLogin(true) {
		t.Fatal("mobile logins always require an otp")
	}
	if engine.RequireForLogin(false) {
		t.Fatal("email-only logins skip the otp by default")
	}

	emailStrict, _, _ := setupEngine(t, Options{RequireEmailOTP: true})
	if !emailStrict.RequireForLogin(false) {
		t.Fatal("email otp policy was not honored")
	}
}
