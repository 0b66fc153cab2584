package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tuckshop/internal/repository"
)

func setupPassword(t *testing.T) (*PasswordService, *AuthService, *fakeMailer) {
	t.Helper()
	store := repository.NewMemoryStore()
	users := repository.NewMemoryUsers(store)
	mailer := newFakeMailer()
	auth := NewAuthService(users, mailer, zerolog.Nop(), []byte("test-secret"))
	svc := NewPasswordService(users, repository.NewMemoryResets(store), mailer, zerolog.Nop())
	return svc, auth, mailer
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, auth, mailer := setupPassword(t)
	if err := auth.Signup(ctx, "Asha", "asha@example.com", "old-secret"); err != nil {
		t.Fatal(err)
	}
	recv(t, mailer.welcome)

	if err := svc.RequestReset(ctx, "asha@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	raw := recv(t, mailer.resetTokens)

	email, err := svc.VerifyToken(ctx, raw)
	if err != nil || email != "asha@example.com" {
		t.Fatalf("verify: %v (%q)", err, email)
	}

	if err := svc.Reset(ctx, raw, "new-secret"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	// new password works, old one is gone
	if _, _, err := auth.Login(ctx, "asha@example.com", "new-secret"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, _, err := auth.Login(ctx, "asha@example.com", "old-secret"); err == nil {
		t.Fatalf("old password still accepted")
	}

	// the token is consumed
	err = svc.Reset(ctx, raw, "another-secret")
	if e, ok := err.(*Error); !ok || e.Kind != KindValidation {
		t.Fatalf("expected validation error on replay, got %v", err)
	}
	if _, err := svc.VerifyToken(ctx, raw); err == nil {
		t.Fatalf("used token verified")
	}
}

func TestPasswordReset_Expiry(t *testing.T) {
	ctx := context.Background()
	svc, auth, mailer := setupPassword(t)
	if err := auth.Signup(ctx, "Asha", "asha@example.com", "old-secret"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RequestReset(ctx, "asha@example.com"); err != nil {
		t.Fatal(err)
	}
	raw := recv(t, mailer.resetTokens)

	// jump past the 1 hour ttl
	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	if _, err := svc.VerifyToken(ctx, raw); err == nil {
		t.Fatalf("expired token verified")
	}
	err := svc.Reset(ctx, raw, "new-secret")
	if e, ok := err.(*Error); !ok || e.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	n, err := svc.PurgeExpired(ctx)
	if err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
}

func TestPasswordReset_NewTokenInvalidatesOld(t *testing.T) {
	ctx := context.Background()
	svc, auth, mailer := setupPassword(t)
	if err := auth.Signup(ctx, "Asha", "asha@example.com", "old-secret"); err != nil {
		t.Fatal(err)
	}

	if err := svc.RequestReset(ctx, "asha@example.com"); err != nil {
		t.Fatal(err)
	}
	first := recv(t, mailer.resetTokens)
	if err := svc.RequestReset(ctx, "asha@example.com"); err != nil {
		t.Fatal(err)
	}
	second := recv(t, mailer.resetTokens)

	if _, err := svc.VerifyToken(ctx, first); err == nil {
		t.Fatalf("superseded token still valid")
	}
	if _, err := svc.VerifyToken(ctx, second); err != nil {
		t.Fatalf("fresh token invalid: %v", err)
	}
}

func TestPasswordReset_UnknownEmailSilent(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := setupPassword(t)

	if err := svc.RequestReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	select {
	case tok := <-mailer.resetTokens:
		t.Fatalf("email sent for unknown address: %q", tok)
	case <-time.After(50 * time.Millisecond):
	}

	if err := svc.RequestReset(ctx, ""); err == nil {
		t.Fatalf("expected error for missing email")
	}
}

func TestPasswordReset_ShortPassword(t *testing.T) {
	ctx := context.Background()
	svc, auth, mailer := setupPassword(t)
	if err := auth.Signup(ctx, "Asha", "asha@example.com", "old-secret"); err != nil {
		t.Fatal(err)
	}
	if err := svc.RequestReset(ctx, "asha@example.com"); err != nil {
		t.Fatal(err)
	}
	raw := recv(t, mailer.resetTokens)

	err := svc.Reset(ctx, raw, "short")
	if e, ok := err.(*Error); !ok || e.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	// the failed attempt must not consume the token
	if err := svc.Reset(ctx, raw, "long-enough"); err != nil {
		t.Fatalf("token consumed by failed attempt: %v", err)
	}
}
