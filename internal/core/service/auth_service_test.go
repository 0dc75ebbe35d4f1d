package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
)

func newTestAuthService(repo *stubUserRepo) (*AuthService, *TokenService) {
	tokens := NewTokenService("secret")
	return NewAuthService(repo, tokens, TokenPolicy{}, zerolog.Nop()), tokens
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(repo)

	token, user, err := svc.Register(context.Background(), "alice@example.com", "pw123456")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user == nil || user.ID == "" {
		t.Fatalf("expected user with id, got %+v", user)
	}
	if user.PasswordHash == "pw123456" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw123456")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	id, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if id != user.ID {
		t.Fatalf("token user id = %q, want %q", id, user.ID)
	}
}

func TestAuthService_Register_TrimsEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	_, user, err := svc.Register(context.Background(), "  alice@example.com ", "pw123456")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email = %q, want trimmed", user.Email)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), "   ", "pw"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "bob@example.com", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestAuthService_Register_PasswordLimitCountsBytes(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	// 40 runes, 80 bytes.
	_, _, err := svc.Register(context.Background(), "alice@example.com", strings.Repeat("é", 40))
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
	if len(repo.byEmail) != 0 {
		t.Fatalf("expected no user to be stored")
	}

	if _, _, err := svc.Register(context.Background(), "bob@example.com", strings.Repeat("é", 36)); err != nil {
		t.Fatalf("72-byte password rejected: %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	_, first, err := svc.Register(context.Background(), "bob@example.com", "pass123")
	if err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, _, err := svc.Register(context.Background(), "bob@example.com", "other-pass"); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// The original account keeps its password.
	if _, _, err := svc.Login(context.Background(), "bob@example.com", "pass123"); err != nil {
		t.Fatalf("original credentials rejected: %v", err)
	}
	stored, _ := repo.FindByID(context.Background(), first.ID)
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("other-pass")) == nil {
		t.Fatalf("duplicate registration overwrote the password")
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newTestAuthService(repo)

	if _, _, err := svc.Register(context.Background(), "carol@example.com", "s3cret"); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token, got empty")
	}
	if user == nil || user.Email != "carol@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if id, err := tokens.Verify(token); err != nil || id != user.ID {
		t.Fatalf("Verify = (%q, %v), want (%q, nil)", id, err, user.ID)
	}
}

func TestAuthService_TokenLifetimes(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := newStubUserRepo()
	tokens := NewTokenService("secret")
	tokens.now = func() time.Time { return base }
	svc := NewAuthService(repo, tokens, TokenPolicy{RegisterTTL: 24 * time.Hour, LoginTTL: 7 * 24 * time.Hour}, zerolog.Nop())

	regToken, _, err := svc.Register(context.Background(), "erin@example.com", "pw123456")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	loginToken, _, err := svc.Login(context.Background(), "erin@example.com", "pw123456")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	tokens.now = func() time.Time { return base.Add(25 * time.Hour) }
	if _, err := tokens.Verify(regToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("registration token should have expired after 24h, got %v", err)
	}
	if _, err := tokens.Verify(loginToken); err != nil {
		t.Fatalf("login token should still be valid after 25h: %v", err)
	}

	tokens.now = func() time.Time { return base.Add(7*24*time.Hour + time.Second) }
	if _, err := tokens.Verify(loginToken); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("login token should have expired after 7d, got %v", err)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	_, _, _ = svc.Register(context.Background(), "dave@example.com", "goodpass")
	if _, _, err := svc.Login(context.Background(), "dave@example.com", "badpass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	if _, _, err := svc.Login(context.Background(), "ghost@example.com", "pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_EmailIsCaseSensitive(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	_, _, _ = svc.Register(context.Background(), "frank@example.com", "pw123456")
	if _, _, err := svc.Login(context.Background(), "Frank@Example.com", "pw123456"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_StoreError(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = domain.ErrStoreUnavailable
	svc, _ := newTestAuthService(repo)

	if _, _, err := svc.Login(context.Background(), "a@example.com", "pw"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newTestAuthService(repo)

	_, created, _ := svc.Register(context.Background(), "gina@example.com", "pw123456")

	got, err := svc.CurrentUser(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("CurrentUser returned error: %v", err)
	}
	if got.Email != "gina@example.com" {
		t.Fatalf("unexpected user: %+v", got)
	}

	if _, err := svc.CurrentUser(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
