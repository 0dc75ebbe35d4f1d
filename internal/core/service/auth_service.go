package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mini-ai-studio/studio-api/internal/core/domain"
	"github.com/mini-ai-studio/studio-api/internal/core/ports"
)

const (
	defaultRegisterTTL = 24 * time.Hour
	defaultLoginTTL    = 7 * 24 * time.Hour

	// maxPasswordBytes is bcrypt's input limit, counted in bytes not runes.
	maxPasswordBytes = 72
)

// dummyHash is compared against when the email is unknown so that "no such
// user" and "wrong password" take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("studio-dummy-password"), bcrypt.DefaultCost)

// TokenPolicy holds the session lifetimes. Registration sessions are short,
// returning users get a longer one.
type TokenPolicy struct {
	RegisterTTL time.Duration
	LoginTTL    time.Duration
}

// AuthService implements registration, login and session lookup.
type AuthService struct {
	repo   ports.UserRepository
	tokens ports.TokenService
	policy TokenPolicy
	log    zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, policy TokenPolicy, log zerolog.Logger) *AuthService {
	if policy.RegisterTTL <= 0 {
		policy.RegisterTTL = defaultRegisterTTL
	}
	if policy.LoginTTL <= 0 {
		policy.LoginTTL = defaultLoginTTL
	}
	return &AuthService{repo: repo, tokens: tokens, policy: policy, log: log}
}

// Register creates the account and returns a registration-lifetime token.
func (s *AuthService) Register(ctx context.Context, email, password string) (string, *domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidInput
	}
	if len(password) > maxPasswordBytes {
		return "", nil, fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, err
	}

	created, err := s.repo.Create(ctx, &domain.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			s.log.Info().Str("email", email).Msg("registration rejected: email taken")
		}
		return "", nil, err
	}

	token, err := s.tokens.Issue(created.ID, s.policy.RegisterTTL)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return token, created, nil
}

// Login verifies the credentials and returns a login-lifetime token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.Verify(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(user.ID, s.policy.LoginTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Verify checks email/password. Unknown email and wrong password both return
// domain.ErrInvalidCredentials.
func (s *AuthService) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, domain.ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.log.Debug().Str("user_id", user.ID).Msg("password mismatch")
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrUserNotFound
	}
	return s.repo.FindByID(ctx, userID)
}
