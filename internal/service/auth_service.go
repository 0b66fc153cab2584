package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"tuckshop/internal/domain"
	"tuckshop/internal/notify"
	"tuckshop/internal/repository"
)

const sessionTTL = 24 * time.Hour

// Claims is the session token payload. Field names match what the order
// flow reads back from the token.
type Claims struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles signup, login and session token verification
type AuthService struct {
	users  repository.UserRepository
	mailer notify.Mailer
	log    zerolog.Logger
	secret []byte
}

func NewAuthService(users repository.UserRepository, mailer notify.Mailer, log zerolog.Logger, jwtSecret []byte) *AuthService {
	return &AuthService{users: users, mailer: mailer, log: log, secret: jwtSecret}
}

// NormalizeEmail lower-cases and trims an address; emails are stored and
// looked up in this form only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a new account and fires a detached welcome mail.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) error {
	if name == "" || email == "" || password == "" {
		return Invalid("Please provide name, email, and password")
	}
	if len(password) < 6 {
		return Invalid("Password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u := &domain.User{
		ID:       uuid.NewString(),
		Name:     name,
		Email:    NormalizeEmail(email),
		Password: string(hash),
		Role:     "user",
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return Conflict("User with this email already exists")
		}
		return err
	}

	user := *u
	go func() {
		if err := s.mailer.SendWelcome(context.Background(), user); err != nil {
			s.log.Error().Err(err).Str("email", user.Email).Msg("welcome email failed")
		}
	}()
	return nil
}

// Login verifies credentials and issues a signed session token. Unknown
// email and wrong password fail identically so callers cannot enumerate
// registered addresses.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	if email == "" || password == "" {
		return "", nil, Invalid("Please provide email and password")
	}

	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, Unauthorized("Invalid credentials")
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return "", nil, Unauthorized("Invalid credentials")
	}

	now := time.Now()
	claims := Claims{
		UserID: u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// VerifyToken validates a bearer token and returns its claims.
func (s *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, Unauthorized("Invalid or expired token")
	}
	return claims, nil
}
