package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"tuckshop/internal/domain"
	"tuckshop/internal/notify"
	"tuckshop/internal/repository"
)

const resetTokenTTL = time.Hour

// PasswordService issues, verifies and consumes single-use password
// reset tokens. The raw token is only ever emailed; the store holds its
// sha256 hash. Issuing a token invalidates all earlier ones for the
// same user.
type PasswordService struct {
	users  repository.UserRepository
	resets repository.PasswordResetRepository
	mailer notify.Mailer
	log    zerolog.Logger
	now    func() time.Time
}

func NewPasswordService(users repository.UserRepository, resets repository.PasswordResetRepository, mailer notify.Mailer, log zerolog.Logger) *PasswordService {
	return &PasswordService{users: users, resets: resets, mailer: mailer, log: log, now: time.Now}
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// RequestReset issues a reset token if the email belongs to a user.
// Whether it does is never revealed to the caller; unknown addresses
// succeed silently.
func (s *PasswordService) RequestReset(ctx context.Context, email string) error {
	if email == "" {
		return Invalid("Email is required")
	}

	u, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info().Str("email", email).Msg("password reset requested for unknown email")
			return nil
		}
		return err
	}

	raw, err := newResetToken()
	if err != nil {
		return err
	}
	if err := s.resets.DeleteByUser(ctx, u.ID); err != nil {
		return err
	}
	rec := &domain.PasswordReset{
		UserID:    u.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.resets.Create(ctx, rec); err != nil {
		return err
	}

	to := u.Email
	go func() {
		if err := s.mailer.SendPasswordReset(context.Background(), to, raw); err != nil {
			s.log.Error().Err(err).Str("email", to).Msg("password reset email failed")
		}
	}()
	return nil
}

func (s *PasswordService) lookup(ctx context.Context, rawToken string) (*domain.PasswordReset, error) {
	rec, err := s.resets.GetActiveByHash(ctx, hashToken(rawToken), s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, Invalid("Invalid or expired reset token")
		}
		return nil, err
	}
	return rec, nil
}

// VerifyToken checks a presented raw token and returns the owning
// user's email, for the frontend to display.
func (s *PasswordService) VerifyToken(ctx context.Context, rawToken string) (string, error) {
	if rawToken == "" {
		return "", Invalid("Reset token is required")
	}
	rec, err := s.lookup(ctx, rawToken)
	if err != nil {
		return "", err
	}
	u, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", Invalid("Invalid or expired reset token")
		}
		return "", err
	}
	return u.Email, nil
}

// Reset rotates the user's password and consumes the token so it cannot
// be replayed.
func (s *PasswordService) Reset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" || newPassword == "" {
		return Invalid("Token and new password are required")
	}
	if len(newPassword) < 6 {
		return Invalid("Password must be at least 6 characters")
	}
	rec, err := s.lookup(ctx, rawToken)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, rec.UserID, string(hash)); err != nil {
		return err
	}
	return s.resets.MarkUsed(ctx, rec.ID)
}

// PurgeExpired deletes expired token rows. Housekeeping only: expiry is
// independently checked at verify/reset time.
func (s *PasswordService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.resets.DeleteExpired(ctx, s.now())
}
