package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/followerscart/backend/internal/domain/user"
	"github.com/followerscart/backend/internal/notifications"
	"github.com/followerscart/backend/internal/security"
)

var (
	// ErrInvalidOrExpiredToken covers a wrong token, a consumed token and an
	// expired token. The three causes are indistinguishable on purpose.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired password reset token")
	ErrMissingFields         = errors.New("both new and confirm password are required")
	ErrPasswordMismatch      = errors.New("passwords do not match")
)

const DefaultTokenTTL = 10 * time.Minute

// Directory is the slice of the user store the manager needs. Lookups by
// digest are already filtered to unexpired tokens; updates are atomic per
// record, which keeps digest and expiry moving together.
type Directory interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByResetDigest(ctx context.Context, digest string, now time.Time) (user.User, error)
	SetResetToken(ctx context.Context, userID, digest string, expiresAt time.Time) error
	UpdatePasswordAndClearReset(ctx context.Context, userID, passwordHash string) error
}

type Manager struct {
	dir      Directory
	notifier notifications.Notifier
	log      *slog.Logger

	// Base URL the raw token is appended to when building the email link.
	resetURL string
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(dir Directory, notifier notifications.Notifier, log *slog.Logger, resetURL string, ttl time.Duration) *Manager {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &Manager{
		dir:      dir,
		notifier: notifier,
		log:      log,
		resetURL: resetURL,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Result reports what RequestReset actually did. Delivery failure is carried
// here, never as the operation's error: the token stays valid either way.
type Result struct {
	TokenIssued bool
	Delivered   bool
	DeliveryErr error
}

// RequestReset issues a fresh single-use token for the account behind email
// and mails it out. An unknown email is NOT an error: the caller gets the
// same zero-issued success it would relay for a known account, so responses
// cannot be used to probe which emails have accounts.
func (m *Manager) RequestReset(ctx context.Context, email string) (Result, error) {
	u, err := m.dir.GetByEmail(ctx, email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("lookup user: %w", err)
	}

	raw, err := security.NewResetToken()

	if err != nil {
		return Result{}, fmt.Errorf("generate reset token: %w", err)
	}

	digest := security.DigestResetToken(raw)
	expiresAt := m.now().Add(m.ttl).UTC()

	// Overwrites any outstanding token: at most one is ever valid per user.
	if err := m.dir.SetResetToken(ctx, u.ID, digest, expiresAt); err != nil {
		return Result{}, fmt.Errorf("store reset token: %w", err)
	}

	res := Result{TokenIssued: true}

	body, err := notifications.PasswordResetBody(m.resetURL+"/"+raw, int(m.ttl.Minutes()))

	if err != nil {
		res.DeliveryErr = err
		m.log.ErrorContext(ctx, "reset email render failed", "err", err)
		return res, nil
	}

	if err := m.notifier.Send(ctx, u.Email, notifications.SubjectPasswordReset, body); err != nil {
		// The token was created and remains valid; only delivery failed.
		res.DeliveryErr = err
		m.log.ErrorContext(ctx, "reset email delivery failed", "err", err)
		return res, nil
	}

	res.Delivered = true
	return res, nil
}

// ConsumeReset redeems a raw token and replaces the account's password.
// Validation is ordered and each failure is terminal: nothing is written
// unless every check passes, and then password change and token clearing
// land in one update.
func (m *Manager) ConsumeReset(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	digest := security.DigestResetToken(rawToken)

	u, err := m.dir.GetByResetDigest(ctx, digest, m.now().UTC())

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	if newPassword == "" || confirmPassword == "" {
		return ErrMissingFields
	}

	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	hash, err := security.HashPassword(newPassword)

	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := m.dir.UpdatePasswordAndClearReset(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	return nil
}
