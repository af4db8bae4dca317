package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/followerscart/backend/internal/domain/user"
	"github.com/followerscart/backend/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrUserNotFound     = user.ErrNotFound
	ErrEmailAlreadyUsed = errors.New("email already in use")
)

const userColumns = `id, email, password_hash, name, role, banned, google_id,
         reset_token_digest, reset_token_expires_at, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Name,
		&u.Role,
		&u.Banned,
		&u.GoogleID,
		&u.ResetTokenDigest,
		&u.ResetTokenExpiresAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_email", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE email = $1`,
			email,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_id", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE id = $1`,
			id,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) GetByGoogleID(ctx context.Context, googleID string) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_google_id", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE google_id = $1`,
			googleID,
		))
		return err
	})

	return u, err
}

// GetByResetDigest matches an outstanding reset token: digest equal AND expiry
// strictly in the future. An expired or already-consumed token is simply not
// found here; callers cannot tell those cases apart.
func (r *UsersRepo) GetByResetDigest(ctx context.Context, digest string, now time.Time) (user.User, error) {
	var u user.User
	var err error

	err = r.observe("users.get_by_reset_digest", func() error {
		u, err = scanUser(r.pool.QueryRow(
			ctx,
			`SELECT `+userColumns+`
         FROM users
         WHERE reset_token_digest = $1
           AND reset_token_expires_at > $2`,
			digest, now,
		))
		return err
	})

	return u, err
}

func (r *UsersRepo) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &passwordHash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.observe("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, name, role, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

// CreateGoogle creates a federated account with no local password.
func (r *UsersRepo) CreateGoogle(ctx context.Context, email, name, googleID string) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      user.RoleUser,
		GoogleID:  &googleID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.observe("users.create_google", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, email, name, role, google_id, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Email, u.Name, u.Role, u.GoogleID, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, ErrEmailAlreadyUsed
		}
		return user.User{}, err
	}

	return u, nil
}

// SetResetToken overwrites any outstanding token: digest and expiry move in
// one statement, so the previous token dies the moment a new one is issued.
func (r *UsersRepo) SetResetToken(ctx context.Context, userID, digest string, expiresAt time.Time) error {
	var err error

	err = r.observe("users.set_reset_token", func() error {
		tag, execErr := r.pool.Exec(ctx,
			`UPDATE users
         SET reset_token_digest = $2,
             reset_token_expires_at = $3,
             updated_at = NOW()
         WHERE id = $1`,
			userID, digest, expiresAt,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})

	return err
}

// UpdatePasswordAndClearReset replaces the credential and clears the reset
// columns in a single statement, which is what makes a token single-use.
func (r *UsersRepo) UpdatePasswordAndClearReset(ctx context.Context, userID, passwordHash string) error {
	var err error

	err = r.observe("users.update_password_clear_reset", func() error {
		tag, execErr := r.pool.Exec(ctx,
			`UPDATE users
         SET password_hash = $2,
             reset_token_digest = NULL,
             reset_token_expires_at = NULL,
             updated_at = NOW()
         WHERE id = $1`,
			userID, passwordHash,
		)
		if execErr != nil {
			return execErr
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})

	return err
}

func (r *UsersRepo) SetBanned(ctx context.Context, userID string, banned bool) error {
	return r.observe("users.set_banned", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users
         SET banned = $2, updated_at = NOW()
         WHERE id = $1`,
			userID, banned,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
