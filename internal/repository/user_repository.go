package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"natours/api/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

const uniqueViolation = "23505"

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const (
	publicColumns = "id, name, email, role, photo, password_changed_at, " +
		"password_reset_digest, password_reset_expires_at, active, created_at, updated_at"
	withPasswordColumns = publicColumns + ", password_hash"
)

func selectColumns(withPassword bool) string {
	if withPassword {
		return withPasswordColumns
	}
	return publicColumns
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, role, photo, active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		models.NormalizeEmail(user.Email),
		user.PasswordHash,
		string(user.Role),
		user.Photo,
		user.Active,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrEmailTaken
		}
		return oops.Code("USER_CREATE_FAILED").With("operation", "create user").With("user_id", user.ID).Wrap(err)
	}
	return nil
}

// FindByEmail loads an active user. The password digest is only read when
// withPassword is set.
func (r *UserRepository) FindByEmail(ctx context.Context, email string, withPassword bool) (models.User, error) {
	query := "SELECT " + selectColumns(withPassword) + " FROM users WHERE email = $1 AND active = TRUE"

	user, err := scanUser(r.db.QueryRow(ctx, query, models.NormalizeEmail(email)), withPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, oops.Code("USER_QUERY_FAILED").With("operation", "find user by email").Wrap(err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string, withPassword bool) (models.User, error) {
	query := "SELECT " + selectColumns(withPassword) + " FROM users WHERE id = $1 AND active = TRUE"

	user, err := scanUser(r.db.QueryRow(ctx, query, id), withPassword)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, oops.Code("USER_QUERY_FAILED").With("operation", "get user by id").With("user_id", id).Wrap(err)
	}
	return user, nil
}

// FindByResetDigest returns the active user holding digest, provided the
// reset window is still open at now.
func (r *UserRepository) FindByResetDigest(ctx context.Context, digest string, now time.Time) (models.User, error) {
	query := "SELECT " + publicColumns + " FROM users " +
		"WHERE password_reset_digest = $1 AND password_reset_expires_at > $2 AND active = TRUE"

	user, err := scanUser(r.db.QueryRow(ctx, query, digest, now), false)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, oops.Code("USER_QUERY_FAILED").With("operation", "find user by reset digest").Wrap(err)
	}
	return user, nil
}

// Save writes every mutable field. An empty PasswordHash leaves the stored
// digest untouched, so records loaded without it can be saved safely.
func (r *UserRepository) Save(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users SET
			name = $2,
			email = $3,
			password_hash = COALESCE(NULLIF($4, ''), password_hash),
			role = $5,
			photo = $6,
			password_changed_at = $7,
			password_reset_digest = $8,
			password_reset_expires_at = $9,
			active = $10,
			updated_at = $11
		WHERE id = $1
	`

	cmd, err := r.db.Exec(ctx, query,
		user.ID,
		user.Name,
		models.NormalizeEmail(user.Email),
		user.PasswordHash,
		string(user.Role),
		user.Photo,
		user.PasswordChangedAt,
		user.ResetTokenDigest,
		user.ResetTokenExpiresAt,
		user.Active,
		user.UpdatedAt,
	)
	if err != nil {
		return oops.Code("USER_SAVE_FAILED").With("operation", "save user").With("user_id", user.ID).Wrap(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ClearExpiredResetTokens drops reset digests whose window closed before now.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		UPDATE users SET password_reset_digest = NULL, password_reset_expires_at = NULL
		WHERE password_reset_expires_at IS NOT NULL AND password_reset_expires_at <= $1
	`

	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, oops.Code("RESET_SWEEP_FAILED").With("operation", "clear expired reset tokens").Wrap(err)
	}
	return cmd.RowsAffected(), nil
}

func scanUser(row pgx.Row, withPassword bool) (models.User, error) {
	var (
		user models.User
		role string
	)
	dest := []any{
		&user.ID,
		&user.Name,
		&user.Email,
		&role,
		&user.Photo,
		&user.PasswordChangedAt,
		&user.ResetTokenDigest,
		&user.ResetTokenExpiresAt,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	}
	if withPassword {
		dest = append(dest, &user.PasswordHash)
	}
	if err := row.Scan(dest...); err != nil {
		return models.User{}, err
	}
	user.Role = models.Role(strings.TrimSpace(role))
	return user, nil
}
