package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

const userColumns = `id, name, COALESCE(email, ''), COALESCE(password_hash, ''), COALESCE(google_id, ''),
	email_verified, COALESCE(verify_token, ''), next_token_request, created_at`

// PostgresStore is a PostgreSQL-backed user store.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed user store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, name, email, password_hash, google_id, email_verified, verify_token, next_token_request, created_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8, $9)`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.GoogleID, u.EmailVerified, u.VerifyToken,
		nullTime(u.NextTokenRequest), u.CreatedAt,
	)
	if err != nil {
		return nil, duplicate(fmt.Errorf("insert user: %w", err))
	}
	return &u, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.getBy(ctx, "id", id)
}

func (s *PostgresStore) GetUsers(ctx context.Context, ids []string) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getBy(ctx, "email", email)
}

func (s *PostgresStore) GetUserByGoogleID(ctx context.Context, googleID string) (*User, error) {
	return s.getBy(ctx, "google_id", googleID)
}

func (s *PostgresStore) GetUserByVerifyToken(ctx context.Context, token string) (*User, error) {
	return s.getBy(ctx, "verify_token", token)
}

func (s *PostgresStore) UpdateUser(ctx context.Context, u User) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	updated, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users
		 SET name = $2, email = NULLIF($3, ''), password_hash = NULLIF($4, ''), google_id = NULLIF($5, ''),
		     email_verified = $6, verify_token = NULLIF($7, ''), next_token_request = $8
		 WHERE id = $1
		 RETURNING `+userColumns,
		u.ID, u.Name, u.Email, u.PasswordHash, u.GoogleID, u.EmailVerified, u.VerifyToken,
		nullTime(u.NextTokenRequest),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", u.ID, ErrNotFound)
	}
	if err != nil {
		return nil, duplicate(fmt.Errorf("update user: %w", err))
	}
	return updated, nil
}

// getBy looks a user up by a unique column. column is never caller input.
func (s *PostgresStore) getBy(ctx context.Context, column, value string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if value == "" {
		return nil, fmt.Errorf("user by empty %s: %w", column, ErrNotFound)
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user by %s %q: %w", column, value, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	var next *time.Time
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.GoogleID,
		&u.EmailVerified, &u.VerifyToken, &next, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if next != nil {
		u.NextTokenRequest = *next
	}
	return &u, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func duplicate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
