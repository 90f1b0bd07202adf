package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("user already registered")

	// ErrBadCredentials is returned for unknown users and wrong
	// passwords alike.
	ErrBadCredentials = errors.New("invalid login credentials")
)

// User is one users row.
type User struct {
	ID    string
	Email string
}

// AuthStore owns the users and credentials tables.
type AuthStore struct {
	db *sql.DB
}

// NewAuthStore creates an auth store.
func NewAuthStore(db *sql.DB) *AuthStore {
	return &AuthStore{db: db}
}

const uniqueViolation = "23505"

// CreateUser inserts a user and their password hash in one
// transaction. A duplicate email maps to ErrEmailTaken.
func (s *AuthStore) CreateUser(ctx context.Context, email, passwordHash string) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer tx.Rollback()

	var user User
	err = tx.QueryRowContext(ctx,
		`INSERT INTO users (email) VALUES ($1) RETURNING id, email`,
		strings.ToLower(email),
	).Scan(&user.ID, &user.Email)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (user_id, password_hash) VALUES ($1, $2)`,
		user.ID, passwordHash,
	)
	if err != nil {
		return User{}, fmt.Errorf("insert credentials: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies the email/password pair and returns the user.
// Unknown emails and wrong passwords both map to ErrBadCredentials.
func (s *AuthStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	var user User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, c.password_hash
		   FROM users u JOIN credentials c ON c.user_id = u.id
		  WHERE LOWER(u.email) = $1`,
		strings.ToLower(email),
	).Scan(&user.ID, &user.Email, &hash)
	if err == sql.ErrNoRows {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}

	if err := VerifyPassword(hash, password); err != nil {
		return User{}, ErrBadCredentials
	}
	return user, nil
}

// GetUser fetches a user by id.
func (s *AuthStore) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Email)
	if err != nil {
		return User{}, err
	}
	return user, nil
}
