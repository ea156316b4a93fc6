package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const UserStatusActive = "active"

type User struct {
	ID           string
	Email        string
	Role         string
	PasswordHash string
}

type StoreAPI interface {
	FindActiveUserByEmail(ctx context.Context, email string) (User, error)
	UpdateLastLogin(ctx context.Context, userID string) error
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) FindActiveUserByEmail(ctx context.Context, email string) (User, error) {
	var out User
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, role, password_hash
    FROM users
    WHERE lower(email) = lower($1) AND status = $2
  `, email, UserStatusActive).Scan(&out.ID, &out.Email, &out.Role, &out.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	return out, err
}

func (s *Store) UpdateLastLogin(ctx context.Context, userID string) error {
	_, err := s.DB.Exec(ctx, "UPDATE users SET last_login = now() WHERE id = $1", userID)
	return err
}

// EnsureUser creates the user when the email is unknown and leaves existing
// accounts untouched.
func (s *Store) EnsureUser(ctx context.Context, email, role, passwordHash string) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO users (email, role, password_hash, status)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (email) DO NOTHING
  `, email, role, passwordHash, UserStatusActive)
	return err
}
