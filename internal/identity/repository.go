package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

// Repository provides database access for identity concerns.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a new Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// IssueOrGetToken persists (username, candidate) unless the username
// already has a token, in which case the existing token is returned.
// The insert-or-fetch is a single statement so concurrent first logins
// for the same username cannot race into duplicate rows.
func (r *Repository) IssueOrGetToken(ctx context.Context, username, candidate string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `
INSERT INTO users (username, token)
VALUES ($1, $2)
ON CONFLICT (username) DO UPDATE SET token = users.token
RETURNING token;`

	var token string
	if err := r.pool.QueryRow(ctx, query, username, candidate).Scan(&token); err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}

	return token, nil
}

// FindUsernameByToken resolves a bearer token to its owning username.
func (r *Repository) FindUsernameByToken(ctx context.Context, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	query := `SELECT username FROM users WHERE token = $1;`

	var username string
	err := r.pool.QueryRow(ctx, query, token).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrInvalidToken
		}
		return "", fmt.Errorf("resolve token: %w", err)
	}

	return username, nil
}
