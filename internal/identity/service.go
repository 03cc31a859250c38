package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	tokenLength       = 32
	maxUsernameLength = 128
)

// userStore abstracts the persistence layer.
type userStore interface {
	IssueOrGetToken(ctx context.Context, username, candidate string) (string, error)
	FindUsernameByToken(ctx context.Context, token string) (string, error)
}

// Service issues and resolves opaque bearer tokens.
type Service struct {
	store userStore
}

// NewService creates a Service with dependencies.
func NewService(store userStore) *Service {
	return &Service{store: store}
}

// Login returns the token for a username, minting one on first login.
// Repeated logins for the same username return the same token.
func (s *Service) Login(ctx context.Context, username string) (Credentials, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > maxUsernameLength {
		return Credentials{}, ErrInvalidUsername
	}

	candidate, err := generateToken()
	if err != nil {
		return Credentials{}, fmt.Errorf("generate token: %w", err)
	}

	token, err := s.store.IssueOrGetToken(ctx, username, candidate)
	if err != nil {
		return Credentials{}, fmt.Errorf("issue or get token: %w", err)
	}

	return Credentials{Username: username, Token: token}, nil
}

// Resolve maps a bearer token to its owning username. A missing or
// unknown token fails closed with ErrInvalidToken.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	return s.store.FindUsernameByToken(ctx, token)
}

func generateToken() (string, error) {
	raw := make([]byte, tokenLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
