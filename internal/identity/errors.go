package identity

import "errors"

var (
	// ErrInvalidToken is returned when a bearer token resolves to no user.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidUsername is returned when a login carries an unusable username.
	ErrInvalidUsername = errors.New("invalid username")
)
