package identity

import "time"

// User maps a username to its bearer token. The username is the natural
// key; at most one active token exists per username.
type User struct {
	ID        int64
	Username  string
	Token     string
	CreatedAt time.Time
}

// Credentials is what a successful login returns.
type Credentials struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}
