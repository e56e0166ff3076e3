package auth

import "time"

// User represents a registered account. The IsAdmin flag is a capability
// marker: administrators may revoke any user's token and delete any
// user or project. There is no separate administrator table.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose the digest
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the representation returned by the users API.
type PublicUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the API representation of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// Token is a stored authentication token. The raw value is never
// persisted; TokenHash is the hex SHA-256 digest of the raw value and is
// the lookup key for bearer authentication.
type Token struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	TokenHash      string    `json:"-"` // Never expose the digest
	CreatedAt      time.Time `json:"created_at"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// Active reports whether the token is still usable at the given instant.
// Revocation moves the expiration date to the moment of revocation, so a
// revoked token is simply an expired one.
func (t *Token) Active(now time.Time) bool {
	return !now.After(t.ExpirationDate)
}

// Context carries the resolved identity of an authenticated request. It
// is built by the authentication middleware before any protected handler
// runs and is discarded with the request; it is never persisted or
// shared across requests.
type Context struct {
	// User is the authenticated principal.
	User *User

	// ViaToken is true when the request authenticated with a bearer
	// token rather than a username/password pair. Token issuance is
	// refused for token-authenticated requests.
	ViaToken bool

	// RawToken holds the presented token string when ViaToken is true,
	// so that a token-authenticated logout can revoke the session that
	// performed it without a request body.
	RawToken string

	// RequestID is the per-request correlation id.
	RequestID string
}
