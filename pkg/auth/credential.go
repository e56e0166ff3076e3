package auth

import "github.com/google/uuid"

// Credential is the classified form of the value pair carried in a Basic
// Authorization header. The first field is either a username or a raw
// token; classification is by shape only and never a security decision.
// A TokenCandidate that matches no stored token hash must be retried as
// a username, because nothing stops a username from looking like a
// token.
type Credential interface {
	credential()
}

// TokenCandidate is a token-shaped credential: the username field of the
// Basic header parsed as a UUID.
type TokenCandidate struct {
	Raw string

	// Fallback holds the username/password reading of the same header
	// for when no token matches the candidate.
	Fallback UsernamePassword
}

// UsernamePassword is a long-term credential pair.
type UsernamePassword struct {
	Username string
	Password string
}

func (TokenCandidate) credential()   {}
func (UsernamePassword) credential() {}

// Classify inspects a Basic credential pair and decides which
// authentication path to try first. Token-shaped values are tried as
// tokens; everything else goes straight to password verification.
func Classify(usernameOrToken, password string) Credential {
	if _, err := uuid.Parse(usernameOrToken); err == nil {
		return TokenCandidate{
			Raw:      usernameOrToken,
			Fallback: UsernamePassword{Username: usernameOrToken, Password: password},
		}
	}
	return UsernamePassword{Username: usernameOrToken, Password: password}
}
