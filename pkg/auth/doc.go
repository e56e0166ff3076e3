// Package auth implements the credential primitives for Benchtop:
// password hashing, opaque API token generation and verification, and
// the request identity context shared with the HTTP layer.
//
// Passwords are hashed with bcrypt, which embeds a per-call random salt
// in the digest. Raw passwords are never persisted or logged.
//
// Tokens are random UUIDs handed to the client exactly once at issuance.
// Only the hex-encoded SHA-256 digest of the raw value is stored; a fast
// hash is acceptable here because tokens are high-entropy random values,
// unlike passwords. A token is valid while its expiration date has not
// passed. Revocation sets the expiration date to the current time, so
// revoked and naturally expired tokens are indistinguishable, and the
// row is kept as a login-history audit trail.
package auth
