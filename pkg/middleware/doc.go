// Package middleware provides the authentication gate and rate limiting
// for the HTTP API.
//
// The gate is the single place credentials are verified. It parses the
// Basic Authorization header, decides whether the pair is a bearer token
// or a username/password, verifies it against the request's database
// session, and injects the resolved identity into the request context.
// Handlers downstream never see credentials, only the identity.
package middleware
