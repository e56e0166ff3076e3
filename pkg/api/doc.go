// Package api wires the HTTP surface: routing, the middleware chain,
// and the handlers for tokens, users, projects, and the audit trail.
package api
