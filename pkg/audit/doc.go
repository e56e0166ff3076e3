// Package audit records security-relevant events: logins, token
// issuance and revocation, and administrative actions.
//
// The database logger writes through its own connection, not the
// request's transaction. A failed login rolls the request transaction
// back, and the audit row must survive exactly those cases.
package audit
