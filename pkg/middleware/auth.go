package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/contextkeys"
	"github.com/benchtop-io/benchtop/pkg/httputil"
	"github.com/benchtop-io/benchtop/pkg/observability"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// AuthGate verifies request credentials and resolves them to a user.
// It runs after the session middleware; all lookups go through the
// request's transaction.
type AuthGate struct {
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenGenerator
	logger  *observability.Logger
	metrics *observability.Metrics
	audit   audit.Logger
}

// NewAuthGate creates the authentication gate. The audit logger may be
// nil, in which case rejected credentials leave no trail.
func NewAuthGate(hasher *auth.PasswordHasher, tokens *auth.TokenGenerator, logger *observability.Logger, metrics *observability.Metrics, auditLogger audit.Logger) *AuthGate {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	return &AuthGate{
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger,
		metrics: metrics,
		audit:   auditLogger,
	}
}

// Handler wraps an HTTP handler with credential verification. Requests
// without a parseable Basic header, or whose credentials do not resolve
// to a user, get a uniform 401; the response never distinguishes an
// unknown username from a wrong password. Storage failures are 500,
// never 401, so an outage cannot masquerade as a credential problem.
func (g *AuthGate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			httputil.WriteUnauthorized(w, "authentication required")
			return
		}

		session, err := store.SessionFrom(r.Context())
		if err != nil {
			g.logger.WithError(err).Error("no session bound to request")
			httputil.WriteInternalError(w)
			return
		}

		var authCtx *auth.Context
		switch cred := auth.Classify(username, password).(type) {
		case auth.TokenCandidate:
			authCtx, err = g.authenticateToken(r, session, cred)
		case auth.UsernamePassword:
			authCtx, err = g.authenticatePassword(r, session, cred)
		}
		if err != nil {
			if errors.Is(err, errBadCredentials) {
				g.recordFailure(r, username)
				httputil.WriteUnauthorized(w, "invalid credentials")
				return
			}
			g.logger.WithError(err).
				WithField("request_id", contextkeys.GetRequestID(r.Context())).
				Error("authentication lookup failed")
			httputil.WriteInternalError(w)
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// errBadCredentials marks a credential rejection as opposed to a
// storage failure. It never reaches the client verbatim.
var errBadCredentials = errors.New("invalid credentials")

// recordFailure writes a rejected credential to the audit trail. The
// audit logger has its own connection, so the row survives the request
// transaction rolling back. Token-shaped usernames are withheld; they
// may be live secrets.
func (g *AuthGate) recordFailure(r *http.Request, username string) {
	event := audit.NewEvent(audit.EventTypeLogin, audit.EventStatusFailure)
	if _, ok := auth.Classify(username, "").(auth.TokenCandidate); !ok {
		event.Username = username
	}
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	event.Message = "credential verification failed"
	if err := g.audit.Log(r.Context(), event); err != nil {
		g.logger.WithError(err).Warn("failed to write audit event")
	}
}

// authenticateToken tries the token reading of the credential pair. A
// candidate that matches no stored hash is retried as a username,
// because token classification is by shape only. A candidate that
// matches a stored row but fails verification is rejected outright;
// an expired token must not silently degrade into a password attempt.
func (g *AuthGate) authenticateToken(r *http.Request, session *store.Session, cred auth.TokenCandidate) (*auth.Context, error) {
	token, err := session.FindTokenByHash(r.Context(), g.tokens.Hash(cred.Raw))
	if errors.Is(err, store.ErrNotFound) {
		return g.authenticatePassword(r, session, cred.Fallback)
	}
	if err != nil {
		return nil, err
	}

	if !g.tokens.Verify(cred.Raw, token, time.Now()) {
		g.metrics.RecordAuthAttempt(observability.AuthMethodToken, false)
		return nil, errBadCredentials
	}

	user, err := session.FindUserByID(r.Context(), token.UserID)
	if errors.Is(err, store.ErrNotFound) {
		g.metrics.RecordAuthAttempt(observability.AuthMethodToken, false)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	g.metrics.RecordAuthAttempt(observability.AuthMethodToken, true)
	return &auth.Context{
		User:      user,
		ViaToken:  true,
		RawToken:  cred.Raw,
		RequestID: contextkeys.GetRequestID(r.Context()),
	}, nil
}

// authenticatePassword verifies a username/password pair.
func (g *AuthGate) authenticatePassword(r *http.Request, session *store.Session, cred auth.UsernamePassword) (*auth.Context, error) {
	user, err := session.FindUserByUsername(r.Context(), cred.Username)
	if errors.Is(err, store.ErrNotFound) {
		g.metrics.RecordAuthAttempt(observability.AuthMethodPassword, false)
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}

	if !g.hasher.Verify(cred.Password, user.PasswordHash) {
		g.metrics.RecordAuthAttempt(observability.AuthMethodPassword, false)
		return nil, errBadCredentials
	}

	g.metrics.RecordAuthAttempt(observability.AuthMethodPassword, true)
	return &auth.Context{
		User:      user,
		ViaToken:  false,
		RequestID: contextkeys.GetRequestID(r.Context()),
	}, nil
}

// GetAuthContext extracts the resolved identity from the request, or
// nil when the request never passed through the gate.
func GetAuthContext(r *http.Request) *auth.Context {
	authCtx, _ := r.Context().Value(contextkeys.AuthKey).(*auth.Context)
	return authCtx
}
