package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/contextkeys"
	"github.com/benchtop-io/benchtop/pkg/httputil"
	"github.com/benchtop-io/benchtop/pkg/middleware"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// createToken handles POST /tokens. The request must have
// authenticated with a password; a token cannot mint its own
// replacement, otherwise one leaked token would grant indefinite
// access.
func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx.ViaToken {
		httputil.WriteForbidden(w, "cannot create a token with an existing token")
		return
	}

	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	ttl := s.defaultTTL
	if v := r.URL.Query().Get("expiration"); v != "" {
		// Malformed or non-positive values fall back to the default
		// lifetime rather than erroring.
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			ttl = time.Duration(seconds) * time.Second
		}
	}

	raw, hash := s.tokens.Generate()
	token := &auth.Token{
		UserID:         authCtx.User.ID,
		TokenHash:      hash,
		ExpirationDate: time.Now().UTC().Add(ttl).Truncate(time.Microsecond),
	}
	if err := session.CreateToken(r.Context(), token); err != nil {
		s.logger.WithError(err).Error("failed to store token")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TokensIssuedTotal.Inc()
	s.auditTokenEvent(r, audit.EventTypeTokenIssued, authCtx, token.ID)

	httputil.WriteCreated(w, tokenResponse{
		Token:          raw,
		ExpirationDate: token.ExpirationDate,
	})
}

// revokeToken handles DELETE /tokens. A token-authenticated request
// with no body revokes the token that performed it; otherwise the body
// names the target. Only the owner or an administrator may revoke a
// token.
func (s *Server) revokeToken(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	raw, ok := s.revocationTarget(w, r, authCtx)
	if !ok {
		return
	}

	token, err := session.FindTokenByHash(r.Context(), s.tokens.Hash(raw))
	if errors.Is(err, store.ErrNotFound) {
		// An unknown token is a malformed request, not a missing
		// resource: /tokens does not address tokens by id, and a 404
		// would leak whether a guessed value ever existed.
		httputil.WriteBadRequest(w, "unknown token")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to look up token")
		httputil.WriteInternalError(w)
		return
	}

	if token.UserID != authCtx.User.ID && !authCtx.User.IsAdmin {
		s.auditDenied(r, authCtx, "attempted to revoke another user's token")
		httputil.WriteForbidden(w, "cannot revoke another user's token")
		return
	}

	if err := session.RevokeToken(r.Context(), token.ID, time.Now()); err != nil {
		s.logger.WithError(err).Error("failed to revoke token")
		httputil.WriteInternalError(w)
		return
	}

	s.metrics.TokensRevokedTotal.Inc()
	s.auditTokenEvent(r, audit.EventTypeTokenRevoked, authCtx, token.ID)

	httputil.WriteSuccess(w, revokeResponse{TokenStatus: "deleted"})
}

// revocationTarget resolves which raw token a DELETE /tokens request
// refers to. Reports false after writing the error response.
func (s *Server) revocationTarget(w http.ResponseWriter, r *http.Request, authCtx *auth.Context) (string, bool) {
	var req revokeRequest
	err := httputil.ParseJSON(r, &req)
	switch {
	case err == nil && req.Token != "":
		return req.Token, true
	case errors.Is(err, io.EOF), err != nil && r.ContentLength == 0:
		// No body. A token-authenticated request targets itself.
		if authCtx.ViaToken {
			return authCtx.RawToken, true
		}
		httputil.WriteBadRequest(w, "token is required")
		return "", false
	case err != nil:
		httputil.WriteBadRequest(w, err.Error())
		return "", false
	default:
		httputil.WriteBadRequest(w, "token is required")
		return "", false
	}
}

func (s *Server) auditTokenEvent(r *http.Request, eventType audit.EventType, authCtx *auth.Context, tokenID int64) {
	event := audit.NewEvent(eventType, audit.EventStatusSuccess)
	event.UserID = &authCtx.User.ID
	event.Username = authCtx.User.Username
	event.TokenID = &tokenID
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
}

func (s *Server) auditDenied(r *http.Request, authCtx *auth.Context, message string) {
	event := audit.NewEvent(audit.EventTypeAccessDenied, audit.EventStatusDenied)
	event.UserID = &authCtx.User.ID
	event.Username = authCtx.User.Username
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	event.Message = message
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}
}
