package api

import (
	"errors"
	"net/http"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/contextkeys"
	"github.com/benchtop-io/benchtop/pkg/httputil"
	"github.com/benchtop-io/benchtop/pkg/middleware"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// registerUser handles POST /users. Registration is open; the created
// account is never an administrator.
func (s *Server) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Username == "" {
		httputil.WriteBadRequest(w, "username is required")
		return
	}
	if req.Email == "" {
		httputil.WriteBadRequest(w, "email is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "password is required")
		return
	}

	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.WithError(err).Error("failed to hash password")
		httputil.WriteInternalError(w)
		return
	}

	user := &auth.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: digest,
	}
	err = session.CreateUser(r.Context(), user)
	if errors.Is(err, store.ErrDuplicateUsername) {
		httputil.WriteConflict(w, "username already taken")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to create user")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(audit.EventTypeUserCreated, audit.EventStatusSuccess)
	event.UserID = &user.ID
	event.Username = user.Username
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}

	httputil.WriteCreated(w, user.Public())
}

// listUsers handles GET /users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	page := httputil.ParsePage(r)
	users, err := session.ListUsers(r.Context(), page.PerPage, page.Offset())
	if err != nil {
		s.logger.WithError(err).Error("failed to list users")
		httputil.WriteInternalError(w)
		return
	}

	public := make([]auth.PublicUser, 0, len(users))
	for _, user := range users {
		public = append(public, user.Public())
	}

	httputil.WriteSuccess(w, userListResponse{
		Users:   public,
		Page:    page.Number,
		PerPage: page.PerPage,
	})
}

// getUser handles GET /users/{username}
func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	username, err := httputil.ParsePathString(r, "username")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	user, err := session.FindUserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to load user")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, user.Public())
}

// deleteUser handles DELETE /users/{username}. Users may delete their
// own account; administrators may delete anyone. Tokens and projects
// go with the account.
func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	username, err := httputil.ParsePathString(r, "username")
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if username != authCtx.User.Username && !authCtx.User.IsAdmin {
		s.auditDenied(r, authCtx, "attempted to delete another user")
		httputil.WriteForbidden(w, "cannot delete another user")
		return
	}

	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	user, err := session.FindUserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFoundError(w, "user not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to load user")
		httputil.WriteInternalError(w)
		return
	}

	if err := session.DeleteUser(r.Context(), user.ID); err != nil {
		s.logger.WithError(err).Error("failed to delete user")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(audit.EventTypeUserDeleted, audit.EventStatusSuccess)
	event.UserID = &authCtx.User.ID
	event.Username = authCtx.User.Username
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	event.Message = "deleted user " + username
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}

	httputil.WriteNoContent(w)
}
