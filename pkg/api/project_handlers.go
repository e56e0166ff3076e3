package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/contextkeys"
	"github.com/benchtop-io/benchtop/pkg/httputil"
	"github.com/benchtop-io/benchtop/pkg/middleware"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// createProject handles POST /projects. The authenticated user becomes
// the owner.
func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteBadRequest(w, "name is required")
		return
	}

	authCtx := middleware.GetAuthContext(r)
	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	project := &store.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     authCtx.User.ID,
	}
	err = session.CreateProject(r.Context(), project)
	if errors.Is(err, store.ErrDuplicateProject) {
		httputil.WriteConflict(w, "project name already taken")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to create project")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(audit.EventTypeProjectCreated, audit.EventStatusSuccess)
	event.UserID = &authCtx.User.ID
	event.Username = authCtx.User.Username
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	event.Message = "created project " + project.Name
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}

	httputil.WriteCreated(w, project)
}

// listProjects handles GET /projects
func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	session, err := store.SessionFrom(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("no session bound to request")
		httputil.WriteInternalError(w)
		return
	}

	page := httputil.ParsePage(r)
	projects, err := session.ListProjects(r.Context(), page.PerPage, page.Offset())
	if err != nil {
		s.logger.WithError(err).Error("failed to list projects")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, projectListResponse{
		Projects: projects,
		Page:     page.Number,
		PerPage:  page.PerPage,
	})
}

// getProject handles GET /projects/{id}
func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
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

	project, err := session.FindProjectByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to load project")
		httputil.WriteInternalError(w)
		return
	}

	httputil.WriteSuccess(w, project)
}

// deleteProject handles DELETE /projects/{id}. Only the owner or an
// administrator may delete a project.
func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.ParsePathInt64(r, "id")
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

	project, err := session.FindProjectByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to load project")
		httputil.WriteInternalError(w)
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if project.OwnerID != authCtx.User.ID && !authCtx.User.IsAdmin {
		s.auditDenied(r, authCtx, "attempted to delete another user's project")
		httputil.WriteForbidden(w, "cannot delete another user's project")
		return
	}

	if err := session.DeleteProject(r.Context(), project.ID); err != nil {
		s.logger.WithError(err).Error("failed to delete project")
		httputil.WriteInternalError(w)
		return
	}

	event := audit.NewEvent(audit.EventTypeProjectDeleted, audit.EventStatusSuccess)
	event.UserID = &authCtx.User.ID
	event.Username = authCtx.User.Username
	event.IPAddress = r.RemoteAddr
	event.RequestID = contextkeys.GetRequestID(r.Context())
	event.Message = "deleted project " + strconv.FormatInt(project.ID, 10)
	if err := s.audit.Log(r.Context(), event); err != nil {
		s.logger.WithError(err).Warn("failed to write audit event")
	}

	httputil.WriteNoContent(w)
}
