package api

import (
	"net/http"

	"github.com/benchtop-io/benchtop/pkg/audit"
	"github.com/benchtop-io/benchtop/pkg/httputil"
	"github.com/benchtop-io/benchtop/pkg/middleware"
)

// auditListResponse is the body of GET /audit.
type auditListResponse struct {
	Events  []*audit.Event `json:"events"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// searchAudit handles GET /audit. The trail is restricted to
// administrators.
func (s *Server) searchAudit(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if !authCtx.User.IsAdmin {
		s.auditDenied(r, authCtx, "attempted to read the audit trail")
		httputil.WriteForbidden(w, "administrator access required")
		return
	}

	page := httputil.ParsePage(r)
	filter := audit.SearchFilter{
		Username:  r.URL.Query().Get("username"),
		EventType: audit.EventType(r.URL.Query().Get("event_type")),
		Status:    audit.EventStatus(r.URL.Query().Get("status")),
		Limit:     page.PerPage,
		Offset:    page.Offset(),
	}

	events, err := s.audit.Search(r.Context(), filter)
	if err != nil {
		s.logger.WithError(err).Error("failed to search audit trail")
		httputil.WriteInternalError(w)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}

	httputil.WriteSuccess(w, auditListResponse{
		Events:  events,
		Page:    page.Number,
		PerPage: page.PerPage,
	})
}
