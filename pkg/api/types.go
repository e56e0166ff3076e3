package api

import (
	"time"

	"github.com/benchtop-io/benchtop/pkg/auth"
	"github.com/benchtop-io/benchtop/pkg/store"
)

// registerRequest is the body of POST /users.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenResponse is the body of a successful POST /tokens. The raw
// token appears here and nowhere else.
type tokenResponse struct {
	Token          string    `json:"token"`
	ExpirationDate time.Time `json:"expiration_date"`
}

// revokeRequest is the body of DELETE /tokens when the target token is
// named explicitly.
type revokeRequest struct {
	Token string `json:"token"`
}

// revokeResponse is the body of a successful DELETE /tokens.
type revokeResponse struct {
	TokenStatus string `json:"token_status"`
}

// userListResponse is the body of GET /users.
type userListResponse struct {
	Users   []auth.PublicUser `json:"users"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// projectRequest is the body of POST /projects.
type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// projectListResponse is the body of GET /projects.
type projectListResponse struct {
	Projects []*store.Project `json:"projects"`
	Page     int              `json:"page"`
	PerPage  int              `json:"per_page"`
}
