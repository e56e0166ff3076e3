package audit

import "time"

// EventType classifies an audit event.
type EventType string

// Event types recorded by the service.
const (
	EventTypeLogin          EventType = "auth.login"
	EventTypeTokenIssued    EventType = "auth.token_issued"
	EventTypeTokenRevoked   EventType = "auth.token_revoked"
	EventTypeUserCreated    EventType = "user.created"
	EventTypeUserDeleted    EventType = "user.deleted"
	EventTypeProjectCreated EventType = "project.created"
	EventTypeProjectDeleted EventType = "project.deleted"
	EventTypeAccessDenied   EventType = "access.denied"
)

// EventStatus is the outcome of the recorded action.
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event is a single audit record.
type Event struct {
	ID        int64       `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// UserID is the acting user, when one was resolved. Failed logins
	// carry only the presented username.
	UserID   *int64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`

	// TokenID is set for token lifecycle events.
	TokenID *int64 `json:"token_id,omitempty"`

	IPAddress string `json:"ip_address,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// SearchFilter narrows an audit query. Zero values mean "any".
type SearchFilter struct {
	StartTime *time.Time
	EndTime   *time.Time
	UserID    *int64
	Username  string
	EventType EventType
	Status    EventStatus
	Limit     int
	Offset    int
}
