package domain

import "time"

// ResourceKind identifies which resource a click event was recorded against.
type ResourceKind string

const (
	ResourceLink ResourceKind = "link"
	ResourceCode ResourceKind = "code"
)

// ClickEvent is one resolution of a link or code. Events are append-only:
// they are never updated and never deleted by normal operation, and every
// count exposed by the analytics layer is derived from them.
type ClickEvent struct {
	ID        string       `json:"id"`
	Kind      ResourceKind `json:"kind"`
	LinkID    string       `json:"link_id,omitempty"`
	CodeID    string       `json:"code_id,omitempty"`
	Referer   *string      `json:"referer"`
	UserAgent *string      `json:"user_agent"`
	CreatedAt time.Time    `json:"created_at"`
}

// EventSummary is the projection exposed by recent-activity views.
// Internal identifiers stay internal.
type EventSummary struct {
	CreatedAt time.Time `json:"created_at"`
	Referer   *string   `json:"referer"`
	UserAgent *string   `json:"user_agent"`
}
