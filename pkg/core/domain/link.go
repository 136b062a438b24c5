package domain

import "time"

// Link binds a short code to a destination URL.
//
// Clicks is an advisory counter kept in step with the event log as a
// fast-path estimate for list views. The event log is the source of truth;
// single-resource analytics always count events.
type Link struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Code        string     `json:"code,omitempty"`
	TargetURL   string     `json:"target_url"`
	Title       string     `json:"title,omitempty"`
	Clicks      int64      `json:"clicks"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Resolvable reports whether public resolution may redirect through this link.
func (l *Link) Resolvable() bool {
	return l != nil && l.IsActive && l.DeletedAt == nil
}
