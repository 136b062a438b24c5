package domain

import "time"

// KompiCode is a printable/scannable code. Destination is the exact string
// encoded into the QR payload. When LinkID is set the code is chained to a
// platform short link and Destination is the canonical short-link path for
// that link, so edits to the link's target propagate without reprinting.
type KompiCode struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Destination string     `json:"destination"`
	Title       string     `json:"title,omitempty"`
	Type        string     `json:"type,omitempty"` // content tag (url, wifi, contact, ...); never interpreted
	LinkID      string     `json:"link_id,omitempty"`
	Scans       int64      `json:"scans"` // advisory, like Link.Clicks
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// Chained reports whether the code routes through a platform short link.
func (c *KompiCode) Chained() bool {
	return c != nil && c.LinkID != ""
}
