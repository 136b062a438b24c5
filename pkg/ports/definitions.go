package ports

import (
	"context"
	"time"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
)

// LinkRepository defines storage operations for links
type LinkRepository interface {
	Create(ctx context.Context, link *domain.Link) error
	GetByCode(ctx context.Context, code string) (*domain.Link, error)
	GetByID(ctx context.Context, id string) (*domain.Link, error)
	Update(ctx context.Context, link *domain.Link) error
	Delete(ctx context.Context, id string) error // Soft delete; events are retained
	List(ctx context.Context, workspaceID string, limit, offset int) ([]domain.Link, error)
	CountActive(ctx context.Context, workspaceID string) (int64, error)
	Dump(ctx context.Context) ([]domain.Link, error) // For admin export
}

// CodeRepository defines storage operations for Kompi Codes
type CodeRepository interface {
	CreateCode(ctx context.Context, code *domain.KompiCode) error
	GetCode(ctx context.Context, id string) (*domain.KompiCode, error)
	UpdateCode(ctx context.Context, code *domain.KompiCode) error
	DeleteCode(ctx context.Context, id string) error // Soft delete; events are retained
	ListCodes(ctx context.Context, workspaceID string, limit, offset int) ([]domain.KompiCode, error)
}

// EventStore appends and reads the immutable click/scan log.
type EventStore interface {
	// Append writes one event and bumps the advisory counter on the owning
	// resource in the same transaction.
	Append(ctx context.Context, event *domain.ClickEvent) error

	CountEvents(ctx context.Context, kind domain.ResourceKind, resourceID string) (int64, error)
	LastEventAt(ctx context.Context, kind domain.ResourceKind, resourceID string) (*time.Time, error)
	CountEventsBetween(ctx context.Context, kind domain.ResourceKind, resourceID string, from, to time.Time) (int64, error)
	DailyCounts(ctx context.Context, kind domain.ResourceKind, resourceID string, since time.Time) ([]domain.DailyCount, error)
	ReferrerCounts(ctx context.Context, kind domain.ResourceKind, resourceID string, since time.Time, limit int) ([]domain.ReferrerCount, error)
	RecentEvents(ctx context.Context, kind domain.ResourceKind, resourceID string, limit int) ([]domain.EventSummary, error)
	UserAgentsSince(ctx context.Context, kind domain.ResourceKind, resourceID string, since time.Time) ([]*string, error)

	// RecountClicks recomputes the advisory counter for every link and code
	// from the event log (admin/background operation).
	RecountClicks(ctx context.Context) error
}

// Recorder accepts click events after the redirect response has been
// committed. Enqueue must never block the caller.
type Recorder interface {
	Enqueue(event domain.ClickEvent) bool
	Close()
}

// PlanGate is the billing-side precondition collaborator: may this
// workspace create another active link?
type PlanGate interface {
	AllowCreateLink(ctx context.Context, workspaceID string) error
}

// LinkService defines the registry operations for links
type LinkService interface {
	CreateLink(ctx context.Context, workspaceID, targetURL, customCode, title string) (*domain.Link, error)
	UpdateLink(ctx context.Context, workspaceID, id, targetURL, title string) (*domain.Link, error)
	DeleteLink(ctx context.Context, workspaceID, id string) error
	GetLink(ctx context.Context, workspaceID, id string) (*domain.Link, error)
	ListLinks(ctx context.Context, workspaceID string, page, limit int) ([]domain.Link, error)
	ResolveCode(ctx context.Context, code string) (*domain.Link, error)
}

// CodeService defines the registry operations for Kompi Codes
type CodeService interface {
	CreateCode(ctx context.Context, workspaceID, destination, title, codeType, linkedLinkID string) (*domain.KompiCode, error)
	UpdateCode(ctx context.Context, workspaceID, id, destination, title, codeType string) (*domain.KompiCode, error)
	DeleteCode(ctx context.Context, workspaceID, id string) error
	GetCode(ctx context.Context, workspaceID, id string) (*domain.KompiCode, error)
	ListCodes(ctx context.Context, workspaceID string, page, limit int) ([]domain.KompiCode, error)
}

// Resolver turns an inbound public code into a redirect destination and
// hands the click off for asynchronous recording.
type Resolver interface {
	ResolveLink(ctx context.Context, code, referer, userAgent string) (string, error)
	ResolveKompiCode(ctx context.Context, id, referer, userAgent string) (string, error)
}

// AnalyticsService computes read-side views over the event log.
type AnalyticsService interface {
	TotalCount(ctx context.Context, kind domain.ResourceKind, resourceID string) (int64, error)
	LastEventAt(ctx context.Context, kind domain.ResourceKind, resourceID string) (*time.Time, error)
	DailyTimeSeries(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays int) ([]domain.DailyCount, error)
	TopReferrers(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays, limit int) ([]domain.ReferrerCount, error)
	RecentEvents(ctx context.Context, kind domain.ResourceKind, resourceID string, limit int) ([]domain.EventSummary, error)
	WindowCountAndGrowth(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays int) (domain.Growth, error)
	DeviceBreakdown(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays int) ([]domain.DeviceCount, error)
	Summary(ctx context.Context, kind domain.ResourceKind, resourceID string) (*domain.AnalyticsSummary, error)
}
