package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// Default windows and limits for the composed dashboard view.
const (
	DefaultTimeseriesDays = 30
	DefaultReferrerLimit  = 8
	DefaultRecentLimit    = 20
	DefaultGrowthDays     = 7
)

// AnalyticsService computes derived views over the click-event log.
// Every method is a pure read: no side effects, safe to call concurrently
// and repeatedly. Counts always come from the event rows, never from the
// advisory counters.
type AnalyticsService struct {
	events ports.EventStore
	now    func() time.Time
}

func NewAnalyticsService(events ports.EventStore) *AnalyticsService {
	return &AnalyticsService{events: events, now: time.Now}
}

// NewAnalyticsServiceAt pins the clock, for deterministic window tests.
func NewAnalyticsServiceAt(events ports.EventStore, now func() time.Time) *AnalyticsService {
	return &AnalyticsService{events: events, now: now}
}

func (s *AnalyticsService) TotalCount(ctx context.Context, kind domain.ResourceKind, resourceID string) (int64, error) {
	return s.events.CountEvents(ctx, kind, resourceID)
}

func (s *AnalyticsService) LastEventAt(ctx context.Context, kind domain.ResourceKind, resourceID string) (*time.Time, error) {
	return s.events.LastEventAt(ctx, kind, resourceID)
}

// DailyTimeSeries buckets events by UTC calendar day over the trailing
// window. The series is sparse and ordered ascending by date.
func (s *AnalyticsService) DailyTimeSeries(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays int) ([]domain.DailyCount, error) {
	if windowDays < 1 {
		windowDays = DefaultTimeseriesDays
	}
	return s.events.DailyCounts(ctx, kind, resourceID, s.windowStart(windowDays))
}

// TopReferrers groups by raw referer value. The store orders by count
// descending with referer ascending on ties; the NULL group is the Direct
// bucket.
func (s *AnalyticsService) TopReferrers(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays, limit int) ([]domain.ReferrerCount, error) {
	if windowDays < 1 {
		windowDays = DefaultTimeseriesDays
	}
	if limit < 1 {
		limit = DefaultReferrerLimit
	}
	return s.events.ReferrerCounts(ctx, kind, resourceID, s.windowStart(windowDays), limit)
}

func (s *AnalyticsService) RecentEvents(ctx context.Context, kind domain.ResourceKind, resourceID string, limit int) ([]domain.EventSummary, error) {
	if limit < 1 {
		limit = DefaultRecentLimit
	}
	return s.events.RecentEvents(ctx, kind, resourceID, limit)
}

// WindowCountAndGrowth compares the trailing window against the window of
// the same length immediately before it.
func (s *AnalyticsService) WindowCountAndGrowth(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays int) (domain.Growth, error) {
	if windowDays < 1 {
		windowDays = DefaultGrowthDays
	}
	now := s.now().UTC()
	windowLen := time.Duration(windowDays) * 24 * time.Hour
	currentFrom := now.Add(-windowLen)
	previousFrom := currentFrom.Add(-windowLen)

	current, err := s.events.CountEventsBetween(ctx, kind, resourceID, currentFrom, now)
	if err != nil {
		return domain.Growth{}, err
	}
	previous, err := s.events.CountEventsBetween(ctx, kind, resourceID, previousFrom, currentFrom)
	if err != nil {
		return domain.Growth{}, err
	}
	return growth(current, previous), nil
}

// DeviceBreakdown classifies user agents from the trailing window into
// coarse device classes. The parse is deterministic: the same set of
// events always yields the same distribution.
func (s *AnalyticsService) DeviceBreakdown(ctx context.Context, kind domain.ResourceKind, resourceID string, windowDays int) ([]domain.DeviceCount, error) {
	if windowDays < 1 {
		windowDays = DefaultTimeseriesDays
	}
	agents, err := s.events.UserAgentsSince(ctx, kind, resourceID, s.windowStart(windowDays))
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, ua := range agents {
		counts[ClassifyDevice(ua)]++
	}

	out := make([]domain.DeviceCount, 0, len(counts))
	for device, count := range counts {
		out = append(out, domain.DeviceCount{Device: device, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Device < out[j].Device
	})
	return out, nil
}

// Summary composes the per-resource dashboard view with the default
// windows: lifetime total, last event, 30-day series and referrers,
// 20 recent events, 7-day growth, 30-day device split.
func (s *AnalyticsService) Summary(ctx context.Context, kind domain.ResourceKind, resourceID string) (*domain.AnalyticsSummary, error) {
	total, err := s.TotalCount(ctx, kind, resourceID)
	if err != nil {
		return nil, err
	}
	last, err := s.LastEventAt(ctx, kind, resourceID)
	if err != nil {
		return nil, err
	}
	series, err := s.DailyTimeSeries(ctx, kind, resourceID, DefaultTimeseriesDays)
	if err != nil {
		return nil, err
	}
	referrers, err := s.TopReferrers(ctx, kind, resourceID, DefaultTimeseriesDays, DefaultReferrerLimit)
	if err != nil {
		return nil, err
	}
	recent, err := s.RecentEvents(ctx, kind, resourceID, DefaultRecentLimit)
	if err != nil {
		return nil, err
	}
	devices, err := s.DeviceBreakdown(ctx, kind, resourceID, DefaultTimeseriesDays)
	if err != nil {
		return nil, err
	}
	g, err := s.WindowCountAndGrowth(ctx, kind, resourceID, DefaultGrowthDays)
	if err != nil {
		return nil, err
	}

	return &domain.AnalyticsSummary{
		Total:       total,
		LastEventAt: last,
		Timeseries:  series,
		Referrers:   referrers,
		Recent:      recent,
		Devices:     devices,
		Growth:      g,
	}, nil
}

func (s *AnalyticsService) windowStart(windowDays int) time.Time {
	return s.now().UTC().AddDate(0, 0, -windowDays)
}

// growth computes period-over-period percentage. An empty previous window
// with current activity reports the new-activity sentinel (100) instead of
// a division by zero; two empty windows are flat.
func growth(current, previous int64) domain.Growth {
	g := domain.Growth{CurrentWindow: current, PreviousWindow: previous}
	switch {
	case previous == 0 && current > 0:
		g.Percent = 100
		g.NewActivity = true
	case previous == 0:
		g.Percent = 0
	default:
		g.Percent = int(math.Round(float64(current-previous) / float64(previous) * 100))
	}
	return g
}

var _ ports.AnalyticsService = (*AnalyticsService)(nil)
