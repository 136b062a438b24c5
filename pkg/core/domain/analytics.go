package domain

import "time"

// DailyCount is one day bucket of a time series. Date is YYYY-MM-DD in UTC.
// Series are sparse: days with no events are omitted.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// ReferrerCount groups events by raw referer value. A nil Referer is the
// "Direct" bucket, distinct from any string value.
type ReferrerCount struct {
	Referer *string `json:"referer"`
	Count   int64   `json:"count"`
}

// DeviceCount groups events by device class parsed from the user agent.
type DeviceCount struct {
	Device string `json:"device"`
	Count  int64  `json:"count"`
}

// Growth compares the trailing window against the window before it.
// When the previous window is empty and the current one is not, Percent is
// 100 and NewActivity is set so callers can tell the sentinel from a
// computed doubling.
type Growth struct {
	CurrentWindow  int64 `json:"current_window"`
	PreviousWindow int64 `json:"previous_window"`
	Percent        int   `json:"percent"`
	NewActivity    bool  `json:"new_activity"`
}

// AnalyticsSummary is the composed per-resource analytics view served to
// the dashboard.
type AnalyticsSummary struct {
	Total       int64           `json:"total"`
	LastEventAt *time.Time      `json:"last_event_at"`
	Timeseries  []DailyCount    `json:"timeseries"`
	Referrers   []ReferrerCount `json:"referrers"`
	Recent      []EventSummary  `json:"recent_events"`
	Devices     []DeviceCount   `json:"devices"`
	Growth      Growth          `json:"growth"`
}
