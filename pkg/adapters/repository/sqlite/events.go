package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
)

// resourceColumn maps a resource kind to the event column referencing it.
func resourceColumn(kind domain.ResourceKind) (string, error) {
	switch kind {
	case domain.ResourceLink:
		return "link_id", nil
	case domain.ResourceCode:
		return "code_id", nil
	default:
		return "", fmt.Errorf("unknown resource kind %q", kind)
	}
}

// Append writes one immutable click event. The advisory counter on the
// owning resource is bumped in the same transaction so it can only drift
// through event loss, never through a torn write.
func (r *Repository) Append(ctx context.Context, event *domain.ClickEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecorderUnavailable, err)
	}
	defer tx.Rollback()

	var linkID, codeID any
	if event.LinkID != "" {
		linkID = event.LinkID
	}
	if event.CodeID != "" {
		codeID = event.CodeID
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO click_events (id, kind, link_id, code_id, referer, user_agent, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, string(event.Kind), linkID, codeID,
		emptyToNull(event.Referer), emptyToNull(event.UserAgent), fmtTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecorderUnavailable, err)
	}

	switch event.Kind {
	case domain.ResourceLink:
		_, err = tx.ExecContext(ctx, `UPDATE links SET clicks = clicks + 1 WHERE id = ?`, event.LinkID)
	case domain.ResourceCode:
		_, err = tx.ExecContext(ctx, `UPDATE kompi_codes SET scans = scans + 1 WHERE id = ?`, event.CodeID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecorderUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrRecorderUnavailable, err)
	}
	return nil
}

func (r *Repository) CountEvents(ctx context.Context, kind domain.ResourceKind, resourceID string) (int64, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE `+col+` = ?`, resourceID,
	).Scan(&count)
	return count, err
}

func (r *Repository) LastEventAt(ctx context.Context, kind domain.ResourceKind, resourceID string) (*time.Time, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}
	var last sql.NullString
	err = r.db.QueryRowContext(ctx,
		`SELECT MAX(created_at) FROM click_events WHERE `+col+` = ?`, resourceID,
	).Scan(&last)
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	t, err := parseTime(last.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) CountEventsBetween(ctx context.Context, kind domain.ResourceKind, resourceID string, from, to time.Time) (int64, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return 0, err
	}
	var count int64
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM click_events WHERE `+col+` = ? AND created_at >= ? AND created_at < ?`,
		resourceID, fmtTime(from), fmtTime(to),
	).Scan(&count)
	return count, err
}

// DailyCounts buckets events by UTC calendar day. Days with no events are
// omitted; the series is ordered ascending by date.
func (r *Repository) DailyCounts(ctx context.Context, kind domain.ResourceKind, resourceID string, since time.Time) ([]domain.DailyCount, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m-%d', created_at) AS day, COUNT(*)
		FROM click_events
		WHERE `+col+` = ? AND created_at >= ?
		GROUP BY day
		ORDER BY day ASC`,
		resourceID, fmtTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []domain.DailyCount
	for rows.Next() {
		var dc domain.DailyCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		series = append(series, dc)
	}
	return series, rows.Err()
}

// ReferrerCounts groups by the raw referer value; NULL is its own group
// (the Direct bucket). Ties are broken by referer ascending so repeated
// reads return identical order.
func (r *Repository) ReferrerCounts(ctx context.Context, kind domain.ResourceKind, resourceID string, since time.Time, limit int) ([]domain.ReferrerCount, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT referer, COUNT(*) AS c
		FROM click_events
		WHERE `+col+` = ? AND created_at >= ?
		GROUP BY referer
		ORDER BY c DESC, referer ASC
		LIMIT ?`,
		resourceID, fmtTime(since), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ReferrerCount
	for rows.Next() {
		var referer sql.NullString
		var count int64
		if err := rows.Scan(&referer, &count); err != nil {
			return nil, err
		}
		rc := domain.ReferrerCount{Count: count}
		if referer.Valid {
			v := referer.String
			rc.Referer = &v
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *Repository) RecentEvents(ctx context.Context, kind domain.ResourceKind, resourceID string, limit int) ([]domain.EventSummary, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT created_at, referer, user_agent
		FROM click_events
		WHERE `+col+` = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		resourceID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EventSummary
	for rows.Next() {
		var createdAt string
		var referer, userAgent sql.NullString
		if err := rows.Scan(&createdAt, &referer, &userAgent); err != nil {
			return nil, err
		}
		ev := domain.EventSummary{}
		if ev.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if referer.Valid {
			v := referer.String
			ev.Referer = &v
		}
		if userAgent.Valid {
			v := userAgent.String
			ev.UserAgent = &v
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (r *Repository) UserAgentsSince(ctx context.Context, kind domain.ResourceKind, resourceID string, since time.Time) ([]*string, error) {
	col, err := resourceColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_agent FROM click_events WHERE `+col+` = ? AND created_at >= ?`,
		resourceID, fmtTime(since),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*string
	for rows.Next() {
		var ua sql.NullString
		if err := rows.Scan(&ua); err != nil {
			return nil, err
		}
		if ua.Valid {
			v := ua.String
			out = append(out, &v)
		} else {
			out = append(out, nil)
		}
	}
	return out, rows.Err()
}

// RecountClicks rebuilds every advisory counter from the event log.
func (r *Repository) RecountClicks(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE links SET clicks = (SELECT COUNT(*) FROM click_events WHERE click_events.link_id = links.id)`,
	); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE kompi_codes SET scans = (SELECT COUNT(*) FROM click_events WHERE click_events.code_id = kompi_codes.id)`,
	)
	return err
}

func emptyToNull(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
