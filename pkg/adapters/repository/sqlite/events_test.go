package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
)

func appendLinkEvent(t *testing.T, repo *Repository, linkID string, at time.Time, referer, userAgent *string) {
	t.Helper()
	err := repo.Append(context.Background(), &domain.ClickEvent{
		ID:        uuid.NewString(),
		Kind:      domain.ResourceLink,
		LinkID:    linkID,
		Referer:   referer,
		UserAgent: userAgent,
		CreatedAt: at,
	})
	require.NoError(t, err)
}

func ptr(s string) *string { return &s }

func TestAppendBumpsAdvisoryCounters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "cnt123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))
	code := newCode("ws1", "https://example.com", "")
	require.NoError(t, repo.CreateCode(ctx, code))

	now := time.Now().UTC()
	appendLinkEvent(t, repo, link.ID, now, nil, nil)
	appendLinkEvent(t, repo, link.ID, now, nil, nil)
	require.NoError(t, repo.Append(ctx, &domain.ClickEvent{
		ID: uuid.NewString(), Kind: domain.ResourceCode, CodeID: code.ID, CreatedAt: now,
	}))

	gotLink, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gotLink.Clicks)

	gotCode, err := repo.GetCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotCode.Scans)
}

func TestAppendStoresEmptyHeadersAsNull(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "nul123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	appendLinkEvent(t, repo, link.ID, time.Now().UTC(), ptr(""), ptr(""))

	recent, err := repo.RecentEvents(ctx, domain.ResourceLink, link.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Nil(t, recent[0].Referer)
	assert.Nil(t, recent[0].UserAgent)
}

func TestCountEventsBetweenBoundaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "btw123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	from := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC)

	appendLinkEvent(t, repo, link.ID, from.Add(-time.Second), nil, nil) // before
	appendLinkEvent(t, repo, link.ID, from, nil, nil)                   // inclusive start
	appendLinkEvent(t, repo, link.ID, to.Add(-time.Second), nil, nil)   // inside
	appendLinkEvent(t, repo, link.ID, to, nil, nil)                     // exclusive end

	count, err := repo.CountEventsBetween(ctx, domain.ResourceLink, link.ID, from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestDailyCountsSparseAscending(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "day123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	appendLinkEvent(t, repo, link.ID, time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC), nil, nil)
	appendLinkEvent(t, repo, link.ID, time.Date(2026, 8, 3, 21, 0, 0, 0, time.UTC), nil, nil)
	appendLinkEvent(t, repo, link.ID, time.Date(2026, 8, 7, 12, 0, 0, 0, time.UTC), nil, nil)
	// Before the window.
	appendLinkEvent(t, repo, link.ID, time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC), nil, nil)

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	series, err := repo.DailyCounts(ctx, domain.ResourceLink, link.ID, since)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, domain.DailyCount{Date: "2026-08-03", Count: 2}, series[0])
	assert.Equal(t, domain.DailyCount{Date: "2026-08-07", Count: 1}, series[1])
}

func TestReferrerCountsDirectAndOrdering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "ref123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	at := time.Date(2026, 8, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		appendLinkEvent(t, repo, link.ID, at, nil, nil)
	}
	appendLinkEvent(t, repo, link.ID, at, ptr("https://news.example/"), nil)
	appendLinkEvent(t, repo, link.ID, at, ptr("https://news.example/"), nil)
	appendLinkEvent(t, repo, link.ID, at, ptr("https://blog.example/"), nil)
	appendLinkEvent(t, repo, link.ID, at, ptr("https://social.example/"), nil)

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	refs, err := repo.ReferrerCounts(ctx, domain.ResourceLink, link.ID, since, 3)
	require.NoError(t, err)

	require.Len(t, refs, 3)
	assert.Nil(t, refs[0].Referer) // Direct bucket on top with 3
	assert.Equal(t, int64(3), refs[0].Count)
	require.NotNil(t, refs[1].Referer)
	assert.Equal(t, "https://news.example/", *refs[1].Referer)
	// The 1-count tie resolves alphabetically; blog wins over social.
	require.NotNil(t, refs[2].Referer)
	assert.Equal(t, "https://blog.example/", *refs[2].Referer)
}

func TestRecentEventsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "rec123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	base := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		appendLinkEvent(t, repo, link.ID, base.Add(time.Duration(i)*time.Minute), ptr("https://r.example/"), ptr("ua"))
	}

	recent, err := repo.RecentEvents(ctx, domain.ResourceLink, link.ID, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(4*time.Minute), recent[0].CreatedAt)
	assert.Equal(t, base.Add(2*time.Minute), recent[2].CreatedAt)
}

func TestLastEventAt(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "lst123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	last, err := repo.LastEventAt(ctx, domain.ResourceLink, link.ID)
	require.NoError(t, err)
	assert.Nil(t, last)

	at := time.Date(2026, 8, 10, 15, 30, 0, 0, time.UTC)
	appendLinkEvent(t, repo, link.ID, at.Add(-time.Hour), nil, nil)
	appendLinkEvent(t, repo, link.ID, at, nil, nil)

	last, err = repo.LastEventAt(ctx, domain.ResourceLink, link.ID)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, at, *last)
}

func TestUserAgentsSince(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "uas123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	appendLinkEvent(t, repo, link.ID, since.Add(time.Hour), ptr("r"), ptr("Mozilla/5.0 (iPhone)"))
	appendLinkEvent(t, repo, link.ID, since.Add(2*time.Hour), nil, nil)
	appendLinkEvent(t, repo, link.ID, since.Add(-time.Hour), nil, ptr("old-agent"))

	agents, err := repo.UserAgentsSince(ctx, domain.ResourceLink, link.ID, since)
	require.NoError(t, err)
	require.Len(t, agents, 2)
}

func TestRecountClicks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "rcn123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))
	code := newCode("ws1", "https://example.com", "")
	require.NoError(t, repo.CreateCode(ctx, code))

	now := time.Now().UTC()
	appendLinkEvent(t, repo, link.ID, now, nil, nil)
	appendLinkEvent(t, repo, link.ID, now, nil, nil)
	require.NoError(t, repo.Append(ctx, &domain.ClickEvent{
		ID: uuid.NewString(), Kind: domain.ResourceCode, CodeID: code.ID, CreatedAt: now,
	}))

	// Corrupt the advisory counters, then rebuild from the log.
	_, err := repo.DB().ExecContext(ctx, `UPDATE links SET clicks = 99`)
	require.NoError(t, err)
	_, err = repo.DB().ExecContext(ctx, `UPDATE kompi_codes SET scans = 99`)
	require.NoError(t, err)

	require.NoError(t, repo.RecountClicks(ctx))

	gotLink, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), gotLink.Clicks)

	gotCode, err := repo.GetCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gotCode.Scans)
}
