package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "kompi.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newLink(workspaceID, code, target string) *domain.Link {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Link{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Code:        code,
		TargetURL:   target,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newCode(workspaceID, destination, linkID string) *domain.KompiCode {
	now := time.Now().UTC().Truncate(time.Second)
	return &domain.KompiCode{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Destination: destination,
		LinkID:      linkID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestLinkRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "abc123", "https://example.com")
	link.Title = "Example"
	require.NoError(t, repo.Create(ctx, link))

	byCode, err := repo.GetByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.ID, byCode.ID)
	assert.Equal(t, "ws1", byCode.WorkspaceID)
	assert.Equal(t, "https://example.com", byCode.TargetURL)
	assert.Equal(t, "Example", byCode.Title)
	assert.True(t, byCode.IsActive)
	assert.Equal(t, link.CreatedAt, byCode.CreatedAt)

	byID, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "abc123", byID.Code)
}

func TestDuplicateCodeConflict(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newLink("ws1", "taken", "https://a.example")))

	err := repo.Create(ctx, newLink("ws2", "taken", "https://b.example"))
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestGetMissingLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetByCode(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "upd123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	link.TargetURL = "https://example.org"
	link.Title = "Renamed"
	link.IsActive = false
	link.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Update(ctx, link))

	got, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", got.TargetURL)
	assert.Equal(t, "Renamed", got.Title)
	assert.False(t, got.IsActive)

	missing := newLink("ws1", "ghost1", "https://example.com")
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrNotFound)
}

func TestSoftDeleteLink(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "del123", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	event := &domain.ClickEvent{
		ID:        uuid.NewString(),
		Kind:      domain.ResourceLink,
		LinkID:    link.ID,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Append(ctx, event))

	require.NoError(t, repo.Delete(ctx, link.ID))

	_, err := repo.GetByCode(ctx, "del123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.GetByID(ctx, link.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, link.ID), domain.ErrNotFound)

	// Events outlive the resource.
	count, err := repo.CountEvents(ctx, domain.ResourceLink, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// The row is still visible to the admin export.
	dump, err := repo.Dump(ctx)
	require.NoError(t, err)
	require.Len(t, dump, 1)
	assert.NotNil(t, dump[0].DeletedAt)
}

func TestListLinksOrderAndPaging(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		link := newLink("ws1", "", "https://example.com")
		link.ID = uuid.NewString()
		link.Code = "pg" + string(rune('a'+i)) + "000"
		link.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		link.UpdatedAt = link.CreatedAt
		require.NoError(t, repo.Create(ctx, link))
	}
	require.NoError(t, repo.Create(ctx, newLink("ws2", "other1", "https://example.com")))

	page1, err := repo.List(ctx, "ws1", 3, 0)
	require.NoError(t, err)
	require.Len(t, page1, 3)
	// Newest first.
	assert.Equal(t, "pge000", page1[0].Code)

	page2, err := repo.List(ctx, "ws1", 3, 3)
	require.NoError(t, err)
	assert.Len(t, page2, 2)
}

func TestCountActive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	active := newLink("ws1", "act111", "https://example.com")
	require.NoError(t, repo.Create(ctx, active))

	paused := newLink("ws1", "act222", "https://example.com")
	require.NoError(t, repo.Create(ctx, paused))
	paused.IsActive = false
	require.NoError(t, repo.Update(ctx, paused))

	deleted := newLink("ws1", "act333", "https://example.com")
	require.NoError(t, repo.Create(ctx, deleted))
	require.NoError(t, repo.Delete(ctx, deleted.ID))

	count, err := repo.CountActive(ctx, "ws1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCodeRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	link := newLink("ws1", "qr1234", "https://example.com")
	require.NoError(t, repo.Create(ctx, link))

	code := newCode("ws1", "https://kmp.to/r/qr1234", link.ID)
	code.Title = "Poster"
	code.Type = "url"
	require.NoError(t, repo.CreateCode(ctx, code))

	got, err := repo.GetCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://kmp.to/r/qr1234", got.Destination)
	assert.Equal(t, link.ID, got.LinkID)
	assert.True(t, got.Chained())
	assert.Equal(t, "Poster", got.Title)

	got.Destination = "https://example.org"
	got.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateCode(ctx, got))

	updated, err := repo.GetCode(ctx, code.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", updated.Destination)

	require.NoError(t, repo.DeleteCode(ctx, code.ID))
	_, err = repo.GetCode(ctx, code.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteCode(ctx, code.ID), domain.ErrNotFound)
}

func TestListCodes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		code := newCode("ws1", "https://example.com", "")
		code.CreatedAt = time.Date(2026, 8, 1, i, 0, 0, 0, time.UTC)
		code.UpdatedAt = code.CreatedAt
		require.NoError(t, repo.CreateCode(ctx, code))
	}

	codes, err := repo.ListCodes(ctx, "ws1", 10, 0)
	require.NoError(t, err)
	require.Len(t, codes, 3)
	assert.True(t, codes[0].CreatedAt.After(codes[2].CreatedAt))
}
