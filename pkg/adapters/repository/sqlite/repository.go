// Package sqlite implements the storage ports over database/sql, using the
// local modernc driver for file/memory databases and libsql for remote
// Turso URLs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                               // Local SQLite driver

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// timeLayout is the stored timestamp format. It sorts chronologically as
// text, which the day-bucketing and window queries rely on.
const timeLayout = "2006-01-02 15:04:05"

type Repository struct {
	db *sql.DB
}

func New(dbURL string) (*Repository, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// DB exposes the underlying handle for admin tooling.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func migrate(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS links (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		code TEXT UNIQUE,
		target_url TEXT NOT NULL,
		title TEXT,
		clicks INTEGER NOT NULL DEFAULT 0,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_links_code ON links(code);
	CREATE INDEX IF NOT EXISTS idx_links_workspace ON links(workspace_id, created_at);

	CREATE TABLE IF NOT EXISTS kompi_codes (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		destination TEXT NOT NULL,
		title TEXT,
		type TEXT,
		link_id TEXT,
		scans INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT,
		FOREIGN KEY(link_id) REFERENCES links(id)
	);
	CREATE INDEX IF NOT EXISTS idx_kompi_codes_workspace ON kompi_codes(workspace_id, created_at);

	CREATE TABLE IF NOT EXISTS click_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		link_id TEXT,
		code_id TEXT,
		referer TEXT,
		user_agent TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_click_events_link ON click_events(link_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_click_events_code ON click_events(code_id, created_at);
	`
	_, err := db.Exec(query)
	return err
}

// isUniqueViolation detects the short-code uniqueness conflict. The
// constraint in the store is the authoritative serialization point for
// code creation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(timeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// --- LinkRepository ---

func (r *Repository) Create(ctx context.Context, link *domain.Link) error {
	query := `INSERT INTO links (id, workspace_id, code, target_url, title, clicks, is_active, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, 0, ?, ?, ?)`

	var code any
	if link.Code != "" {
		code = link.Code
	}
	_, err := r.db.ExecContext(ctx, query,
		link.ID, link.WorkspaceID, code, link.TargetURL, link.Title,
		boolToInt(link.IsActive), fmtTime(link.CreatedAt), fmtTime(link.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return domain.ErrCodeTaken
	}
	return err
}

const linkColumns = `id, workspace_id, code, target_url, title, clicks, is_active, created_at, updated_at, deleted_at`

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE code = ? AND deleted_at IS NULL`
	return r.scanLink(r.db.QueryRowContext(ctx, query, code))
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ? AND deleted_at IS NULL`
	return r.scanLink(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) Update(ctx context.Context, link *domain.Link) error {
	query := `UPDATE links SET target_url = ?, title = ?, is_active = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		link.TargetURL, link.Title, boolToInt(link.IsActive), fmtTime(link.UpdatedAt), link.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	query := `UPDATE links SET deleted_at = ?, is_active = 0 WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, fmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) List(ctx context.Context, workspaceID string, limit, offset int) ([]domain.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links
			  WHERE workspace_id = ? AND deleted_at IS NULL
			  ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		link, err := scanLinkRow(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

func (r *Repository) CountActive(ctx context.Context, workspaceID string) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM links WHERE workspace_id = ? AND deleted_at IS NULL AND is_active = 1`,
		workspaceID,
	).Scan(&count)
	return count, err
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Link, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []domain.Link
	for rows.Next() {
		link, err := scanLinkRow(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, *link)
	}
	return links, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanLink(row *sql.Row) (*domain.Link, error) {
	link, err := scanLinkRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return link, err
}

func scanLinkRow(row rowScanner) (*domain.Link, error) {
	var link domain.Link
	var code, title sql.NullString
	var isActive int
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(
		&link.ID, &link.WorkspaceID, &code, &link.TargetURL, &title,
		&link.Clicks, &isActive, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	link.Code = code.String
	link.Title = title.String
	link.IsActive = isActive == 1
	if link.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if link.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		link.DeletedAt = &t
	}
	return &link, nil
}

// --- CodeRepository ---

func (r *Repository) CreateCode(ctx context.Context, code *domain.KompiCode) error {
	query := `INSERT INTO kompi_codes (id, workspace_id, destination, title, type, link_id, scans, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`

	var linkID any
	if code.LinkID != "" {
		linkID = code.LinkID
	}
	_, err := r.db.ExecContext(ctx, query,
		code.ID, code.WorkspaceID, code.Destination, code.Title, code.Type,
		linkID, fmtTime(code.CreatedAt), fmtTime(code.UpdatedAt),
	)
	return err
}

const codeColumns = `id, workspace_id, destination, title, type, link_id, scans, created_at, updated_at, deleted_at`

func (r *Repository) GetCode(ctx context.Context, id string) (*domain.KompiCode, error) {
	query := `SELECT ` + codeColumns + ` FROM kompi_codes WHERE id = ? AND deleted_at IS NULL`
	code, err := scanCodeRow(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return code, err
}

func (r *Repository) UpdateCode(ctx context.Context, code *domain.KompiCode) error {
	query := `UPDATE kompi_codes SET destination = ?, title = ?, type = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query,
		code.Destination, code.Title, code.Type, fmtTime(code.UpdatedAt), code.ID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) DeleteCode(ctx context.Context, id string) error {
	query := `UPDATE kompi_codes SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, fmtTime(time.Now()), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *Repository) ListCodes(ctx context.Context, workspaceID string, limit, offset int) ([]domain.KompiCode, error) {
	query := `SELECT ` + codeColumns + ` FROM kompi_codes
			  WHERE workspace_id = ? AND deleted_at IS NULL
			  ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []domain.KompiCode
	for rows.Next() {
		code, err := scanCodeRow(rows)
		if err != nil {
			return nil, err
		}
		codes = append(codes, *code)
	}
	return codes, rows.Err()
}

func scanCodeRow(row rowScanner) (*domain.KompiCode, error) {
	var code domain.KompiCode
	var title, codeType, linkID sql.NullString
	var createdAt, updatedAt string
	var deletedAt sql.NullString

	err := row.Scan(
		&code.ID, &code.WorkspaceID, &code.Destination, &title, &codeType,
		&linkID, &code.Scans, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	code.Title = title.String
	code.Type = codeType.String
	code.LinkID = linkID.String
	if code.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if code.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t, err := parseTime(deletedAt.String)
		if err != nil {
			return nil, err
		}
		code.DeletedAt = &t
	}
	return &code, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Interface compliance
var (
	_ ports.LinkRepository = (*Repository)(nil)
	_ ports.CodeRepository = (*Repository)(nil)
	_ ports.EventStore     = (*Repository)(nil)
)
