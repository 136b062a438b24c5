package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

const codeCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

var customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

// reservedPrefixes are route segments that can never be short codes, so a
// generated or custom code can't shadow the engine's own paths.
var reservedPrefixes = []string{"api", "r", "c", "healthz", "metrics", "assets"}

// LinkService is the code registry for short links: validation, uniqueness,
// collision-checked generation, and the hot-path lookup for resolution.
type LinkService struct {
	repo        ports.LinkRepository
	gate        ports.PlanGate
	codeLength  int
	maxAttempts int
}

func NewLinkService(repo ports.LinkRepository, gate ports.PlanGate, codeLength, maxAttempts int) *LinkService {
	if codeLength <= 0 {
		codeLength = 6
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &LinkService{repo: repo, gate: gate, codeLength: codeLength, maxAttempts: maxAttempts}
}

func (s *LinkService) CreateLink(ctx context.Context, workspaceID, targetURL, customCode, title string) (*domain.Link, error) {
	target, err := NormalizeTargetURL(targetURL)
	if err != nil {
		return nil, err
	}

	if s.gate != nil {
		if err := s.gate.AllowCreateLink(ctx, workspaceID); err != nil {
			return nil, err
		}
	}

	code := strings.TrimSpace(customCode)
	if code != "" {
		if err := validateCustomCode(code); err != nil {
			return nil, err
		}
		existing, err := s.repo.GetByCode(ctx, code)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrCodeTaken
		}
	} else {
		code, err = s.generateCode(ctx)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	link := &domain.Link{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Code:        code,
		TargetURL:   target,
		Title:       strings.TrimSpace(title),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, link); err != nil {
		// The UNIQUE constraint is the authoritative uniqueness check; a
		// concurrent creation between our lookup and the insert lands here.
		if errors.Is(err, domain.ErrCodeTaken) && customCode == "" {
			return nil, domain.ErrCodeSpaceExhausted
		}
		return nil, err
	}
	return link, nil
}

func (s *LinkService) UpdateLink(ctx context.Context, workspaceID, id, targetURL, title string) (*domain.Link, error) {
	link, err := s.getOwned(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	// The code never changes once issued; only target and title move.
	if targetURL != "" {
		target, err := NormalizeTargetURL(targetURL)
		if err != nil {
			return nil, err
		}
		link.TargetURL = target
	}
	if title != "" {
		link.Title = strings.TrimSpace(title)
	}
	link.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, workspaceID, id string) error {
	if _, err := s.getOwned(ctx, workspaceID, id); err != nil {
		return err
	}
	// Soft delete: the link stops resolving but its events stay queryable.
	return s.repo.Delete(ctx, id)
}

func (s *LinkService) GetLink(ctx context.Context, workspaceID, id string) (*domain.Link, error) {
	return s.getOwned(ctx, workspaceID, id)
}

func (s *LinkService) ListLinks(ctx context.Context, workspaceID string, page, limit int) ([]domain.Link, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.List(ctx, workspaceID, limit, (page-1)*limit)
}

// ResolveCode is the hot path for every public redirect: a single indexed
// read, no side effects.
func (s *LinkService) ResolveCode(ctx context.Context, code string) (*domain.Link, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !link.Resolvable() {
		return nil, domain.ErrNotFound
	}
	if link.TargetURL == "" {
		return nil, domain.ErrInvalidState
	}
	return link, nil
}

func (s *LinkService) getOwned(ctx context.Context, workspaceID, id string) (*domain.Link, error) {
	link, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.WorkspaceID != workspaceID {
		return nil, domain.ErrNotFound
	}
	return link, nil
}

func (s *LinkService) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := randomCode(s.codeLength)
		if err != nil {
			return "", err
		}
		existing, err := s.repo.GetByCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && existing == nil) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("%w after %d attempts", domain.ErrCodeSpaceExhausted, s.maxAttempts)
}

func randomCode(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		b[i] = codeCharset[num.Int64()]
	}
	return string(b), nil
}

// NormalizeTargetURL trims the raw input, prepends https:// when no scheme
// is present, and requires an absolute http(s) URL with a host.
func NormalizeTargetURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.ErrInvalidDestination
	}
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", domain.ErrInvalidDestination
	}
	return trimmed, nil
}

func validateCustomCode(code string) error {
	if !customCodePattern.MatchString(code) {
		return domain.ErrInvalidCode
	}
	lower := strings.ToLower(code)
	for _, prefix := range reservedPrefixes {
		if lower == prefix {
			return domain.ErrInvalidCode
		}
	}
	return nil
}

var _ ports.LinkService = (*LinkService)(nil)
