package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// CodeService is the registry for Kompi Codes. A code either encodes an
// external destination directly or chains to a platform short link, in
// which case the stored destination is always the canonical short-link
// path - the registry computes it
// and never accepts it from the caller.
type CodeService struct {
	repo    ports.CodeRepository
	links   ports.LinkRepository
	baseURL string
}

func NewCodeService(repo ports.CodeRepository, links ports.LinkRepository, baseURL string) *CodeService {
	return &CodeService{repo: repo, links: links, baseURL: strings.TrimRight(baseURL, "/")}
}

// ShortLinkPath returns the canonical public path encoded into chained codes.
func (s *CodeService) ShortLinkPath(code string) string {
	return fmt.Sprintf("%s/r/%s", s.baseURL, code)
}

func (s *CodeService) CreateCode(ctx context.Context, workspaceID, destination, title, codeType, linkedLinkID string) (*domain.KompiCode, error) {
	var dest string
	if linkedLinkID != "" {
		link, err := s.links.GetByID(ctx, linkedLinkID)
		if err != nil {
			return nil, err
		}
		if link.WorkspaceID != workspaceID {
			return nil, domain.ErrNotFound
		}
		dest = s.ShortLinkPath(link.Code)
	} else {
		var err error
		dest, err = NormalizeTargetURL(destination)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	code := &domain.KompiCode{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Destination: dest,
		Title:       strings.TrimSpace(title),
		Type:        strings.TrimSpace(codeType),
		LinkID:      linkedLinkID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCode(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// UpdateCode edits metadata and, for standalone codes, the destination.
// For a chained code the destination edit is applied to the linked link's
// target instead, so the printed payload keeps pointing at the short-link
// path and no reprint is needed.
func (s *CodeService) UpdateCode(ctx context.Context, workspaceID, id, destination, title, codeType string) (*domain.KompiCode, error) {
	code, err := s.getOwned(ctx, workspaceID, id)
	if err != nil {
		return nil, err
	}

	if destination != "" {
		target, err := NormalizeTargetURL(destination)
		if err != nil {
			return nil, err
		}
		if code.Chained() {
			link, err := s.links.GetByID(ctx, code.LinkID)
			if err != nil {
				return nil, err
			}
			link.TargetURL = target
			link.UpdatedAt = time.Now().UTC()
			if err := s.links.Update(ctx, link); err != nil {
				return nil, err
			}
		} else {
			code.Destination = target
		}
	}
	if title != "" {
		code.Title = strings.TrimSpace(title)
	}
	if codeType != "" {
		code.Type = strings.TrimSpace(codeType)
	}
	code.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateCode(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

func (s *CodeService) DeleteCode(ctx context.Context, workspaceID, id string) error {
	if _, err := s.getOwned(ctx, workspaceID, id); err != nil {
		return err
	}
	return s.repo.DeleteCode(ctx, id)
}

func (s *CodeService) GetCode(ctx context.Context, workspaceID, id string) (*domain.KompiCode, error) {
	return s.getOwned(ctx, workspaceID, id)
}

func (s *CodeService) ListCodes(ctx context.Context, workspaceID string, page, limit int) ([]domain.KompiCode, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListCodes(ctx, workspaceID, limit, (page-1)*limit)
}

func (s *CodeService) getOwned(ctx context.Context, workspaceID, id string) (*domain.KompiCode, error) {
	code, err := s.repo.GetCode(ctx, id)
	if err != nil {
		return nil, err
	}
	if code.WorkspaceID != workspaceID {
		return nil, domain.ErrNotFound
	}
	return code, nil
}

var _ ports.CodeService = (*CodeService)(nil)
