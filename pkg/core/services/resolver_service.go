package services

import (
	"context"
	"errors"
	"time"

	"github.com/kompihq/kompi-engine/pkg/core/domain"
	"github.com/kompihq/kompi-engine/pkg/log"
	"github.com/kompihq/kompi-engine/pkg/metrics"
	"github.com/kompihq/kompi-engine/pkg/ports"
)

// ResolverService drives public resolution. The contract is redirect first,
// record second: the destination is returned as soon as the lookup
// completes, and the click event is handed to the recorder without waiting
// for persistence. A recorder failure can never fail a redirect that was
// already decided.
type ResolverService struct {
	links    ports.LinkService
	linkRepo ports.LinkRepository
	codes    ports.CodeRepository
	recorder ports.Recorder
	timeout  time.Duration
}

func NewResolverService(links ports.LinkService, linkRepo ports.LinkRepository, codes ports.CodeRepository, recorder ports.Recorder, timeout time.Duration) *ResolverService {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &ResolverService{links: links, linkRepo: linkRepo, codes: codes, recorder: recorder, timeout: timeout}
}

// ResolveLink resolves a short code to its target URL and enqueues the
// click. Lookup timeouts fail safe to NotFound rather than hanging the
// request.
func (s *ResolverService) ResolveLink(ctx context.Context, code, referer, userAgent string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	link, err := s.links.ResolveCode(lookupCtx, code)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", collapseResolveErr(err, "link", code)
	}

	metrics.ResolutionsTotal.WithLabelValues("link", "redirect").Inc()
	s.enqueue(domain.ClickEvent{
		Kind:      domain.ResourceLink,
		LinkID:    link.ID,
		Referer:   nullable(referer),
		UserAgent: nullable(userAgent),
		CreatedAt: time.Now().UTC(),
	})
	return link.TargetURL, nil
}

// ResolveKompiCode resolves a Kompi Code by identifier. A chained code
// resolves one hop through its link's current target; codes never chain to
// other codes. The scan is recorded against the code, independently of the
// link's own clicks.
func (s *ResolverService) ResolveKompiCode(ctx context.Context, id, referer, userAgent string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	code, err := s.codes.GetCode(lookupCtx, id)
	metrics.ResolveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", collapseResolveErr(err, "code", id)
	}
	if code.DeletedAt != nil {
		metrics.ResolutionsTotal.WithLabelValues("code", "not_found").Inc()
		return "", domain.ErrNotFound
	}

	destination := code.Destination
	if code.Chained() {
		link, err := s.resolveChainedLink(lookupCtx, code.LinkID)
		if err != nil {
			return "", collapseResolveErr(err, "code", id)
		}
		destination = link.TargetURL
	}

	metrics.ResolutionsTotal.WithLabelValues("code", "redirect").Inc()
	s.enqueue(domain.ClickEvent{
		Kind:      domain.ResourceCode,
		CodeID:    code.ID,
		Referer:   nullable(referer),
		UserAgent: nullable(userAgent),
		CreatedAt: time.Now().UTC(),
	})
	return destination, nil
}

func (s *ResolverService) resolveChainedLink(ctx context.Context, linkID string) (*domain.Link, error) {
	link, err := s.linkRepo.GetByID(ctx, linkID)
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

func (s *ResolverService) enqueue(event domain.ClickEvent) {
	if s.recorder == nil {
		return
	}
	if !s.recorder.Enqueue(event) {
		// Accepted data loss: the redirect already happened, so the only
		// honest options are drop or block. We drop and count.
		logger := log.WithComponent("resolver")
		logger.Warn().
			Str("kind", string(event.Kind)).
			Msg("recorder queue full, click dropped")
	}
}

// collapseResolveErr maps every resolution failure to the public NotFound
// outcome. InvalidState is logged loudly first since it should be
// unreachable, and timeouts fail safe instead of surfacing.
func collapseResolveErr(err error, kind, id string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidState):
		logger := log.WithComponent("resolver")
		logger.Error().
			Str("kind", kind).Str("id", id).
			Msg("resolvable resource has no target URL")
	case errors.Is(err, context.DeadlineExceeded):
		logger := log.WithComponent("resolver")
		logger.Warn().
			Str("kind", kind).Str("id", id).
			Msg("registry lookup timed out")
	}
	metrics.ResolutionsTotal.WithLabelValues(kind, "not_found").Inc()
	return domain.ErrNotFound
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ ports.Resolver = (*ResolverService)(nil)
