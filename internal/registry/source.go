package registry

import (
	"context"
	"log/slog"
	"sync"
)

// Source holds the per-repository mutable state the core maintains: the
// last-seen release, the last-seen asset set (implicit in that release), and
// a lazily-materialized Repository handle. All reads and writes of release
// and repository happen under lock, so a webhook handler and a monitor sweep
// racing for the same source serialize cleanly.
type Source struct {
	config   Config
	provider RepositoryProvider
	logger   *slog.Logger

	mu         sync.Mutex
	repository Repository
	release    *Release
}

// NewSource constructs a Source for cfg, backed by provider for repository
// and release lookups.
func NewSource(cfg Config, provider RepositoryProvider, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		config:   cfg,
		provider: provider,
		logger:   logger.With("repo", cfg.FullName()),
	}
}

// GetConfig returns a copy of the source's ReleaseConfig. The copy is taken
// under lock because CheckLatestRelease backfills Private on the first
// repository lookup.
func (s *Source) GetConfig() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// FullName is a convenience accessor equivalent to GetConfig().FullName().
func (s *Source) FullName() string {
	return s.config.FullName()
}

// GetRelease returns the current release snapshot under lock, or nil if none
// has been seen yet.
func (s *Source) GetRelease() *Release {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release
}

// CheckLatestRelease is the heart of the design. It materializes the
// repository handle on first need, fetches the latest release, and decides
// whether it constitutes an update over the previously recorded one.
//
// Failures fetching the repository or the release are absorbed: they are
// logged and CheckLatestRelease returns false. No error ever escapes.
//
// Returns true only when it has also recorded a new release that differs
// from the prior one by tag, or carries at least one asset name the prior
// one did not, and which has at least one asset.
func (s *Source) CheckLatestRelease(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repository == nil {
		repo, err := s.provider.GetRepository(ctx, &s.config)
		if err != nil {
			s.logger.Error("failed to materialize repository handle", "error", err)
			return false
		}
		s.repository = repo
		if s.config.Private == PrivateUnknown {
			if repo.IsPrivate() {
				s.config.Private = PrivateTrue
			} else {
				s.config.Private = PrivateFalse
			}
		}
	}

	latest, err := s.provider.LatestRelease(ctx, s.repository)
	if err != nil {
		if err == ErrNoRelease {
			s.logger.Warn("repository has no release yet")
		} else {
			s.logger.Error("failed to fetch latest release", "error", err)
		}
		return false
	}

	if !s.isUpdate(latest) {
		return false
	}

	s.release = latest
	return len(latest.Assets) > 0
}

// isUpdate must be called with s.mu held.
func (s *Source) isUpdate(latest *Release) bool {
	current := s.release
	switch {
	case current == nil:
		return true
	case current.Tag != latest.Tag:
		return true
	default:
		return isStrictSuperset(current, latest)
	}
}
