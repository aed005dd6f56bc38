package registry

import (
	"fmt"
	"log/slog"
	"sync"
)

// ErrNotRegistered is returned by Get when full_name has no registered
// Source.
type ErrNotRegistered struct {
	FullName string
}

func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("registry: %q is not registered", e.FullName)
}

// SourceRegistry is the full_name -> Source mapping. Register is the only
// way to introduce a Source; none is ever removed.
type SourceRegistry struct {
	provider    RepositoryProvider
	globalToken string
	logger      *slog.Logger

	mu      sync.RWMutex
	sources map[string]*Source
}

// NewSourceRegistry constructs an empty registry. globalToken, when
// non-empty, is assigned onto any registered Config that does not already
// carry a token.
func NewSourceRegistry(provider RepositoryProvider, globalToken string, logger *slog.Logger) *SourceRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceRegistry{
		provider:    provider,
		globalToken: globalToken,
		logger:      logger,
		sources:     make(map[string]*Source),
	}
}

// Register returns the Source for cfg.FullName(), creating it if absent. A
// second registration of the same full_name logs a duplicate warning and
// returns the existing Source unchanged.
func (r *SourceRegistry) Register(cfg Config) *Source {
	fullName := cfg.FullName()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sources[fullName]; ok {
		r.logger.Warn("source already registered, ignoring duplicate", "repo", fullName)
		return existing
	}

	if cfg.Token == "" && r.globalToken != "" {
		cfg.Token = r.globalToken
	}

	source := NewSource(cfg, r.provider, r.logger)
	r.sources[fullName] = source
	return source
}

// IsRegistered reports whether full_name has a registered Source.
func (r *SourceRegistry) IsRegistered(fullName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sources[fullName]
	return ok
}

// Get returns the Source for full_name, or *ErrNotRegistered if absent.
func (r *SourceRegistry) Get(fullName string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[fullName]
	if !ok {
		return nil, &ErrNotRegistered{FullName: fullName}
	}
	return source, nil
}

// GetAll returns a snapshot of all registered sources. Ordering is not
// guaranteed.
func (r *SourceRegistry) GetAll() []*Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]*Source, 0, len(r.sources))
	for _, source := range r.sources {
		all = append(all, source)
	}
	return all
}
