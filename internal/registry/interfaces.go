package registry

import "context"

// Repository is a lazily-materialized handle to an upstream repository,
// produced by a RepositoryProvider and cached on the owning ReleaseSource.
type Repository interface {
	// FullName returns the owner/repo this handle was materialized for.
	FullName() string
	// IsPrivate reports whether the upstream repository is private.
	IsPrivate() bool
}

// ErrNoRelease is the sentinel a RepositoryProvider returns when a
// repository exists but has published no release yet. check_latest_release
// absorbs it and reports "no change" rather than propagating it.
var ErrNoRelease = errNoRelease{}

type errNoRelease struct{}

func (errNoRelease) Error() string { return "registry: repository has no release" }

// RepositoryProvider is the external collaborator that materializes
// Repository handles and fetches their latest Release. It is consumed only;
// concrete implementations (internal/ghapi) live outside this package.
type RepositoryProvider interface {
	// GetRepository returns a handle for owner/repo, or an error if the
	// repository cannot be resolved at all.
	GetRepository(ctx context.Context, cfg *Config) (Repository, error)
	// LatestRelease returns the latest release for repo. Returns
	// ErrNoRelease if the repository has not published one yet.
	LatestRelease(ctx context.Context, repo Repository) (*Release, error)
}

// AssetDownloader is the external collaborator that fetches a Release's
// matching assets to disk, laid out by distribution and privacy. It is
// consumed only; concrete implementations (internal/download) live outside
// this package.
type AssetDownloader interface {
	Download(ctx context.Context, cfg *Config, release *Release) error
}
