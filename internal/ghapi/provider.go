// Package ghapi is the concrete RepositoryProvider backed by the real
// GitHub REST API via google/go-github.
package ghapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/relkeeper/relkeeper/internal/obsmetrics"
	"github.com/relkeeper/relkeeper/internal/registry"
	"github.com/relkeeper/relkeeper/internal/resilience"
)

// Provider is a registry.RepositoryProvider backed by the GitHub REST API.
// A fresh *github.Client is built per GetRepository call so that
// per-repository tokens (resolved from Config.Token) are applied
// independently; LatestRelease reuses the client carried by the returned
// handle. go-github clients are cheap to construct and carry no
// per-instance state worth pooling.
//
// GetRepository and LatestRelease are each wrapped in a retry policy: the
// GitHub API rate-limits and occasionally drops connections under load,
// and both calls are idempotent reads safe to repeat.
type Provider struct {
	httpClient  *http.Client
	baseURL     string
	retryPolicy *resilience.RetryPolicy
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the base transport used for unauthenticated
// calls and as the wrapped transport for authenticated ones.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// WithBaseURL points the client at an alternate API root, for GitHub
// Enterprise deployments or tests against a local server.
func WithBaseURL(rawURL string) Option {
	return func(p *Provider) { p.baseURL = rawURL }
}

// WithRetryMetrics attaches retry-attempt metrics to the policy guarding
// GetRepository and LatestRelease calls.
func WithRetryMetrics(m *obsmetrics.RetryMetrics) Option {
	return func(p *Provider) { p.retryPolicy.Metrics = m }
}

// apiErrorChecker treats registry.ErrNoRelease (mapped from a 404) as
// permanent: retrying a "no release published" response cannot change the
// outcome, so only other errors (rate limits, transient network failures)
// are retried.
type apiErrorChecker struct{}

func (apiErrorChecker) IsRetryable(err error) bool {
	return !errors.Is(err, registry.ErrNoRelease)
}

// NewProvider constructs a Provider with the given options applied.
func NewProvider(opts ...Option) *Provider {
	policy := resilience.DefaultRetryPolicy()
	policy.OperationName = "github_api"
	policy.ErrorChecker = apiErrorChecker{}

	p := &Provider{httpClient: http.DefaultClient, retryPolicy: policy}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) clientFor(cfg *registry.Config) (*github.Client, error) {
	httpClient := p.httpClient
	if token := cfg.ResolvedToken(); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		baseCtx := context.WithValue(context.Background(), oauth2.HTTPClient, p.httpClient)
		httpClient = oauth2.NewClient(baseCtx, ts)
	}

	client := github.NewClient(httpClient)
	if p.baseURL != "" {
		u, err := url.Parse(p.baseURL)
		if err != nil {
			return nil, fmt.Errorf("ghapi: invalid base URL: %w", err)
		}
		client.BaseURL = u
	}
	return client, nil
}

// repository is the concrete registry.Repository this provider returns,
// carrying the client it was materialized with so LatestRelease can reuse
// the same authentication.
type repository struct {
	client   *github.Client
	owner    string
	repo     string
	fullName string
	private  bool
}

func (r *repository) FullName() string { return r.fullName }
func (r *repository) IsPrivate() bool  { return r.private }

// GetRepository fetches owner/repo from the GitHub API and wraps it as a
// registry.Repository, carrying the authenticated client forward for the
// LatestRelease call the core makes next.
func (p *Provider) GetRepository(ctx context.Context, cfg *registry.Config) (registry.Repository, error) {
	client, err := p.clientFor(cfg)
	if err != nil {
		return nil, err
	}

	return resilience.WithRetryFunc(ctx, p.retryPolicy, func() (registry.Repository, error) {
		ghRepo, _, err := client.Repositories.Get(ctx, cfg.Owner, cfg.Repo)
		if err != nil {
			return nil, fmt.Errorf("ghapi: get repository %s: %w", cfg.FullName(), err)
		}

		return &repository{
			client:   client,
			owner:    cfg.Owner,
			repo:     cfg.Repo,
			fullName: ghRepo.GetFullName(),
			private:  ghRepo.GetPrivate(),
		}, nil
	})
}

// LatestRelease fetches the latest non-draft, non-prerelease release for
// repo. A 404 from the API (no releases published yet) maps to
// registry.ErrNoRelease, which ReleaseSource.CheckLatestRelease absorbs.
func (p *Provider) LatestRelease(ctx context.Context, repo registry.Repository) (*registry.Release, error) {
	r, ok := repo.(*repository)
	if !ok {
		return nil, fmt.Errorf("ghapi: unexpected repository handle type %T", repo)
	}

	return resilience.WithRetryFunc(ctx, p.retryPolicy, func() (*registry.Release, error) {
		ghRelease, resp, err := r.client.Repositories.GetLatestRelease(ctx, r.owner, r.repo)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				return nil, registry.ErrNoRelease
			}
			return nil, fmt.Errorf("ghapi: get latest release for %s: %w", r.fullName, err)
		}

		assets := make([]registry.Asset, 0, len(ghRelease.Assets))
		for _, a := range ghRelease.Assets {
			assets = append(assets, registry.Asset{
				Name: a.GetName(),
				URL:  a.GetBrowserDownloadURL(),
			})
		}

		return &registry.Release{
			Tag:    ghRelease.GetTagName(),
			Assets: assets,
		}, nil
	})
}
