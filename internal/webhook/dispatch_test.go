package webhook

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkeeper/relkeeper/internal/registry"
)

type fakeRepo struct{}

func (fakeRepo) FullName() string { return "o/r" }
func (fakeRepo) IsPrivate() bool  { return false }

// fakeProvider serves a sequence of releases, one per call to LatestRelease,
// repeating the final entry once exhausted.
type fakeProvider struct {
	releases []*registry.Release
	idx      int32
}

func (f *fakeProvider) GetRepository(ctx context.Context, cfg *registry.Config) (registry.Repository, error) {
	return fakeRepo{}, nil
}

func (f *fakeProvider) LatestRelease(ctx context.Context, repo registry.Repository) (*registry.Release, error) {
	i := atomic.AddInt32(&f.idx, 1) - 1
	if int(i) >= len(f.releases) {
		i = int32(len(f.releases) - 1)
	}
	return f.releases[i], nil
}

type fakeDownloader struct {
	calls int32
}

func (f *fakeDownloader) Download(ctx context.Context, cfg *registry.Config, release *registry.Release) error {
	atomic.AddInt32(&f.calls, 1)
	return nil
}

func TestDispatcher_FetchViaAPI_RetriesUntilAssetsPresent(t *testing.T) {
	provider := &fakeProvider{releases: []*registry.Release{
		{Tag: "1.0.0", Assets: nil},
		{Tag: "1.0.0", Assets: []registry.Asset{{Name: "a.deb"}}},
	}}
	reg := registry.NewSourceRegistry(provider, "", nil)
	reg.Register(registry.Config{Owner: "o", Repo: "r"})

	downloader := &fakeDownloader{}
	policy := Policy{MaxAttempts: 3, Delay: 50 * time.Millisecond}
	d := newDispatcher(reg, downloader, policy, 2, nil, nil)
	d.start(2)
	defer d.shutdown()

	start := time.Now()
	d.fetchViaAPI(context.Background(), "o/r")
	elapsed := time.Since(start)

	assert.EqualValues(t, 1, atomic.LoadInt32(&downloader.calls))
	assert.GreaterOrEqual(t, elapsed, policy.Delay)
}

func TestDispatcher_FetchViaAPI_ExhaustsWithoutPanicking(t *testing.T) {
	provider := &fakeProvider{releases: []*registry.Release{{Tag: "1.0.0", Assets: nil}}}
	reg := registry.NewSourceRegistry(provider, "", nil)
	reg.Register(registry.Config{Owner: "o", Repo: "r"})

	downloader := &fakeDownloader{}
	policy := Policy{MaxAttempts: 2, Delay: 10 * time.Millisecond}
	d := newDispatcher(reg, downloader, policy, 1, nil, nil)
	d.start(1)
	defer d.shutdown()

	assert.NotPanics(t, func() {
		d.fetchViaAPI(context.Background(), "o/r")
	})
	assert.EqualValues(t, 0, atomic.LoadInt32(&downloader.calls))
}

func TestDispatcher_Dispatch_BurstCancelsPrevious(t *testing.T) {
	provider := &fakeProvider{releases: []*registry.Release{{Tag: "1.0.0", Assets: nil}}}
	reg := registry.NewSourceRegistry(provider, "", nil)
	reg.Register(registry.Config{Owner: "o", Repo: "r"})

	downloader := &fakeDownloader{}
	policy := Policy{MaxAttempts: 10, Delay: 200 * time.Millisecond}
	d := newDispatcher(reg, downloader, policy, 2, nil, nil)
	d.start(2)
	defer d.shutdown()

	firstCtx, firstCancel := context.WithCancel(context.Background())
	defer firstCancel()
	firstToken := new(int)

	d.mu.Lock()
	d.signals["o/r"] = pendingSignal{cancel: firstCancel, token: firstToken}
	d.mu.Unlock()

	d.dispatch("o/r")

	require.Eventually(t, func() bool {
		return firstCtx.Err() != nil
	}, time.Second, 10*time.Millisecond)

	d.mu.Lock()
	current, stillPending := d.signals["o/r"]
	d.mu.Unlock()
	assert.True(t, stillPending)
	assert.NotSame(t, firstToken, current.token)
}
