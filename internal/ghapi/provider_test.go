package ghapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkeeper/relkeeper/internal/registry"
)

func TestProvider_GetRepository_And_LatestRelease(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name":"o/r","private":false}`)
	})
	mux.HandleFunc("/repos/o/r/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tag_name":"1.0.0","assets":[{"name":"a.deb","browser_download_url":"https://example.com/a.deb"}]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := NewProvider(WithBaseURL(server.URL + "/"))
	cfg := registry.Config{Owner: "o", Repo: "r"}

	repo, err := provider.GetRepository(context.Background(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, "o/r", repo.FullName())
	assert.False(t, repo.IsPrivate())

	release, err := provider.LatestRelease(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", release.Tag)
	require.Len(t, release.Assets, 1)
	assert.Equal(t, "a.deb", release.Assets[0].Name)
}

func TestProvider_LatestRelease_NotFoundMapsToErrNoRelease(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name":"o/r","private":false}`)
	})
	mux.HandleFunc("/repos/o/r/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := NewProvider(WithBaseURL(server.URL + "/"))
	cfg := registry.Config{Owner: "o", Repo: "r"}

	repo, err := provider.GetRepository(context.Background(), &cfg)
	require.NoError(t, err)

	_, err = provider.LatestRelease(context.Background(), repo)
	assert.ErrorIs(t, err, registry.ErrNoRelease)
}

func TestProvider_LatestRelease_RetriesTransientFailure(t *testing.T) {
	var releaseCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/o/r", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"full_name":"o/r","private":false}`)
	})
	mux.HandleFunc("/repos/o/r/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		releaseCalls++
		if releaseCalls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"tag_name":"1.0.0","assets":[]}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	provider := NewProvider(WithBaseURL(server.URL + "/"))
	provider.retryPolicy.BaseDelay = 0
	cfg := registry.Config{Owner: "o", Repo: "r"}

	repo, err := provider.GetRepository(context.Background(), &cfg)
	require.NoError(t, err)

	release, err := provider.LatestRelease(context.Background(), repo)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", release.Tag)
	assert.Equal(t, 2, releaseCalls)
}
