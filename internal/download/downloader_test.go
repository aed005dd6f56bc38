package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relkeeper/relkeeper/internal/registry"
)

func TestDownloader_Download_MatchedAssetsOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload for " + r.URL.Path))
	}))
	defer server.Close()

	root := t.TempDir()
	d := New(root, nil, "", nil, nil)

	cfg := registry.Config{Owner: "o", Repo: "r", Matcher: "*.deb"}
	release := &registry.Release{
		Tag: "1.0.0",
		Assets: []registry.Asset{
			{Name: "a.deb", URL: server.URL + "/a.deb"},
			{Name: "a.rpm", URL: server.URL + "/a.rpm"},
		},
	}

	err := d.Download(context.Background(), &cfg, release)
	require.NoError(t, err)

	debPath := filepath.Join(root, "o", "r", "a.deb")
	_, statErr := os.Stat(debPath)
	assert.NoError(t, statErr)

	rpmPath := filepath.Join(root, "o", "r", "a.rpm")
	_, statErr = os.Stat(rpmPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_DestDir_DistroAndPrivatePartitioning(t *testing.T) {
	d := New("/root-dir", []string{"ubuntu", "fedora"}, "private", nil, nil)

	cfg := registry.Config{Owner: "o", Repo: "my-ubuntu-pkg", Private: registry.PrivateTrue}
	got := d.destDir(&cfg)
	assert.Equal(t, filepath.Join("/root-dir", "ubuntu", "private", "o", "my-ubuntu-pkg"), got)

	cfgPublic := registry.Config{Owner: "o", Repo: "plain-pkg"}
	gotPublic := d.destDir(&cfgPublic)
	assert.Equal(t, filepath.Join("/root-dir", "o", "plain-pkg"), gotPublic)
}

func TestDownloader_Download_UpstreamErrorReturnsButAttemptsAll(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path == "/bad.deb" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	d := New(t.TempDir(), nil, "", nil, nil)
	d.client.RetryMax = 0

	cfg := registry.Config{Owner: "o", Repo: "r"}
	release := &registry.Release{
		Tag: "1.0.0",
		Assets: []registry.Asset{
			{Name: "bad.deb", URL: server.URL + "/bad.deb"},
			{Name: "good.deb", URL: server.URL + "/good.deb"},
		},
	}

	err := d.Download(context.Background(), &cfg, release)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, calls, 2)
}
