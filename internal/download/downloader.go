// Package download is the concrete AssetDownloader: it GETs matched asset
// URLs to disk, laid out by distribution and privacy, retrying transient
// HTTP failures.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/relkeeper/relkeeper/internal/obsmetrics"
	"github.com/relkeeper/relkeeper/internal/registry"
)

// Downloader lays matched release assets out under RootDir, partitioned by
// the distribution sub-directory whose name appears in the repository name
// and, for private repositories, by PrivateSubDir.
type Downloader struct {
	RootDir       string
	DistroSubDirs []string
	PrivateSubDir string

	client  *retryablehttp.Client
	logger  *slog.Logger
	metrics *obsmetrics.ServiceMetrics
}

// New constructs a Downloader rooted at rootDir.
func New(rootDir string, distroSubDirs []string, privateSubDir string, logger *slog.Logger, metrics *obsmetrics.ServiceMetrics) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	return &Downloader{
		RootDir:       rootDir,
		DistroSubDirs: distroSubDirs,
		PrivateSubDir: privateSubDir,
		client:        client,
		logger:        logger,
		metrics:       metrics,
	}
}

// Download fetches every asset of release matched by cfg.Matcher into the
// layout directory for cfg, skipping unmatched assets. It returns the first
// error encountered but still attempts every matched asset.
func (d *Downloader) Download(ctx context.Context, cfg *registry.Config, release *registry.Release) error {
	matcher, err := cfg.Glob()
	if err != nil {
		return fmt.Errorf("download: compile matcher for %s: %w", cfg.FullName(), err)
	}

	destDir := d.destDir(cfg)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("download: create %s: %w", destDir, err)
	}

	start := time.Now()
	var firstErr error
	matched := 0
	for _, asset := range release.Assets {
		if !matcher.Match(asset.Name) {
			continue
		}
		matched++
		if err := d.downloadAsset(ctx, asset, destDir); err != nil {
			d.logger.Error("asset download failed", "repo", cfg.FullName(), "asset", asset.Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
	}

	if d.metrics != nil {
		outcome := "ok"
		if firstErr != nil {
			outcome = "error"
		}
		d.metrics.DownloadsTotal.WithLabelValues(cfg.FullName(), outcome).Inc()
		d.metrics.DownloadDuration.WithLabelValues(cfg.FullName()).Observe(time.Since(start).Seconds())
	}

	if matched == 0 {
		d.logger.Warn("no assets matched", "repo", cfg.FullName(), "matcher", cfg.Matcher, "tag", release.Tag)
	}

	return firstErr
}

// destDir computes the layout directory for cfg: RootDir, optionally under
// the first DistroSubDirs entry whose name appears in the repo name, and
// under PrivateSubDir when the repository is known private.
func (d *Downloader) destDir(cfg *registry.Config) string {
	dir := d.RootDir

	for _, sub := range d.DistroSubDirs {
		if strings.Contains(strings.ToLower(cfg.Repo), strings.ToLower(sub)) {
			dir = filepath.Join(dir, sub)
			break
		}
	}

	if cfg.Private == registry.PrivateTrue && d.PrivateSubDir != "" {
		dir = filepath.Join(dir, d.PrivateSubDir)
	}

	return filepath.Join(dir, cfg.Owner, cfg.Repo)
}

// downloadAsset streams a single asset to destDir, writing through a
// temporary file and renaming into place so a failed download never leaves
// a partial file at the final path.
func (d *Downloader) downloadAsset(ctx context.Context, asset registry.Asset, destDir string) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, asset.URL, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", asset.Name, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", asset.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", asset.URL, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(destDir, asset.Name+".part-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", asset.Name, err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", asset.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", asset.Name, err)
	}

	finalPath := filepath.Join(destDir, asset.Name)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into place %s: %w", asset.Name, err)
	}
	return nil
}
