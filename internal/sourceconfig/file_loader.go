package sourceconfig

import (
	"context"
	"io"
	"os"
	"strings"
)

// FileLoader is the concrete JsonLoader that reads the release-config file
// from the local filesystem.
type FileLoader struct{}

// NewFileLoader constructs a FileLoader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load opens path for reading. ctx is accepted for interface symmetry with
// loaders that perform network I/O; local file reads do not honor
// cancellation mid-read.
func (FileLoader) Load(ctx context.Context, path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// ResolvingLoader picks FileLoader or URLLoader per source, based on
// whether source looks like an http(s) URL or a local path: the
// release-config argument accepts either, same as the original collector's
// single config-path/URL argument.
type ResolvingLoader struct {
	files *FileLoader
	urls  *URLLoader
}

// NewResolvingLoader constructs a ResolvingLoader.
func NewResolvingLoader() *ResolvingLoader {
	return &ResolvingLoader{files: NewFileLoader(), urls: NewURLLoader()}
}

// Load dispatches to URLLoader for an http:// or https:// source, FileLoader
// otherwise.
func (l *ResolvingLoader) Load(ctx context.Context, source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.urls.Load(ctx, source)
	}
	return l.files.Load(ctx, source)
}
