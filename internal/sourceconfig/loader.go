// Package sourceconfig loads the release-config file (a JSON array of
// per-repository configurations) into registry.Config values.
package sourceconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/relkeeper/relkeeper/internal/registry"
)

// JsonLoader abstracts reading the raw configuration bytes. The concrete
// implementations in this repository are FileLoader (local path), URLLoader
// (HTTP(S)) and ResolvingLoader (picks between the two); the interface is
// narrow so another backing store can be substituted without touching the
// rest of the pipeline.
type JsonLoader interface {
	Load(ctx context.Context, source string) (io.ReadCloser, error)
}

// rawConfig mirrors the on-disk JSON shape before env-reference resolution
// and validation. Unknown keys are tolerated by omission from this struct.
type rawConfig struct {
	Owner         string   `json:"owner"`
	Repo          string   `json:"repo"`
	Token         string   `json:"token"`
	Matcher       string   `json:"matcher"`
	Private       *bool    `json:"private"`
	DistroSubDirs []string `json:"distro_sub_dirs"`
	PrivateSubDir string   `json:"private_sub_dir"`
}

var validate = validator.New()

// Decode parses a JSON array of configuration objects from r, validating
// that each carries the required owner and repo fields. Token is left
// unresolved here: per the design, $NAME references are resolved at the
// moment of use, not at load time.
func Decode(r io.Reader) ([]registry.Config, error) {
	var raw []rawConfig
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("sourceconfig: decode release config: %w", err)
	}

	configs := make([]registry.Config, 0, len(raw))
	for i, rc := range raw {
		cfg := registry.Config{
			Owner:         rc.Owner,
			Repo:          rc.Repo,
			Token:         rc.Token,
			Matcher:       rc.Matcher,
			DistroSubDirs: rc.DistroSubDirs,
			PrivateSubDir: rc.PrivateSubDir,
		}
		switch {
		case rc.Private == nil:
			cfg.Private = registry.PrivateUnknown
		case *rc.Private:
			cfg.Private = registry.PrivateTrue
		default:
			cfg.Private = registry.PrivateFalse
		}

		if err := validate.Struct(validatable{Owner: cfg.Owner, Repo: cfg.Repo}); err != nil {
			return nil, fmt.Errorf("sourceconfig: entry %d: %w", i, err)
		}

		configs = append(configs, cfg)
	}

	return configs, nil
}

// validatable carries only the fields the loader requires at structural
// validation time (owner, repo), per spec: everything else is optional and
// unknown keys are tolerated.
type validatable struct {
	Owner string `validate:"required"`
	Repo  string `validate:"required"`
}

// LoadAndDecode reads source via loader and decodes it into Config values.
func LoadAndDecode(ctx context.Context, loader JsonLoader, source string) ([]registry.Config, error) {
	rc, err := loader.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("sourceconfig: load %s: %w", source, err)
	}
	defer rc.Close()

	return Decode(rc)
}
