package registry

import (
	"os"
	"strings"

	"github.com/gobwas/glob"
)

// Private is a tri-state flag: a ReleaseConfig may not know yet whether its
// upstream repository is private until the first RepositoryProvider call
// backfills it.
type Private int

const (
	PrivateUnknown Private = iota
	PrivateTrue
	PrivateFalse
)

// Config is the external, as-consumed description of one mirrored
// repository. It is decoded from the JSON configuration file by a JsonLoader
// and is otherwise immutable except for the two backfills SourceRegistry and
// ReleaseSource perform: Token (global fall-in at registration) and Private
// (first repository lookup).
type Config struct {
	Owner         string   `json:"owner" validate:"required"`
	Repo          string   `json:"repo" validate:"required"`
	Token         string   `json:"token,omitempty"`
	Matcher       string   `json:"matcher,omitempty"`
	Private       Private  `json:"-"`
	DistroSubDirs []string `json:"distro_sub_dirs,omitempty"`
	PrivateSubDir string   `json:"private_sub_dir,omitempty"`
}

// FullName is owner/repo, the unique key for this source within a process.
func (c *Config) FullName() string {
	return c.Owner + "/" + c.Repo
}

// ResolvedToken returns Token with $NAME environment-variable references
// resolved. A reference to an unset variable resolves to the empty string,
// never an error.
func (c *Config) ResolvedToken() string {
	return ResolveEnvRef(c.Token)
}

// Glob compiles Matcher into a glob.Glob. An empty matcher matches anything.
func (c *Config) Glob() (glob.Glob, error) {
	if c.Matcher == "" {
		return glob.Compile("*")
	}
	return glob.Compile(c.Matcher)
}

// ResolveEnvRef resolves a config string of the form "$NAME" to the value of
// the named environment variable, read at the moment of first use. Any
// string not beginning with "$" is returned unchanged. An unset variable
// resolves to "", never an error.
func ResolveEnvRef(value string) string {
	if !strings.HasPrefix(value, "$") {
		return value
	}
	name := strings.TrimPrefix(value, "$")
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
