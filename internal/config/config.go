// Package config loads podlock settings from a project file and the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/anthr76/podlock/internal/lockfile"
	"github.com/anthr76/podlock/internal/locking"
	"github.com/anthr76/podlock/internal/podfile"
	"github.com/anthr76/podlock/internal/render"
)

// ErrInvalidConfig is returned when a config file or override cannot be used.
var ErrInvalidConfig = zerr.New("invalid config")

// FileNames are the config files looked up in the project directory, in order.
var FileNames = []string{".podlock.yaml", ".podlock.yml", ".podlock.toml"}

// Environment variables that override file settings.
const (
	EnvLockfile  = "PODLOCK_LOCKFILE"
	EnvPodfile   = "PODLOCK_PODFILE"
	EnvFormat    = "PODLOCK_FORMAT"
	EnvMalformed = "PODLOCK_MALFORMED"
)

// Config holds the settings shared by every command.
type Config struct {
	// Lockfile and Podfile are relative to the project directory unless absolute.
	Lockfile  string `yaml:"lockfile" toml:"lockfile"`
	Podfile   string `yaml:"podfile" toml:"podfile"`
	Format    string `yaml:"format" toml:"format"`
	Malformed string `yaml:"malformed" toml:"malformed"`

	// Source is the file the config was read from, if any.
	Source string `yaml:"-" toml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Lockfile:  lockfile.DefaultLockfile,
		Podfile:   podfile.DefaultPodfile,
		Format:    render.FormatText,
		Malformed: locking.FailOnMalformed.String(),
	}
}

// Load layers defaults, the config file and the environment. If path is
// empty the first of FileNames found in dir is used; a missing file is not an
// error. An explicit path must exist.
func Load(dir, path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = find(dir)
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func find(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return zerr.With(zerr.Wrap(err, "reading config"), "path", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return zerr.With(zerr.Wrap(ErrInvalidConfig, "config must be .yaml, .yml or .toml"), "path", path)
	}
	if err != nil {
		return zerr.With(zerr.Wrap(ErrInvalidConfig, err.Error()), "path", path)
	}

	c.Source = path
	return nil
}

func (c *Config) applyEnv() {
	for env, field := range map[string]*string{
		EnvLockfile:  &c.Lockfile,
		EnvPodfile:   &c.Podfile,
		EnvFormat:    &c.Format,
		EnvMalformed: &c.Malformed,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks every setting.
func (c Config) Validate() error {
	if c.Lockfile == "" {
		return zerr.Wrap(ErrInvalidConfig, "lockfile must not be empty")
	}
	if c.Podfile == "" {
		return zerr.Wrap(ErrInvalidConfig, "podfile must not be empty")
	}
	if err := render.ValidateFormat(c.Format); err != nil {
		return zerr.Wrap(ErrInvalidConfig, err.Error())
	}
	if _, err := locking.ParseMalformedPolicy(c.Malformed); err != nil {
		return zerr.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}

// MalformedPolicy returns the parsed malformed setting.
func (c Config) MalformedPolicy() locking.MalformedPolicy {
	p, _ := locking.ParseMalformedPolicy(c.Malformed)
	return p
}

// LockfilePath resolves the lockfile location against dir.
func (c Config) LockfilePath(dir string) string {
	return resolve(dir, c.Lockfile)
}

// PodfilePath resolves the Podfile location against dir.
func (c Config) PodfilePath(dir string) string {
	return resolve(dir, c.Podfile)
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
