package lockfile

import (
	"bytes"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultLockfile is the default lockfile name.
	DefaultLockfile = "Podfile.lock"
)

// Load reads a lockfile from the given path.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "reading lockfile"), "path", path)
	}

	lf, err := Parse(data)
	if err != nil {
		return nil, zerr.With(err, "path", path)
	}
	return lf, nil
}

// Parse decodes lockfile YAML.
func Parse(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, zerr.Wrap(err, "parsing lockfile")
	}
	return &lf, nil
}

// Save writes the lockfile in YAML format.
func (lf *Lockfile) Save(dir string) error {
	return lf.SaveYAML(filepath.Join(dir, DefaultLockfile))
}

// SaveYAML writes the lockfile in YAML format.
func (lf *Lockfile) SaveYAML(path string) error {
	data, err := lf.Encode()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return zerr.With(zerr.Wrap(err, "writing lockfile"), "path", path)
	}

	return nil
}

// Encode renders the lockfile as YAML with the two-space indent CocoaPods writes.
func (lf *Lockfile) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(lf); err != nil {
		return nil, zerr.Wrap(err, "marshaling YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, zerr.Wrap(err, "marshaling YAML")
	}
	return buf.Bytes(), nil
}
