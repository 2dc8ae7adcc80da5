package definition

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// File is a rules file: the decisions of a codelist together with the
// release they were made against. It is the hand-off format for rules
// produced outside this module, such as concept expressions.
type File struct {
	Release  string   `toml:"release,omitempty" json:"release,omitempty" yaml:"release,omitempty"`
	Included []string `toml:"included" json:"included" yaml:"included"`
	Excluded []string `toml:"excluded" json:"excluded" yaml:"excluded"`
}

// NewFile wraps d for writing.
func NewFile(release string, d Definition) File {
	l := d.Lists()
	return File{Release: release, Included: l.Included, Excluded: l.Excluded}
}

// Definition validates the file's decisions.
func (f File) Definition() (Definition, error) {
	return New(f.Included, f.Excluded)
}

// Marshal encodes f as TOML.
func (f File) Marshal() ([]byte, error) {
	return toml.Marshal(f)
}

// ParseFile decodes a TOML rules file. Unknown keys are rejected.
func ParseFile(data []byte) (File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("failed to parse rules file: %w", err)
	}
	return f, nil
}

// ReadFile loads a rules file from disk.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseFile(data)
}

// WriteFile writes f to path, creating parent directories.
func WriteFile(path string, f File) error {
	data, err := f.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode rules file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write rules file: %w", err)
	}
	return nil
}
