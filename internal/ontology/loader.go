package ontology

import (
	"github.com/BurntSushi/toml"

	cerrors "codelists/internal/errors"
)

// LoadReleaseFile reads a release file of the form
//
//	id = "snomedct_2024-10"
//	coding_system = "snomedct"
//
//	[[concepts]]
//	code = "128133004"
//	term = "Disorder of elbow"
//	parents = ["116309007"]
func LoadReleaseFile(path string) (*Release, error) {
	var r Release
	if _, err := toml.DecodeFile(path, &r); err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRelease, "failed to decode release file", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeRelease parses release TOML held in memory.
func DecodeRelease(data string) (*Release, error) {
	var r Release
	if _, err := toml.Decode(data, &r); err != nil {
		return nil, cerrors.Wrap(cerrors.InvalidRelease, "failed to decode release", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the release is self-contained: IDs present, codes unique,
// and every parent defined in the same release.
func (r *Release) Validate() error {
	if r.ID == "" {
		return cerrors.New(cerrors.InvalidRelease, "release id is required")
	}
	if r.CodingSystem == "" {
		return cerrors.Newf(cerrors.InvalidRelease, "release %s: coding_system is required", r.ID)
	}
	codes := make(map[string]bool, len(r.Concepts))
	for _, c := range r.Concepts {
		if c.Code == "" {
			return cerrors.Newf(cerrors.InvalidRelease, "release %s: concept with empty code", r.ID)
		}
		if codes[c.Code] {
			return cerrors.Newf(cerrors.InvalidRelease, "release %s: duplicate concept %s", r.ID, c.Code)
		}
		codes[c.Code] = true
	}
	for _, c := range r.Concepts {
		for _, p := range c.Parents {
			if !codes[p] {
				return cerrors.Newf(cerrors.InvalidRelease, "release %s: concept %s has undefined parent %s", r.ID, c.Code, p)
			}
			if p == c.Code {
				return cerrors.Newf(cerrors.InvalidRelease, "release %s: concept %s is its own parent", r.ID, c.Code)
			}
		}
	}
	return nil
}
