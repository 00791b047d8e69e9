// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package snapshot

import (
	"bytes"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// supportedVersions is the range of format versions this package reads.
var supportedVersions = mustConstraint("^1.0.0")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic("snapshot: invalid version constraint " + c + ": " + err.Error())
	}
	return constraint
}

// Load reads and parses the snapshot file at path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator supplied
	if err != nil {
		return nil, oops.Code(CodeRead).With("path", path).Wrapf(err, "reading snapshot")
	}

	snap, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return snap, nil
}

// Parse validates data against the snapshot schema, decodes it, checks the
// format version and assigns an ID if the document has none.
func Parse(data []byte) (*Snapshot, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var snap Snapshot
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		return nil, oops.Code(CodeDecode).Wrapf(err, "decoding snapshot")
	}

	if err := checkVersion(snap.FormatVersion); err != nil {
		return nil, err
	}

	if snap.ID == "" {
		snap.ID = NewID()
	} else if _, err := ParseID(snap.ID); err != nil {
		return nil, err
	}

	return &snap, nil
}

func checkVersion(v string) error {
	version, err := semver.StrictNewVersion(v)
	if err != nil {
		return oops.Code(CodeVersion).With("format_version", v).Wrapf(err, "invalid format version")
	}
	if !supportedVersions.Check(version) {
		return oops.Code(CodeVersion).
			With("format_version", v).
			With("supported", supportedVersions.String()).
			Errorf("unsupported snapshot format version %s", v)
	}
	return nil
}
