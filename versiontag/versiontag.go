// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package versiontag parses release tags like "v1.2.3", "v1.2.3.4" and "v1.0.0-rc1" and picks the
// best release among a set of them.
package versiontag

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix is the literal prefix a tag must start with to be considered a release.
const Prefix = "v"

// StableReleaseType is the release type of a tag without a "-" suffix.
const StableReleaseType = "stable"

// Tag is the parsed representation of one release tag.
type Tag struct {
	// Raw is the original tag text. It is the value written to distribution files.
	Raw string

	Major int
	// Minor defaults to 0 if the tag doesn't specify it.
	Minor int
	// Patch defaults to 0 if the tag doesn't specify it.
	Patch int
	// Build is the fourth dotted component, or nil if the tag only has three or fewer.
	Build *int

	// ReleaseType is the text after the first "-", up to the next "-" (if any). For example "rc1"
	// in "v1.0.0-rc1". Default: "stable".
	ReleaseType string
}

// IsCandidate reports whether raw is eligible for parsing as a release tag. Tags that are not
// candidates are skipped rather than treated as errors.
func IsCandidate(raw string) bool {
	return strings.HasPrefix(raw, Prefix)
}

// Parse parses a candidate tag. Any numeric component that isn't an integer is an error, including
// an empty major version.
func Parse(raw string) (*Tag, error) {
	if !IsCandidate(raw) {
		return nil, fmt.Errorf("tag %q does not start with %q", raw, Prefix)
	}

	dashParts := strings.Split(raw, "-")
	releaseType := StableReleaseType
	if len(dashParts) > 1 {
		releaseType = dashParts[1]
	}

	dotParts := strings.Split(dashParts[0], ".")
	// Every "v" is dropped from the major part, not only the prefix.
	major, err := strconv.Atoi(strings.ReplaceAll(dotParts[0], Prefix, ""))
	if err != nil {
		return nil, fmt.Errorf("tag %q has an invalid major version: %w", raw, err)
	}

	t := &Tag{
		Raw:         raw,
		Major:       major,
		ReleaseType: releaseType,
	}
	if len(dotParts) > 1 {
		if t.Minor, err = strconv.Atoi(dotParts[1]); err != nil {
			return nil, fmt.Errorf("tag %q has an invalid minor version: %w", raw, err)
		}
	}
	if len(dotParts) > 2 {
		if t.Patch, err = strconv.Atoi(dotParts[2]); err != nil {
			return nil, fmt.Errorf("tag %q has an invalid patch version: %w", raw, err)
		}
	}
	if len(dotParts) > 3 {
		build, err := strconv.Atoi(dotParts[3])
		if err != nil {
			return nil, fmt.Errorf("tag %q has an invalid build number: %w", raw, err)
		}
		t.Build = &build
	}
	return t, nil
}

func (t *Tag) String() string {
	return fmt.Sprintf("%v (%v)", t.Raw, t.Normalized())
}

// Normalized returns the parsed version with defaults filled in, for example "1.2.0-stable" or
// "1.2.3.4-rc1".
func (t *Tag) Normalized() string {
	s := fmt.Sprintf("%d.%d.%d", t.Major, t.Minor, t.Patch)
	if t.Build != nil {
		s += "." + strconv.Itoa(*t.Build)
	}
	return s + "-" + t.ReleaseType
}

// IsPrerelease reports whether the release type marks an rc, beta or alpha release.
func (t *Tag) IsPrerelease() bool {
	for _, m := range prereleaseMarkers {
		if strings.Contains(t.ReleaseType, m) {
			return true
		}
	}
	return false
}
