// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package versiontag

import "strings"

// prereleaseMarkers are checked in order by Beats when the numeric parts of two tags are tied. A
// tag whose release type doesn't contain the marker displaces one whose release type does.
var prereleaseMarkers = []string{"rc", "beta", "alpha"}

// Beats reports whether t should replace best as the running best release.
//
// Major, minor, patch and (when t has a non-zero build number) build are compared in that order,
// and the first difference decides. If they are tied, t wins only if it is less of a prerelease
// than best by the first marker in "rc", "beta", "alpha" that best has and t lacks. This is not a
// strict total order: among tied tags that don't trigger the marker rule, the first one seen is
// kept, and "beta" displaces "rc" when the "rc" tag is the current best.
func (t *Tag) Beats(best *Tag) bool {
	if best == nil {
		return true
	}
	if t.Major != best.Major {
		return t.Major > best.Major
	}
	if t.Minor != best.Minor {
		return t.Minor > best.Minor
	}
	if t.Patch != best.Patch {
		return t.Patch > best.Patch
	}
	if t.Build != nil && *t.Build != 0 {
		// A missing build on best ranks below any build number.
		if best.Build == nil {
			return true
		}
		if *t.Build != *best.Build {
			return *t.Build > *best.Build
		}
	}
	for _, m := range prereleaseMarkers {
		if !strings.Contains(t.ReleaseType, m) && strings.Contains(best.ReleaseType, m) {
			return true
		}
	}
	return false
}

// Select returns the best tag in tags, or nil if tags is empty. Tags are visited in order and the
// first tag always becomes the initial best.
func Select(tags []*Tag) *Tag {
	var best *Tag
	for _, t := range tags {
		if t.Beats(best) {
			best = t
		}
	}
	return best
}
