// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package catalog turns the tags and remote branch heads of a repository into the sorted lists
// stored in a project descriptor, and selects the release version to put in a distribution.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/openbase/citk-version-updater/versiontag"
)

// Errors returned when no version can be selected or a forced version can't be found.
var (
	ErrNoTagsAvailable           = errors.New("no tags available")
	ErrNoValidTags               = errors.New("no valid tags available")
	ErrForcedVersionNotAvailable = errors.New("forced version is not available")
)

// headRef is the symbolic remote reference that is never reported as a branch.
const headRef = "HEAD"

// originPrefix marks branch heads that refer to the remote itself rather than a real branch.
const originPrefix = "origin"

// Snapshot is the raw ref data retrieved from a repository.
type Snapshot struct {
	// Tags are the tag names, without "refs/tags/".
	Tags []string
	// BranchHeads are the remote branch names, without "refs/remotes/<remote>/". May include
	// "HEAD".
	BranchHeads []string
}

// RefSource retrieves a Snapshot of a remote repository.
type RefSource interface {
	ListRefs(ctx context.Context, repoURL string) (*Snapshot, error)
}

// Options controls how a Catalog is built.
type Options struct {
	// FilterOriginRefs excludes branch heads that start with "origin" from Branches.
	FilterOriginRefs bool
}

// Catalog is the sorted ref data of one repository.
type Catalog struct {
	// Branches is the sorted, deduplicated list of remote branch heads, without "HEAD".
	Branches []string
	// Tags is the sorted, deduplicated list of every tag, including tags that aren't releases.
	Tags []string

	snapshot *Snapshot
}

// Build sorts and filters the refs in s.
func Build(s *Snapshot, opts Options) *Catalog {
	branches := make([]string, 0, len(s.BranchHeads))
	for _, b := range s.BranchHeads {
		if b == headRef {
			continue
		}
		if opts.FilterOriginRefs && strings.HasPrefix(b, originPrefix) {
			continue
		}
		branches = append(branches, b)
	}
	return &Catalog{
		Branches: sortedUnique(branches),
		Tags:     sortedUnique(slices.Clone(s.Tags)),
		snapshot: s,
	}
}

// Releases parses every tag that starts with "v". Other tags are returned in skipped. A candidate
// tag that fails to parse is an error.
func (c *Catalog) Releases() (releases []*versiontag.Tag, skipped []string, err error) {
	for _, raw := range c.Tags {
		if !versiontag.IsCandidate(raw) {
			skipped = append(skipped, raw)
			continue
		}
		t, err := versiontag.Parse(raw)
		if err != nil {
			return nil, nil, err
		}
		releases = append(releases, t)
	}
	return releases, skipped, nil
}

// Select returns the best release tag. Returns ErrNoTagsAvailable if the repository has no tags
// at all, or ErrNoValidTags if none of them is a release.
func (c *Catalog) Select() (*versiontag.Tag, error) {
	if len(c.Tags) == 0 {
		return nil, ErrNoTagsAvailable
	}
	releases, _, err := c.Releases()
	if err != nil {
		return nil, err
	}
	best := versiontag.Select(releases)
	if best == nil {
		return nil, ErrNoValidTags
	}
	return best, nil
}

// VerifyForced checks that version is exactly the name of a tag or a remote branch head. Branch
// heads starting with "origin" are accepted here even when Build filtered them out.
func (c *Catalog) VerifyForced(version string) error {
	if slices.Contains(c.snapshot.Tags, version) {
		return nil
	}
	if version != headRef && slices.Contains(c.snapshot.BranchHeads, version) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrForcedVersionNotAvailable, version)
}

func sortedUnique(s []string) []string {
	slices.Sort(s)
	return slices.Compact(s)
}
