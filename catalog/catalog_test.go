// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package catalog

import (
	"errors"
	"math/rand"
	"slices"
	"testing"

	"github.com/go-test/deep"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name         string
		snapshot     Snapshot
		opts         Options
		wantBranches []string
		wantTags     []string
	}{
		{
			"sorted and deduplicated",
			Snapshot{
				Tags:        []string{"v1.0", "release-1.0", "v0.9", "v1.0"},
				BranchHeads: []string{"master", "HEAD", "feature/x", "master"},
			},
			Options{FilterOriginRefs: true},
			[]string{"feature/x", "master"},
			[]string{"release-1.0", "v0.9", "v1.0"},
		},
		{
			"origin refs filtered",
			Snapshot{BranchHeads: []string{"origin", "origin-old", "main", "HEAD"}},
			Options{FilterOriginRefs: true},
			[]string{"main"},
			nil,
		},
		{
			"origin refs kept",
			Snapshot{BranchHeads: []string{"origin-old", "main", "HEAD"}},
			Options{},
			[]string{"main", "origin-old"},
			nil,
		},
		{
			"lexical, not numeric",
			Snapshot{Tags: []string{"v1.10.0", "v1.9.0", "V2"}},
			Options{},
			[]string{},
			[]string{"V2", "v1.10.0", "v1.9.0"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Build(&tt.snapshot, tt.opts)
			if !slices.Equal(c.Branches, tt.wantBranches) {
				t.Errorf("Branches = %v, want %v", c.Branches, tt.wantBranches)
			}
			if !slices.Equal(c.Tags, tt.wantTags) {
				t.Errorf("Tags = %v, want %v", c.Tags, tt.wantTags)
			}
		})
	}
}

func TestBuild_DoesNotModifySnapshot(t *testing.T) {
	s := &Snapshot{Tags: []string{"v2", "v1"}}
	Build(s, Options{})
	if s.Tags[0] != "v2" {
		t.Errorf("snapshot tags were reordered: %v", s.Tags)
	}
}

func TestCatalog_Select(t *testing.T) {
	tests := []struct {
		name    string
		tags    []string
		want    string
		wantErr error
	}{
		{"picks best release", []string{"v1.9.9", "v2.0.0", "v1.10.0"}, "v2.0.0", nil},
		{"ignores non-release tags", []string{"release-1.0", "v0.1", "zzz-9.9"}, "v0.1", nil},
		{"stable beats rc", []string{"v1.0.0-rc1", "v1.0.0"}, "v1.0.0", nil},
		{"no tags", nil, "", ErrNoTagsAvailable},
		{"no release tags", []string{"release-1.0", "1.0.0"}, "", ErrNoValidTags},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(&Snapshot{Tags: tt.tags}, Options{}).Select()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.Raw != tt.want {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCatalog_SelectOrderInvariant(t *testing.T) {
	tags := []string{"v1.0.0-rc1", "v1.0.0-beta1", "v1.0.0-alpha1", "v1.0.0", "release-1.1", "v0.9"}
	r := rand.New(rand.NewSource(1))
	for range 20 {
		shuffled := slices.Clone(tags)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Build(&Snapshot{Tags: shuffled}, Options{}).Select()
		if err != nil {
			t.Fatal(err)
		}
		if got.Raw != "v1.0.0" {
			t.Fatalf("Select() with tags %v = %v, want v1.0.0", shuffled, got)
		}
	}
}

func TestCatalog_SelectParseError(t *testing.T) {
	_, err := Build(&Snapshot{Tags: []string{"v1.0", "very-old"}}, Options{}).Select()
	if err == nil {
		t.Fatal("expected an error for a candidate tag with an invalid major version")
	}
	if errors.Is(err, ErrNoValidTags) {
		t.Errorf("parse errors must not be reported as %v", ErrNoValidTags)
	}
}

func TestCatalog_Releases(t *testing.T) {
	c := Build(&Snapshot{Tags: []string{"v1", "release-1.0", "nightly", "v2-rc1"}}, Options{})
	releases, skipped, err := c.Releases()
	if err != nil {
		t.Fatal(err)
	}
	var raws []string
	for _, r := range releases {
		raws = append(raws, r.Raw)
	}
	if diff := deep.Equal(raws, []string{"v1", "v2-rc1"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(skipped, []string{"nightly", "release-1.0"}); diff != nil {
		t.Error(diff)
	}
}

func TestCatalog_VerifyForced(t *testing.T) {
	c := Build(&Snapshot{
		Tags:        []string{"v1.0.0", "release-2"},
		BranchHeads: []string{"HEAD", "master", "origin-legacy"},
	}, Options{FilterOriginRefs: true})

	tests := []struct {
		version string
		wantErr bool
	}{
		{"v1.0.0", false},
		{"release-2", false},
		{"master", false},
		{"origin-legacy", false},
		{"v9.9.9", true},
		{"HEAD", true},
		{"v1.0", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := c.VerifyForced(tt.version)
			if tt.wantErr {
				if !errors.Is(err, ErrForcedVersionNotAvailable) {
					t.Errorf("VerifyForced(%q) = %v, want %v", tt.version, err, ErrForcedVersionNotAvailable)
				}
			} else if err != nil {
				t.Errorf("VerifyForced(%q) = %v", tt.version, err)
			}
		})
	}
}
