// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package updater

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/openbase/citk-version-updater/catalog"
	"github.com/openbase/citk-version-updater/internal/logging"
	"github.com/openbase/citk-version-updater/projectfile"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const descriptor = `catalog:
  title: RSB Java
variables:
  repository: https://github.com/open-rsx/rsb-java.git
  branches:
  - master
`

const distribution = `catalog:
  title: Toolkit Core
versions:
- rsb-cpp@0.15
- rsb-java@0.15
`

// fakeRefs is a catalog.RefSource that returns a fixed snapshot.
type fakeRefs struct {
	snapshot catalog.Snapshot
	err      error
	gotURL   string
	calls    int
}

func (f *fakeRefs) ListRefs(ctx context.Context, repoURL string) (*catalog.Snapshot, error) {
	f.calls++
	f.gotURL = repoURL
	if f.err != nil {
		return nil, f.err
	}
	return &f.snapshot, nil
}

func defaultRefs() *fakeRefs {
	return &fakeRefs{snapshot: catalog.Snapshot{
		Tags:        []string{"v0.15", "v0.16-rc1", "v0.16", "release-0.14", "v0.14.9-beta"},
		BranchHeads: []string{"HEAD", "master", "0.16", "0.15", "origin-legacy"},
	}}
}

// setupCitk creates a citk root with the rsb-java descriptor and the core distribution.
func setupCitk(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range map[string]string{
		"projects/rsb-java.project":       descriptor,
		"distributions/core.distribution": distribution,
	} {
		path = filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func newOptions(t *testing.T, refs catalog.RefSource) *Options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Options{
		Project:      "rsb-java",
		CitkPath:     setupCitk(t),
		Distribution: "core",
		Refs:         refs,
		Log:          l,
	}
}

func TestRun(t *testing.T) {
	refs := defaultRefs()
	o := newOptions(t, refs)

	result, err := Run(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}

	if refs.gotURL != "https://github.com/open-rsx/rsb-java.git" {
		t.Errorf("ListRefs URL = %q", refs.gotURL)
	}
	if result.BranchDelta != 2 || result.TagDelta != 5 {
		t.Errorf("deltas = %v, %v, want 2, 5", result.BranchDelta, result.TagDelta)
	}
	if result.Version != "v0.16" {
		t.Errorf("Version = %q, want v0.16", result.Version)
	}

	d, err := projectfile.Read(o.ProjectFile())
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(d.Branches(), []string{"0.15", "0.16", "master"}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(d.Tags(), []string{"release-0.14", "v0.14.9-beta", "v0.15", "v0.16", "v0.16-rc1"}); diff != nil {
		t.Error(diff)
	}
	ensureFileContent(t, o.DistributionFile(), "catalog:\n  title: Toolkit Core\nversions:\n- rsb-cpp@0.15\n- rsb-java@v0.16\n")
}

func TestRun_DryRun(t *testing.T) {
	o := newOptions(t, defaultRefs())
	o.DryRun = true

	result, err := Run(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Patch.Changed() {
		t.Errorf("expected the dry run to report a change")
	}
	ensureFileContent(t, o.ProjectFile(), descriptor)
	ensureFileContent(t, o.DistributionFile(), distribution)
	ensureOnlyFiles(t, filepath.Dir(o.DistributionFile()), "core.distribution")
	ensureOnlyFiles(t, filepath.Dir(o.ProjectFile()), "rsb-java.project")
}

func TestRun_NoDistribution(t *testing.T) {
	o := newOptions(t, defaultRefs())
	o.Distribution = ""

	result, err := Run(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	if result.Patch != nil || result.Version != "" {
		t.Errorf("distribution step ran: %#v", result)
	}
	d, err := projectfile.Read(o.ProjectFile())
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Tags()) != 5 {
		t.Errorf("Tags() = %v, want 5 tags", d.Tags())
	}
}

func TestRun_UpToDate(t *testing.T) {
	o := newOptions(t, defaultRefs())
	o.Project = "rsb-cpp"
	o.ForcedVersion = "0.15"
	if err := os.WriteFile(o.ProjectFile(), []byte(descriptor), 0o666); err != nil {
		t.Fatal(err)
	}

	result, err := Run(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Patch.AlreadyUpToDate {
		t.Errorf("expected up to date, got %#v", result.Patch)
	}
	ensureFileContent(t, o.DistributionFile(), distribution)
}

func TestRun_EntryNotFound(t *testing.T) {
	o := newOptions(t, defaultRefs())
	o.Project = "rsb-python"
	if err := os.WriteFile(o.ProjectFile(), []byte(descriptor), 0o666); err != nil {
		t.Fatal(err)
	}

	result, err := Run(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	if result.Patch.Found {
		t.Errorf("expected entry not to be found")
	}
	ensureFileContent(t, o.DistributionFile(), distribution)
}

func TestRun_ForcedVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		dryRun  bool
		wantErr error
		want    string
	}{
		{"tag", "v0.15", false, nil, "- rsb-java@v0.15\n"},
		{"branch", "0.16", false, nil, "- rsb-java@0.16\n"},
		{"origin branch", "origin-legacy", false, nil, "- rsb-java@origin-legacy\n"},
		{"missing", "v9.9", false, catalog.ErrForcedVersionNotAvailable, "- rsb-java@0.15\n"},
		{"missing in dry run", "v9.9", true, nil, "- rsb-java@0.15\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOptions(t, defaultRefs())
			o.ForcedVersion = tt.version
			o.DryRun = tt.dryRun

			result, err := Run(context.Background(), o)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && result.Version != tt.version {
				t.Errorf("Version = %q, want %q", result.Version, tt.version)
			}
			if got := exitCode(err); tt.wantErr != nil && got != ExitFailure {
				t.Errorf("exit code = %v, want %v", got, ExitFailure)
			}
			ensureFileContent(t, o.DistributionFile(), "catalog:\n  title: Toolkit Core\nversions:\n- rsb-cpp@0.15\n"+tt.want)
		})
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		refs     *fakeRefs
		wantErr  error
		wantCode int
	}{
		{"no tags", &fakeRefs{snapshot: catalog.Snapshot{BranchHeads: []string{"master"}}}, catalog.ErrNoTagsAvailable, ExitNoTags},
		{"no valid tags", &fakeRefs{snapshot: catalog.Snapshot{Tags: []string{"release-1", "1.0"}}}, catalog.ErrNoValidTags, ExitNoValidTags},
		{"repository unavailable", &fakeRefs{err: errors.New("clone failed")}, ErrRepositoryUnavailable, ExitRepositoryUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOptions(t, tt.refs)
			_, err := Run(context.Background(), o)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Run() error = %v, want %v", err, tt.wantErr)
			}
			if got := exitCode(err); got != tt.wantCode {
				t.Errorf("exit code = %v, want %v", got, tt.wantCode)
			}
			ensureFileContent(t, o.DistributionFile(), distribution)
		})
	}
}

func TestRun_RepositoryUnavailableKeepsDescriptor(t *testing.T) {
	o := newOptions(t, &fakeRefs{err: errors.New("clone failed")})
	if _, err := Run(context.Background(), o); err == nil {
		t.Fatal("expected an error")
	}
	ensureFileContent(t, o.ProjectFile(), descriptor)
}

func TestRun_MissingDistribution(t *testing.T) {
	refs := defaultRefs()
	o := newOptions(t, refs)
	o.Distribution = "does-not-exist"

	_, err := Run(context.Background(), o)
	if !errors.Is(err, ErrDistributionFileMissing) {
		t.Fatalf("Run() error = %v, want %v", err, ErrDistributionFileMissing)
	}
	if exitCode(err) != ExitFailure {
		t.Errorf("exit code = %v, want %v", exitCode(err), ExitFailure)
	}
	if refs.calls != 0 {
		t.Errorf("refs were listed before the distribution was verified")
	}
	ensureFileContent(t, o.ProjectFile(), descriptor)
}

func TestRun_MissingRepository(t *testing.T) {
	refs := defaultRefs()
	o := newOptions(t, refs)
	if err := os.WriteFile(o.ProjectFile(), []byte("variables:\n  branches: []\n"), 0o666); err != nil {
		t.Fatal(err)
	}

	_, err := Run(context.Background(), o)
	if !errors.Is(err, projectfile.ErrMissingRepository) {
		t.Fatalf("Run() error = %v, want %v", err, projectfile.ErrMissingRepository)
	}
	if exitCode(err) != ExitFailure {
		t.Errorf("exit code = %v, want %v", exitCode(err), ExitFailure)
	}
	if refs.calls != 0 {
		t.Errorf("refs were listed without a repository")
	}
}

func TestRun_MissingDescriptor(t *testing.T) {
	o := newOptions(t, defaultRefs())
	o.Project = "unknown"
	if _, err := Run(context.Background(), o); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Run() error = %v, want %v", err, os.ErrNotExist)
	}
}

func TestRun_UnknownFormat(t *testing.T) {
	o := newOptions(t, defaultRefs())
	o.DistributionFormat = "toml"
	if _, err := Run(context.Background(), o); err == nil {
		t.Error("expected an error for an unknown distribution format")
	}
}

func TestRun_PrereleaseWarning(t *testing.T) {
	tests := []struct {
		name     string
		tags     []string
		want     string
		wantWarn bool
	}{
		{"newest is a release candidate", []string{"v0.15", "v0.16-rc1"}, "v0.16-rc1", true},
		{"prerelease superseded", []string{"v0.16-rc1", "v0.16"}, "v0.16", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOptions(t, &fakeRefs{snapshot: catalog.Snapshot{Tags: tt.tags}})
			l, hook := test.NewNullLogger()
			o.Log = l

			result, err := Run(context.Background(), o)
			if err != nil {
				t.Fatal(err)
			}
			if result.Version != tt.want {
				t.Errorf("Version = %q, want %q", result.Version, tt.want)
			}
			var warned bool
			for _, e := range hook.AllEntries() {
				if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "prerelease") {
					warned = true
				}
			}
			if warned != tt.wantWarn {
				t.Errorf("prerelease warning logged = %v, want %v", warned, tt.wantWarn)
			}
		})
	}
}

func TestRun_ErrorsHaveNoColors(t *testing.T) {
	t.Cleanup(func() { logging.Setup(os.Stderr, false) })
	t.Setenv("NO_COLOR", "")
	t.Setenv("CLICOLOR_FORCE", "1")
	logging.Setup(io.Discard, false)
	if !strings.Contains(logging.Bad("x"), "\x1b[") {
		t.Skip("colored highlights are not available")
	}

	tests := []struct {
		name   string
		refs   *fakeRefs
		modify func(o *Options)
	}{
		{"missing distribution", defaultRefs(), func(o *Options) { o.Distribution = "does-not-exist" }},
		{"forced version missing", defaultRefs(), func(o *Options) { o.ForcedVersion = "v9.9" }},
		{"repository unavailable", &fakeRefs{err: errors.New("clone failed")}, func(o *Options) {}},
		{"no tags", &fakeRefs{snapshot: catalog.Snapshot{BranchHeads: []string{"master"}}}, func(o *Options) {}},
		{"no valid tags", &fakeRefs{snapshot: catalog.Snapshot{Tags: []string{"release-1"}}}, func(o *Options) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOptions(t, tt.refs)
			tt.modify(o)
			_, err := Run(context.Background(), o)
			if err == nil {
				t.Fatal("expected an error")
			}
			if strings.Contains(err.Error(), "\x1b") {
				t.Errorf("error contains escape sequences: %q", err.Error())
			}
		})
	}
}

// exitCode maps err to a process exit code the same way main does.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFailure
}

func ensureFileContent(t *testing.T, path, want string) {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != want {
		t.Errorf("content wanted: %#q, got: %#q in file %#q", want, string(b), path)
	}
}

func ensureOnlyFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if diff := deep.Equal(got, names); diff != nil {
		t.Errorf("unexpected files in %v: %v", dir, diff)
	}
}
