// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package distpatch updates the version of one project in a distribution file. Only the version
// text of the matching line changes: every other byte of the file is kept, so the change shows up
// as a one-line diff in version control.
package distpatch

import (
	"fmt"
	"os"
	"strings"

	"github.com/openbase/citk-version-updater/stringutil"
)

// Result describes the outcome of a patch.
type Result struct {
	// Lines is the patched content. Equal to the input if nothing changed.
	Lines []string
	// Found is true if a line for the project exists.
	Found bool
	// AlreadyUpToDate is true if the line already had the requested version.
	AlreadyUpToDate bool
	// OldVersion is the version the line had before patching. Empty if not Found.
	OldVersion string
	// Line is the index of the patched line in Lines. Only meaningful if Found.
	Line int
	// Strategy is the strategy that was used, which matters when it was detected.
	Strategy Strategy
}

// Changed reports whether Lines differs from the input.
func (r *Result) Changed() bool {
	return r.Found && !r.AlreadyUpToDate
}

// Patch finds the first line that s matches for project and sets its version. Lines are expected
// to include their terminators. The input slice is not modified. If s is nil, it is detected.
func Patch(lines []string, project, version string, s Strategy) *Result {
	if s == nil {
		s = Detect(lines, project)
	}
	r := &Result{Lines: lines, Strategy: s}
	for i, line := range lines {
		// Cheap filter before splitting the line.
		if !strings.Contains(line, project) {
			continue
		}
		current, ok := s.Match(line, project)
		if !ok {
			continue
		}
		r.Found = true
		r.OldVersion = current
		r.Line = i
		if current == version {
			r.AlreadyUpToDate = true
			return r
		}
		patched := make([]string, len(lines))
		copy(patched, lines)
		patched[i] = s.Rewrite(line, version)
		r.Lines = patched
		return r
	}
	return r
}

// PatchFile patches the distribution file at path. The file is only replaced if the patch changes
// it and dryRun is false, and then only through a temporary file that is renamed over the original
// once it has been completely written.
func PatchFile(path, project, version string, s Strategy, dryRun bool) (*Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read distribution file: %w", err)
	}
	r := Patch(stringutil.SplitLines(string(content)), project, version, s)
	if !r.Changed() || dryRun {
		return r, nil
	}
	if err := stringutil.WriteFileAtomic(path, []byte(strings.Join(r.Lines, ""))); err != nil {
		return nil, fmt.Errorf("unable to write distribution file: %w", err)
	}
	return r, nil
}
