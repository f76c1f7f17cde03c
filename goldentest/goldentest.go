// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package goldentest compares text produced by a test, such as a patched distribution file or a
// rewritten project descriptor, against a golden file stored in testdata.
package goldentest

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/go-test/deep"
)

// update is set by "go test . -update". Packages whose tests don't import goldentest don't know the
// flag, so Check also accepts "go test ./... -args update".
var update = flag.Bool("update", false, "Update the golden files instead of failing.")

// Check compares actual against testdata/{t.Name()}/[goldenPath]. With "-update" or "-args update",
// writes actual to the golden file instead of failing.
func Check(t *testing.T, goldenPath, actual string) {
	t.Helper()

	if slices.Contains(flag.Args(), "update") {
		*update = true
	}

	path := filepath.Join("testdata", t.Name(), goldenPath)

	if *update {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o666); err != nil {
			t.Fatal(err)
		}
	}

	runHelp := fmt.Sprintf(
		"To regenerate this golden file, run: go test -run '^%v$' -update",
		t.Name())

	want, err := os.ReadFile(path)
	if err != nil {
		t.Errorf("Unable to read golden file: %v.\n%v", err, runHelp)
		return
	}
	if actual == string(want) {
		return
	}
	t.Errorf("Actual result didn't match golden file %v.\n%v", path, runHelp)
	for _, d := range LineDiff(string(want), actual) {
		t.Log(d)
	}
}

// LineDiff returns the differences between the lines of want and got. Line terminators are
// compared too, so a CRLF/LF mismatch or a missing final newline is reported.
func LineDiff(want, got string) []string {
	return deep.Equal(strings.SplitAfter(got, "\n"), strings.SplitAfter(want, "\n"))
}
