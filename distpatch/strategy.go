// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package distpatch

import (
	"fmt"
	"strings"

	"github.com/openbase/citk-version-updater/stringutil"
)

// Strategy knows how one distribution file format encodes a project entry on a single line.
type Strategy interface {
	// Name is the value used to select the strategy in configuration.
	Name() string
	// Match returns the current version if line is the entry of project.
	Match(line, project string) (version string, ok bool)
	// Rewrite returns line with its version replaced by version. line must have been accepted by
	// Match.
	Rewrite(line, version string) string
}

// Strategy names accepted by StrategyByName.
const (
	AtSignName = "at"
	QuotedName = "quoted"
	AutoName   = "auto"
)

// StrategyByName returns the strategy with the given name. For "auto", returns nil and no error:
// the caller should use Detect once the file content is known.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case AtSignName, "":
		return AtSign{}, nil
	case QuotedName:
		return Quoted{}, nil
	case AutoName:
		return nil, nil
	}
	return nil, fmt.Errorf("distribution format %q is not one of %q, %q, %q", name, AtSignName, QuotedName, AutoName)
}

// Detect returns the first strategy that accepts a line as the entry of project, trying AtSign
// before Quoted. Lines that only mention project, like comments, are skipped. If no line is an
// entry, returns AtSign.
func Detect(lines []string, project string) Strategy {
	candidates := []Strategy{AtSign{}, Quoted{}}
	for _, line := range lines {
		if !strings.Contains(line, project) {
			continue
		}
		for _, s := range candidates {
			if _, ok := s.Match(line, project); ok {
				return s
			}
		}
	}
	return AtSign{}
}

// Quoted handles lines where the project and version are double-quoted fields, with the version
// column aligned using spaces, for example:
//
//	- [ "rsb-java",        "0.15" ]
type Quoted struct{}

func (Quoted) Name() string { return QuotedName }

func (Quoted) Match(line, project string) (string, bool) {
	fields := strings.Split(line, `"`)
	if len(fields) < 4 || fields[1] != project {
		return "", false
	}
	return fields[3], true
}

// Rewrite replaces the version field and changes the spaces after the separating comma so the
// text after the version stays in the same column.
func (Quoted) Rewrite(line, version string) string {
	fields := strings.Split(line, `"`)
	padding := len(fields[2]) - 1 + len(fields[3]) - len(version)
	fields[2] = "," + strings.Repeat(" ", max(padding, 0))
	fields[3] = version
	return strings.Join(fields, `"`)
}

// AtSign handles lines where the version follows an "@", for example:
//
//	- rsb-java@0.15
type AtSign struct{}

func (AtSign) Name() string { return AtSignName }

func (AtSign) Match(line, project string) (string, bool) {
	fields := strings.Split(line, "@")
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "- "+project) {
		return "", false
	}
	version, _ := stringutil.CutLineTerminator(fields[1])
	return version, true
}

// Rewrite replaces the text between the first and second "@" (or the end of the line), keeping
// the line terminator.
func (AtSign) Rewrite(line, version string) string {
	fields := strings.Split(line, "@")
	_, terminator := stringutil.CutLineTerminator(fields[1])
	fields[1] = version + terminator
	return strings.Join(fields, "@")
}
