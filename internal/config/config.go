// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package config reads the optional JSON configuration file. Values set in the file override the
// built-in defaults, and are themselves overridden by environment variables and explicit flags.
package config

import (
	"github.com/openbase/citk-version-updater/stringutil"
)

// File is the content of a configuration file. Empty fields are unset.
type File struct {
	// Citk is the citk root containing "projects" and "distributions".
	Citk string `json:"citk"`
	// DistributionFormat is "at", "quoted" or "auto".
	DistributionFormat string `json:"distributionFormat"`
	// RefSource is "clone", "github" or "azdo".
	RefSource string `json:"refSource"`
	// GitAuth is "none", "ssh" or "pat".
	GitAuth    string `json:"gitAuth"`
	GitHubUser string `json:"githubUser"`
	// TempDir is the parent of the per-user clone dirs.
	TempDir string `json:"tempDir"`
}

// Load reads the configuration file at path. Unknown keys are an error. An empty path returns an
// empty File.
func Load(path string) (*File, error) {
	var f File
	if path == "" {
		return &f, nil
	}
	if err := stringutil.ReadJSONFile(path, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
