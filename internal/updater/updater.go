// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package updater syncs the branches and tags of a project into its citk project descriptor, then
// sets the project's version in a distribution file.
package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openbase/citk-version-updater/catalog"
	"github.com/openbase/citk-version-updater/distpatch"
	"github.com/openbase/citk-version-updater/gitcmd"
	"github.com/openbase/citk-version-updater/internal/logging"
	"github.com/openbase/citk-version-updater/projectfile"
	"github.com/sirupsen/logrus"
)

// Process exit codes.
const (
	ExitFailure               = 1
	ExitNoTags                = 22
	ExitNoValidTags           = 23
	ExitRepositoryUnavailable = 233
)

var (
	// ErrRepositoryUnavailable is returned if the refs of the project repository can't be listed.
	ErrRepositoryUnavailable = errors.New("project repository is not available")
	// ErrDistributionFileMissing is returned if the named distribution file doesn't exist.
	ErrDistributionFileMissing = errors.New("distribution does not exist")
)

// Options configures Run.
type Options struct {
	// Project is the project name. Names the descriptor, the work dir and the distribution entry.
	Project string
	// CitkPath is the citk root containing "projects" and "distributions".
	CitkPath string
	// Distribution is the distribution name. If empty, only the descriptor is updated.
	Distribution string
	// ForcedVersion, if set, is used instead of the best release tag. It must be an existing tag
	// or branch.
	ForcedVersion string
	// DryRun disables all file writes. A forced version that doesn't exist is only a warning.
	DryRun bool
	// DistributionFormat is a distpatch strategy name.
	DistributionFormat string
	// Refs lists the refs of the project repository.
	Refs catalog.RefSource
	Log  logrus.FieldLogger
}

// ProjectFile returns the path of the project descriptor.
func (o *Options) ProjectFile() string {
	return filepath.Join(o.CitkPath, "projects", o.Project+".project")
}

// DistributionFile returns the path of the distribution file.
func (o *Options) DistributionFile() string {
	return filepath.Join(o.CitkPath, "distributions", o.Distribution+".distribution")
}

// Result describes what Run did.
type Result struct {
	// BranchDelta and TagDelta are the changes in the number of listed branches and tags.
	BranchDelta, TagDelta int
	// Version is the version put into the distribution. Empty if the distribution step didn't run.
	Version string
	// Patch is the distribution patch result, or nil if the distribution step didn't run.
	Patch *distpatch.Result
}

// Run updates the project descriptor and, if a distribution is given, the distribution file.
// Errors that should cause a specific process exit code implement "ExitCode() int".
func Run(ctx context.Context, o *Options) (*Result, error) {
	log := o.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	strategy, err := distpatch.StrategyByName(o.DistributionFormat)
	if err != nil {
		return nil, err
	}

	projectFile := o.ProjectFile()
	distributionFile := o.DistributionFile()

	if o.Distribution != "" {
		if _, err := os.Stat(distributionFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				log.Infof("distribution %v does not exist", logging.Bad(distributionFile))
				return nil, fmt.Errorf("%w: %v", ErrDistributionFileMissing, distributionFile)
			}
			return nil, err
		}
	}

	d, snapshot, err := syncDescriptor(ctx, o, log, projectFile)
	if err != nil {
		return nil, err
	}
	c := catalog.Build(snapshot, catalog.Options{FilterOriginRefs: true})
	result := &Result{
		BranchDelta: d.SetBranches(c.Branches),
		TagDelta:    d.SetTags(c.Tags),
	}
	if !o.DryRun {
		if err := d.Write(projectFile); err != nil {
			logNotUpdated(log, o, projectFile)
			return nil, err
		}
	}
	logDelta(log, o, projectFile, result.BranchDelta, "branch", "branches")
	logDelta(log, o, projectFile, result.TagDelta, "tag", "tags")

	if o.ForcedVersion != "" {
		if err := c.VerifyForced(o.ForcedVersion); err != nil {
			if !o.DryRun {
				return nil, fmt.Errorf("%w: %v is not available for %v",
					catalog.ErrForcedVersionNotAvailable, o.ForcedVersion, o.Project)
			}
			log.Warnf("the forced version %v is not available for %v", logging.Warn(o.ForcedVersion), logging.Path(o.Project))
		}
	}

	if o.Distribution == "" {
		log.Info("skip project upgrade within distribution because no distribution was defined!")
		return result, nil
	}

	result.Version = o.ForcedVersion
	if result.Version == "" {
		selected, err := c.Select()
		if err != nil {
			return nil, selectError(err, o.Project)
		}
		log.Debugf("selected %v", selected)
		if selected.IsPrerelease() {
			log.Warnf("the newest release of %v is the prerelease %v", logging.Path(o.Project), logging.Warn(selected.Raw))
		}
		result.Version = selected.Raw
	}

	r, err := distpatch.PatchFile(distributionFile, o.Project, result.Version, strategy, o.DryRun)
	if err != nil {
		return nil, err
	}
	result.Patch = r
	switch {
	case !r.Found:
		log.Infof("project %v skipped! %v in %v",
			logging.Path(o.Project), logging.Warn("Entry not found"), logging.Path(distributionFile))
	case r.AlreadyUpToDate:
		log.Infof("%v is already %v within %v",
			logging.Path(o.Project), logging.Good("up-to-date"), logging.Path(o.Distribution))
	default:
		log.Infof("upgrade %v version from %v to %v",
			o.Project, logging.Path(r.OldVersion), logging.Good(result.Version))
	}
	return result, nil
}

// syncDescriptor reads the descriptor and lists the refs of the repository it names.
func syncDescriptor(ctx context.Context, o *Options, log logrus.FieldLogger, projectFile string) (*projectfile.Descriptor, *catalog.Snapshot, error) {
	d, err := projectfile.Read(projectFile)
	if err != nil {
		logNotUpdated(log, o, projectFile)
		return nil, nil, err
	}
	repo, err := d.Repository()
	if err != nil {
		log.Infof("project repository entry could not be found in project description %v", logging.Bad(projectFile))
		return nil, nil, err
	}
	snapshot, err := o.Refs.ListRefs(ctx, repo)
	if err != nil {
		if errors.Is(err, gitcmd.ErrWorkDirLocked) || errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		log.Infof("project repository %v is not available", logging.Bad(repo))
		return nil, nil, &exitError{
			code: ExitRepositoryUnavailable,
			err:  fmt.Errorf("%w: %v: %w", ErrRepositoryUnavailable, repo, err),
		}
	}
	return d, snapshot, nil
}

func selectError(err error, project string) error {
	switch {
	case errors.Is(err, catalog.ErrNoTagsAvailable):
		return &exitError{code: ExitNoTags, err: fmt.Errorf("%w for project %v", err, project)}
	case errors.Is(err, catalog.ErrNoValidTags):
		return &exitError{code: ExitNoValidTags, err: fmt.Errorf("%w for project %v", err, project)}
	}
	return err
}

func logNotUpdated(log logrus.FieldLogger, o *Options, projectFile string) {
	log.Infof("versions [branches|tags] of project %v not updated in %v",
		logging.Bad(o.Project), logging.Path(projectFile))
}

func logDelta(log logrus.FieldLogger, o *Options, projectFile string, delta int, singular, plural string) {
	if delta == 0 {
		return
	}
	noun := plural
	if delta == 1 {
		noun = singular
	}
	log.Infof("update %v %v of project %v in %v!",
		logging.Good(fmt.Sprint(delta)), noun, logging.Good(o.Project), logging.Path(projectFile))
}

// exitError attaches a process exit code to an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }
func (e *exitError) ExitCode() int { return e.code }
