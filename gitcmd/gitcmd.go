// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package gitcmd contains utilities for common Git operations in a local repository, including
// authentication with a remote repository.
package gitcmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openbase/citk-version-updater/catalog"
	"github.com/openbase/citk-version-updater/executil"
	"github.com/sirupsen/logrus"
)

// ErrWorkDirLocked is returned by AcquireWorkDir when another process holds the work dir.
var ErrWorkDirLocked = errors.New("work dir is in use by another process")

// WorkDir returns the clone directory of project: "<root>/<user>/<project>". If root is empty, the
// system temp dir is used.
func WorkDir(root, project string) (string, error) {
	if project == "" || project == "." || strings.ContainsAny(project, `/\`) {
		return "", fmt.Errorf("invalid project name %q", project)
	}
	if root == "" {
		root = os.TempDir()
	}
	name, err := userName()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, name, project), nil
}

func userName() (string, error) {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Windows includes the domain.
		if _, after, found := strings.Cut(u.Username, `\`); found {
			return after, nil
		}
		return u.Username, nil
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", errors.New("unable to determine the current user name")
}

// AcquireWorkDir locks dir using the sibling file "<dir>.lock", then removes anything left at dir by
// an earlier run. A lock whose process is no longer running is replaced. The returned release func
// removes dir and the lock, and must be called once the work dir is no longer needed.
func AcquireWorkDir(dir string) (release func() error, err error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return nil, fmt.Errorf("unable to create parent of work dir: %w", err)
	}
	lock := dir + ".lock"
	if err := createLock(lock); err != nil {
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		pid, alive := lockOwner(lock)
		if alive {
			if pid == 0 {
				return nil, fmt.Errorf("%w: %v has no pid; delete it if no other run is active", ErrWorkDirLocked, lock)
			}
			return nil, fmt.Errorf("%w: %v is held by running process %v; it is replaced once that process exits", ErrWorkDirLocked, lock, pid)
		}
		logrus.Infof("Removing stale lock %v of process %v that is not running.", lock, pid)
		if err := os.Remove(lock); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("unable to remove stale lock file: %w", err)
		}
		if err := createLock(lock); err != nil {
			if errors.Is(err, os.ErrExist) {
				return nil, fmt.Errorf("%w: %v was taken by another process", ErrWorkDirLocked, lock)
			}
			return nil, err
		}
	}

	release = func() error {
		return errors.Join(os.RemoveAll(dir), os.Remove(lock))
	}
	if err := os.RemoveAll(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("unable to remove old work dir: %w", err), release())
	}
	return release, nil
}

// createLock creates the lock file and writes the current pid into it. Returns an error wrapping
// os.ErrExist if the file already exists.
func createLock(lock string) error {
	f, err := os.OpenFile(lock, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return err
		}
		return fmt.Errorf("unable to create lock file: %w", err)
	}
	_, writeErr := fmt.Fprintf(f, "%d\n", os.Getpid())
	if err := errors.Join(writeErr, f.Close()); err != nil {
		_ = os.Remove(lock)
		return fmt.Errorf("unable to write lock file: %w", err)
	}
	return nil
}

// lockOwner returns the pid stored in lock and whether that process is running. A lock that can't
// be read or holds no pid is treated as held, since its owner may still be writing it.
func lockOwner(lock string) (pid int, alive bool) {
	b, err := os.ReadFile(lock)
	if err != nil {
		return 0, true
	}
	pid, err = strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil || pid <= 0 {
		return 0, true
	}
	return pid, processRunning(pid)
}

// Clone clones url into dir without checking out a work tree. dir must not exist.
func Clone(ctx context.Context, url, dir string) error {
	return executil.RunQuiet(exec.CommandContext(ctx, "git", "clone", "--no-checkout", "--quiet", url, dir))
}

// Tags returns the names of all tags in the repository at dir.
func Tags(ctx context.Context, dir string) ([]string, error) {
	return outputLines(ctx, dir, "tag", "--list")
}

// RemoteBranchHeads returns the branch names of all remote-tracking refs in the repository at dir,
// without the "refs/remotes/<remote>/" prefix. The symbolic "HEAD" ref is included if present.
func RemoteBranchHeads(ctx context.Context, dir string) ([]string, error) {
	return outputLines(ctx, dir, "for-each-ref", "--format=%(refname:strip=3)", "refs/remotes/")
}

func outputLines(ctx context.Context, dir string, args ...string) ([]string, error) {
	c := exec.CommandContext(ctx, "git", args...)
	c.Dir = dir
	out, err := executil.Output(c)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// CloneSource lists refs by cloning the repository into a locked work dir. The clone is removed
// once the refs are read.
type CloneSource struct {
	// Root is the parent of the per-user work dirs. Empty means the system temp dir.
	Root string
	// Project names the work dir.
	Project string
	// Auther is applied to the repository URL before cloning. May be nil.
	Auther URLAuther
	Log    logrus.FieldLogger
}

// ListRefs implements catalog.RefSource.
func (s *CloneSource) ListRefs(ctx context.Context, repoURL string) (*catalog.Snapshot, error) {
	dir, err := WorkDir(s.Root, s.Project)
	if err != nil {
		return nil, err
	}
	release, err := AcquireWorkDir(dir)
	if err != nil {
		return nil, err
	}
	defer func() {
		if releaseErr := release(); releaseErr != nil {
			s.log().Warnf("unable to clean up work dir %v: %v", dir, releaseErr)
		}
	}()

	s.log().Debugf("cache repo %v into %v", repoURL, dir)
	url := repoURL
	if s.Auther != nil {
		url = s.Auther.InsertAuth(url)
	}
	if err := Clone(ctx, url, dir); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("unable to clone %v: %w", repoURL, ctx.Err())
		}
		// The error would show the URL, which may contain a secret.
		return nil, fmt.Errorf("unable to clone %v: exit code %v", repoURL, executil.ExitCode(err))
	}

	tags, err := Tags(ctx, dir)
	if err != nil {
		return nil, err
	}
	heads, err := RemoteBranchHeads(ctx, dir)
	if err != nil {
		return nil, err
	}
	return &catalog.Snapshot{Tags: tags, BranchHeads: heads}, nil
}

func (s *CloneSource) log() logrus.FieldLogger {
	if s.Log == nil {
		return logrus.StandardLogger()
	}
	return s.Log
}
