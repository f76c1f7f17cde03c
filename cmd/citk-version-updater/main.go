// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/openbase/citk-version-updater/internal/logging"
	"github.com/sirupsen/logrus"
)

const description = `
citk-version-updater writes the current branches and tags of a project into its citk project
descriptor, then upgrades the project to its newest release tag in a distribution file.

Example: update the descriptor of the project in the current directory and set its version in the
"core" distribution:

  citk-version-updater --distribution core

The newest release is the greatest tag starting with "v", preferring stable releases over "rc",
"beta" and "alpha" tags of the same version. Use --version to pick a tag or branch instead.

Exit codes: 0 success, 1 failure, 22 no tags, 23 no release tags, 233 repository not available.
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		if !errors.Is(err, errNoArguments) {
			logrus.Errorf("%v: %v", logging.Bad("ERROR"), err)
		}
		os.Exit(exitCode(err))
	}
}

type exitCoder interface {
	ExitCode() int
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	var coded exitCoder
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}

	return 1
}

// errNoArguments is returned after printing the help text when the command is run without
// arguments.
var errNoArguments = errors.New("no arguments given")
