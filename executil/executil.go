// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package executil contains some common wrappers for simple use of exec.Cmd.
package executil

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// RunQuiet logs the command line and runs the given command. Output goes wherever c is already
// set up to send it, by default os.DevNull.
func RunQuiet(c *exec.Cmd) error {
	logCommand(c)
	return c.Run()
}

// Output runs the command and returns its stdout. If the command fails, the returned error
// includes the trimmed stderr, and wraps the *exec.ExitError.
func Output(c *exec.Cmd) (string, error) {
	logCommand(c)
	var stderr bytes.Buffer
	c.Stderr = &stderr
	out, err := c.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%v failed: %w: %v", c.Args[1:], err, msg)
		}
		return "", fmt.Errorf("%v failed: %w", c.Args[1:], err)
	}
	return string(out), nil
}

// ExitCode returns the exit code of the process that caused err, or -1 if err doesn't come from
// a process that exited.
func ExitCode(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func logCommand(c *exec.Cmd) {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = Redact(a)
	}
	if c.Dir != "" {
		logrus.Debugf("---- Running command in %v: %v %v", c.Dir, c.Path, args)
		return
	}
	logrus.Debugf("---- Running command: %v %v", c.Path, args)
}

// Redact replaces the password in arg with "xxxxx" if arg is a URL that contains one.
func Redact(arg string) string {
	if !strings.Contains(arg, "://") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return arg
	}
	if _, ok := u.User.Password(); !ok {
		return arg
	}
	return u.Redacted()
}
