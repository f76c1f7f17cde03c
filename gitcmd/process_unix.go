// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

//go:build unix

package gitcmd

import (
	"errors"
	"syscall"
)

// processRunning reports whether a process with the given pid exists.
func processRunning(pid int) bool {
	err := syscall.Kill(pid, 0)
	// EPERM: the process exists but belongs to another user.
	return err == nil || errors.Is(err, syscall.EPERM)
}
