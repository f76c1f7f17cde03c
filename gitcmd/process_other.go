// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

//go:build !unix

package gitcmd

// processRunning can't check other processes on this platform, so locks are never considered stale.
func processRunning(pid int) bool {
	return true
}
