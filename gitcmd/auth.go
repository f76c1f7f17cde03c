// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package gitcmd

import (
	"fmt"
	"strings"

	"github.com/openbase/citk-version-updater/stringutil"
)

const githubPrefix = "https://github.com/"
const azdoHost = "dev.azure.com/"

// URLAuther manipulates a Git repository URL (GitHub, AzDO, ...) such that Git commands taking a
// remote will work with the URL. This is intentionally vague: it could add an access token into the
// URL, or it could simply make the URL compatible with environmental auth on the machine (SSH).
type URLAuther interface {
	// InsertAuth inserts authentication into the URL and returns it, or if the auther doesn't
	// apply, returns the url without any modifications.
	InsertAuth(url string) string
}

// GitHubSSHAuther turns an https-style GitHub URL into an SSH-style GitHub URL.
type GitHubSSHAuther struct{}

func (GitHubSSHAuther) InsertAuth(url string) string {
	if after, found := stringutil.CutPrefix(url, githubPrefix); found {
		return fmt.Sprintf("git@github.com:%v", after)
	}
	return url
}

// GitHubPATAuther adds a username and password into the https-style GitHub URL.
type GitHubPATAuther struct {
	User, PAT string
}

func (a GitHubPATAuther) InsertAuth(url string) string {
	if a.User == "" || a.PAT == "" {
		return url
	}
	if after, found := stringutil.CutPrefix(url, githubPrefix); found {
		return fmt.Sprintf("https://%v:%v@github.com/%v", a.User, a.PAT, after)
	}
	return url
}

// AzDOPATAuther adds a PAT into an https-style Azure DevOps repository URL. An existing user name
// in the URL, like "https://org@dev.azure.com/...", is replaced.
type AzDOPATAuther struct {
	PAT string
}

func (a AzDOPATAuther) InsertAuth(url string) string {
	if a.PAT == "" {
		return url
	}
	after, found := stringutil.CutPrefix(url, "https://")
	if !found {
		return url
	}
	if at := strings.Index(after, "@"); at >= 0 && !strings.Contains(after[:at], "/") {
		after = after[at+1:]
	}
	if rest, found := stringutil.CutPrefix(after, azdoHost); found {
		// Username doesn't matter. PAT is identity.
		return fmt.Sprintf("https://arbitraryusername:%v@%v%v", a.PAT, azdoHost, rest)
	}
	return url
}

// NoAuther does nothing to URLs.
type NoAuther struct{}

func (NoAuther) InsertAuth(url string) string {
	return url
}

// MultiAuther tries multiple authers in sequence. Stops and returns the result when any auther
// makes a change to the URL.
type MultiAuther struct {
	Authers []URLAuther
}

func (m MultiAuther) InsertAuth(url string) string {
	for _, a := range m.Authers {
		if authUrl := a.InsertAuth(url); authUrl != url {
			return authUrl
		}
	}
	return url
}

// Auth modes accepted by NewAuther.
const (
	AuthNone = "none"
	AuthSSH  = "ssh"
	AuthPAT  = "pat"
)

// NewAuther returns the auther for the given mode. For AuthPAT, the GitHub and AzDO PAT authers are
// combined, and each only applies when its credentials are set.
func NewAuther(mode, githubUser, githubPAT, azdoPAT string) (URLAuther, error) {
	switch mode {
	case AuthNone, "":
		return NoAuther{}, nil
	case AuthSSH:
		return GitHubSSHAuther{}, nil
	case AuthPAT:
		return MultiAuther{Authers: []URLAuther{
			GitHubPATAuther{User: githubUser, PAT: githubPAT},
			AzDOPATAuther{PAT: azdoPAT},
		}}, nil
	}
	return nil, fmt.Errorf("git auth mode %q is not one of %q, %q, %q", mode, AuthNone, AuthSSH, AuthPAT)
}
