// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package githubutil creates GitHub API clients and lists the refs of GitHub repositories.
package githubutil

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v65/github"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrRepositoryNotExists indicates that the requested repository does not exist, or isn't visible
// with the given credentials.
var ErrRepositoryNotExists = errors.New("repository does not exist")

// NewClient creates a GitHub client using the given personal access token.
func NewClient(ctx context.Context, pat string) (*github.Client, error) {
	if pat == "" {
		return nil, errors.New("no GitHub PAT specified")
	}
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: pat})
	tokenClient := oauth2.NewClient(ctx, tokenSource)
	return github.NewClient(tokenClient), nil
}

// NewInstallationClient creates a GitHub client using the given GitHub App ID, installation ID, and
// base64-encoded PEM private key.
func NewInstallationClient(ctx context.Context, appID int64, installationID int64, privateKey string) (*github.Client, error) {
	if appID == 0 {
		return nil, errors.New("no GitHub App ID specified")
	}
	if installationID == 0 {
		return nil, errors.New("no GitHub App Installation ID specified")
	}
	if privateKey == "" {
		return nil, errors.New("no GitHub App private key specified")
	}
	signed, err := GenerateJWT(appID, privateKey, time.Now())
	if err != nil {
		return nil, err
	}

	// Exchange the JWT for an installation token.
	appClient := github.NewClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: signed})))
	token, _, err := appClient.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get installation token: %w", err)
	}

	return NewClient(ctx, token.GetToken())
}

// GenerateJWT generates a JWT for a GitHub App, issued at now.
func GenerateJWT(appID int64, privateKey string, now time.Time) (string, error) {
	privkey, err := base64.StdEncoding.DecodeString(privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to base64-decode private key: %v", err)
	}
	block, _ := pem.Decode(privkey)
	if block == nil {
		return "", fmt.Errorf("failed to decode private key")
	}

	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", fmt.Errorf("failed to parse RSA private key: %v", err)
	}

	claims := jwt.RegisteredClaims{
		// Allow for some clock drift between us and GitHub.
		IssuedAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		// Only used to get an installation token.
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		Issuer:    fmt.Sprint(appID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedToken, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %v", err)
	}
	return signedToken, nil
}

// ParseRepoURL splits a GitHub repository URL into owner and name. Accepts https URLs, optionally
// with user info, and SSH URLs of the form "git@github.com:owner/name.git".
func ParseRepoURL(url string) (owner, name string, err error) {
	path, found := strings.CutPrefix(url, "git@github.com:")
	if !found {
		after, ok := strings.CutPrefix(url, "https://")
		if !ok {
			return "", "", fmt.Errorf("not a GitHub repository URL: %v", url)
		}
		if at := strings.Index(after, "@"); at >= 0 && !strings.Contains(after[:at], "/") {
			after = after[at+1:]
		}
		path, found = strings.CutPrefix(after, "github.com/")
		if !found {
			return "", "", fmt.Errorf("not a GitHub repository URL: %v", url)
		}
	}
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), ".git")
	owner, name, found = strings.Cut(path, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("unable to split repo into owner and name: %v", url)
	}
	return owner, name, nil
}

// FetchEachPage helps fetch all data from a GitHub API call that may or may not span multiple
// pages. FetchEachPage initially calls f with no paging parameters, then inspects the GitHub
// response to see if there are more pages to fetch. If so, it constructs paging parameters that
// will fetch the next page and calls f again. This repeats until there aren't any more pages.
//
// Note that FetchEachPage doesn't process any of the result data, and doesn't actually call the
// GitHub API. f must do this itself. This allows FetchEachPage to work with any GitHub API.
func FetchEachPage(f func(options github.ListOptions) (*github.Response, error)) error {
	options := github.ListOptions{PerPage: 100}
	for {
		logrus.Debugf("Fetching page %v...", options.Page)
		resp, err := f(options)
		if err != nil {
			return err
		}
		if resp.NextPage == 0 {
			return nil
		}
		options.Page = resp.NextPage
	}
}
