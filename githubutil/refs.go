// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package githubutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v65/github"
	"github.com/openbase/citk-version-updater/catalog"
	"github.com/sirupsen/logrus"
)

// RefSource lists tags and branches through the GitHub API instead of cloning.
type RefSource struct {
	Client *github.Client
	Log    logrus.FieldLogger
}

// ListRefs implements catalog.RefSource. Branches are reported as remote branch heads.
func (s *RefSource) ListRefs(ctx context.Context, repoURL string) (*catalog.Snapshot, error) {
	owner, name, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var snapshot catalog.Snapshot
	log.Debugf("Fetching tags of %v/%v...", owner, name)
	if err := FetchEachPage(func(options github.ListOptions) (*github.Response, error) {
		tags, resp, err := s.Client.Repositories.ListTags(ctx, owner, name, &options)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			snapshot.Tags = append(snapshot.Tags, t.GetName())
		}
		return resp, nil
	}); err != nil {
		return nil, wrapNotFound(err, owner, name)
	}

	log.Debugf("Fetching branches of %v/%v...", owner, name)
	if err := FetchEachPage(func(options github.ListOptions) (*github.Response, error) {
		branches, resp, err := s.Client.Repositories.ListBranches(ctx, owner, name, &github.BranchListOptions{
			ListOptions: options,
		})
		if err != nil {
			return nil, err
		}
		for _, b := range branches {
			snapshot.BranchHeads = append(snapshot.BranchHeads, b.GetName())
		}
		return resp, nil
	}); err != nil {
		return nil, wrapNotFound(err, owner, name)
	}
	return &snapshot, nil
}

// wrapNotFound wraps err with ErrRepositoryNotExists if it is a GitHub 404 response.
func wrapNotFound(err error, owner, name string) error {
	var errResponse *github.ErrorResponse
	if errors.As(err, &errResponse) && errResponse.Response != nil && errResponse.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v/%v", ErrRepositoryNotExists, owner, name)
	}
	return err
}
