// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package azdo lists the refs of Azure DevOps Git repositories through the AzDO REST API.
package azdo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/microsoft/azure-devops-go-api/azuredevops"
	"github.com/microsoft/azure-devops-go-api/azuredevops/git"
	"github.com/openbase/citk-version-updater/catalog"
	"github.com/sirupsen/logrus"
)

// Repo identifies an AzDO Git repository.
type Repo struct {
	// Org is the base URL of the organization, such as 'https://dev.azure.com/citec'
	Org string
	// Proj is the project, such as 'toolkit'.
	Proj string
	// Name is the repository name or ID.
	Name string
}

// ParseRepoURL parses an AzDO repository URL of the form
// "https://[user@]dev.azure.com/<org>/<project>/_git/<repo>" or the older
// "https://<org>.visualstudio.com/<project>/_git/<repo>".
func ParseRepoURL(url string) (*Repo, error) {
	after, found := strings.CutPrefix(url, "https://")
	if !found {
		return nil, fmt.Errorf("not an AzDO repository URL: %v", url)
	}
	if at := strings.Index(after, "@"); at >= 0 && !strings.Contains(after[:at], "/") {
		after = after[at+1:]
	}
	host, path, _ := strings.Cut(after, "/")
	parts := strings.Split(strings.TrimSuffix(path, "/"), "/")

	var org string
	switch {
	case host == "dev.azure.com" && len(parts) == 4:
		org = "https://dev.azure.com/" + parts[0]
		parts = parts[1:]
	case strings.HasSuffix(host, ".visualstudio.com") && len(parts) == 3:
		org = "https://" + host
	default:
		return nil, fmt.Errorf("not an AzDO repository URL: %v", url)
	}
	if parts[1] != "_git" || parts[0] == "" || parts[2] == "" {
		return nil, fmt.Errorf("not an AzDO repository URL: %v", url)
	}
	return &Repo{Org: org, Proj: parts[0], Name: parts[2]}, nil
}

// NewConnection creates an AzDO connection to the given organization URL.
func NewConnection(org, pat string) (*azuredevops.Connection, error) {
	if pat == "" {
		return nil, errors.New("no AzDO PAT specified")
	}
	return azuredevops.NewPatConnection(org, pat), nil
}

// RefsClient is the part of git.Client used to list refs.
type RefsClient interface {
	GetRefs(ctx context.Context, args git.GetRefsArgs) (*git.GetRefsResponseValue, error)
}

// RefSource lists tags and branches through the AzDO Git API instead of cloning.
type RefSource struct {
	PAT string
	// NewClient creates the client for an organization URL. If nil, a git.Client is created with
	// a PAT connection.
	NewClient func(ctx context.Context, org string) (RefsClient, error)
	Log       logrus.FieldLogger
}

// ListRefs implements catalog.RefSource.
func (s *RefSource) ListRefs(ctx context.Context, repoURL string) (*catalog.Snapshot, error) {
	r, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	c, err := s.newClient(ctx, r.Org)
	if err != nil {
		return nil, err
	}
	tags, err := s.refs(ctx, c, r, "tags/")
	if err != nil {
		return nil, err
	}
	heads, err := s.refs(ctx, c, r, "heads/")
	if err != nil {
		return nil, err
	}
	return &catalog.Snapshot{Tags: tags, BranchHeads: heads}, nil
}

func (s *RefSource) newClient(ctx context.Context, org string) (RefsClient, error) {
	if s.NewClient != nil {
		return s.NewClient(ctx, org)
	}
	conn, err := NewConnection(org, s.PAT)
	if err != nil {
		return nil, err
	}
	c, err := git.NewClient(ctx, conn)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// refs returns the short names of all refs under "refs/<filter>", following continuation tokens.
func (s *RefSource) refs(ctx context.Context, c RefsClient, r *Repo, filter string) ([]string, error) {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	prefix := "refs/" + filter
	var names []string
	var token *string
	for {
		log.Debugf("Fetching %v of %v/%v/%v...", prefix, r.Org, r.Proj, r.Name)
		resp, err := c.GetRefs(ctx, git.GetRefsArgs{
			RepositoryId:      &r.Name,
			Project:           &r.Proj,
			Filter:            &filter,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get %v of %v: %w", prefix, r.Name, err)
		}
		for _, ref := range resp.Value {
			if ref.Name == nil {
				continue
			}
			if name, ok := strings.CutPrefix(*ref.Name, prefix); ok {
				names = append(names, name)
			}
		}
		if resp.ContinuationToken == "" {
			return names, nil
		}
		token = &resp.ContinuationToken
	}
}
