// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v65/github"
	"github.com/openbase/citk-version-updater/azdo"
	"github.com/openbase/citk-version-updater/catalog"
	"github.com/openbase/citk-version-updater/distpatch"
	"github.com/openbase/citk-version-updater/gitcmd"
	"github.com/openbase/citk-version-updater/githubutil"
	"github.com/openbase/citk-version-updater/internal/config"
	"github.com/openbase/citk-version-updater/internal/logging"
	"github.com/openbase/citk-version-updater/internal/updater"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Ref sources accepted by --ref-source.
const (
	refSourceClone  = "clone"
	refSourceGitHub = "github"
	refSourceAzDO   = "azdo"
)

type options struct {
	ConfigPath         string
	Project            string
	Citk               string
	Distribution       string
	Version            string
	DryRun             bool
	Verbose            bool
	DistributionFormat string
	RefSource          string
	GitAuth            string
	TempDir            string

	GitHubUser            string
	GitHubPAT             string
	GitHubAppID           int64
	GitHubAppInstallation int64
	GitHubAppPrivateKey   string
	AzDOPAT               string
}

func newRootCmd() *cobra.Command {
	var flagOpts options

	cmd := &cobra.Command{
		Use:           "citk-version-updater",
		Short:         "Sync project branches and tags into citk and upgrade the project in a distribution",
		Long:          description,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().NFlag() == 0 {
				if err := cmd.Help(); err != nil {
					return err
				}
				return errNoArguments
			}
			o, err := mergedOptions(cmd.Flags(), &flagOpts)
			if err != nil {
				return err
			}
			log := logging.Setup(cmd.ErrOrStderr(), o.Verbose)
			log.Debug("Debug log enabled.")

			ctx := cmd.Context()
			refs, err := newRefSource(ctx, o, log)
			if err != nil {
				return err
			}
			_, err = updater.Run(ctx, &updater.Options{
				Project:            o.Project,
				CitkPath:           o.Citk,
				Distribution:       o.Distribution,
				ForcedVersion:      o.Version,
				DryRun:             o.DryRun,
				DistributionFormat: o.DistributionFormat,
				Refs:               refs,
				Log:                log,
			})
			return err
		},
	}

	flagOpts.addFlags(cmd.Flags())
	return cmd
}

func (o *options) addFlags(f *pflag.FlagSet) {
	f.StringVar(&o.ConfigPath, "config", "", "Path to a JSON config file.")
	f.StringVar(&o.Project, "project", "", "The name of the project to apply the version upgrade. Default: the name of the current directory.")
	f.StringVar(&o.Citk, "citk", "", "Path to the citk project which contains the project and distribution descriptions. Default: ~/workspace/csra/citk")
	f.StringVar(&o.Distribution, "distribution", "", "The name of the distribution to apply the version upgrade. If empty, only the project description is updated.")
	f.StringVar(&o.Version, "version", "", "Force the version update to the given tag or branch of the project.")
	f.BoolVar(&o.DryRun, "dry-run", false, "Don't write any files. A forced version that isn't available is only a warning.")
	f.BoolVarP(&o.Verbose, "verbose", "v", false, "Enable debug logging.")
	f.StringVar(&o.DistributionFormat, "distribution-format", "", fmt.Sprintf(
		"The format of version lines in the distribution: %q (- project@version), %q ([ \"project\", \"version\" ]) or %q. Default: %q",
		distpatch.AtSignName, distpatch.QuotedName, distpatch.AutoName, distpatch.AtSignName))
	f.StringVar(&o.RefSource, "ref-source", "", fmt.Sprintf(
		"How to list the tags and branches of the project: %q, %q or %q. Default: %q",
		refSourceClone, refSourceGitHub, refSourceAzDO, refSourceClone))
	f.StringVar(&o.GitAuth, "git-auth", "", fmt.Sprintf(
		"How to authenticate the clone URL: %q, %q or %q. Default: %q",
		gitcmd.AuthNone, gitcmd.AuthSSH, gitcmd.AuthPAT, gitcmd.AuthNone))
	f.StringVar(&o.TempDir, "temp-dir", "", "The parent of the per-user clone directories. Default: the system temp dir.")
	f.StringVar(&o.GitHubUser, "github-user", "", "The GitHub user to authenticate clone URLs as.")
	f.StringVar(&o.GitHubPAT, "github-pat", "", "The GitHub PAT to use. Default: $GITHUB_TOKEN")
	f.Int64Var(&o.GitHubAppID, "github-app-id", 0, "The GitHub App ID to use for the GitHub API.")
	f.Int64Var(&o.GitHubAppInstallation, "github-app-installation", 0, "The GitHub App Installation ID to use for the GitHub API.")
	f.StringVar(&o.GitHubAppPrivateKey, "github-app-private-key", "", "The base64-encoded GitHub App private key to use for the GitHub API.")
	f.StringVar(&o.AzDOPAT, "azdo-pat", "", "The Azure DevOps PAT to use. Default: $AZDO_PAT")
}

// mergedOptions layers the built-in defaults, the config file, the environment and the flags that
// were set explicitly, in increasing order of precedence.
func mergedOptions(flags *pflag.FlagSet, flagOpts *options) (*options, error) {
	merged := &options{
		ConfigPath:         flagOpts.ConfigPath,
		DistributionFormat: distpatch.AtSignName,
		RefSource:          refSourceClone,
		GitAuth:            gitcmd.AuthNone,
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get cwd: %w", err)
	}
	merged.Project = filepath.Base(cwd)

	if home, err := os.UserHomeDir(); err == nil {
		merged.Citk = filepath.Join(home, "workspace", "csra", "citk")
	}

	fileCfg, err := config.Load(flagOpts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if fileCfg.Citk != "" {
		merged.Citk = fileCfg.Citk
	}
	if fileCfg.DistributionFormat != "" {
		merged.DistributionFormat = fileCfg.DistributionFormat
	}
	if fileCfg.RefSource != "" {
		merged.RefSource = fileCfg.RefSource
	}
	if fileCfg.GitAuth != "" {
		merged.GitAuth = fileCfg.GitAuth
	}
	if fileCfg.GitHubUser != "" {
		merged.GitHubUser = fileCfg.GitHubUser
	}
	if fileCfg.TempDir != "" {
		merged.TempDir = fileCfg.TempDir
	}

	if value, ok := getenvTrim("GITHUB_TOKEN"); ok {
		merged.GitHubPAT = value
	}
	if value, ok := getenvTrim("AZDO_PAT"); ok {
		merged.AzDOPAT = value
	}

	for name, apply := range map[string]func(){
		"project":                 func() { merged.Project = flagOpts.Project },
		"citk":                    func() { merged.Citk = flagOpts.Citk },
		"distribution":            func() { merged.Distribution = flagOpts.Distribution },
		"version":                 func() { merged.Version = flagOpts.Version },
		"dry-run":                 func() { merged.DryRun = flagOpts.DryRun },
		"verbose":                 func() { merged.Verbose = flagOpts.Verbose },
		"distribution-format":     func() { merged.DistributionFormat = flagOpts.DistributionFormat },
		"ref-source":              func() { merged.RefSource = flagOpts.RefSource },
		"git-auth":                func() { merged.GitAuth = flagOpts.GitAuth },
		"temp-dir":                func() { merged.TempDir = flagOpts.TempDir },
		"github-user":             func() { merged.GitHubUser = flagOpts.GitHubUser },
		"github-pat":              func() { merged.GitHubPAT = flagOpts.GitHubPAT },
		"github-app-id":           func() { merged.GitHubAppID = flagOpts.GitHubAppID },
		"github-app-installation": func() { merged.GitHubAppInstallation = flagOpts.GitHubAppInstallation },
		"github-app-private-key":  func() { merged.GitHubAppPrivateKey = flagOpts.GitHubAppPrivateKey },
		"azdo-pat":                func() { merged.AzDOPAT = flagOpts.AzDOPAT },
	} {
		if flags.Changed(name) {
			apply()
		}
	}

	merged.Project = strings.TrimSpace(merged.Project)
	merged.Citk = strings.TrimSpace(merged.Citk)
	merged.Distribution = strings.TrimSpace(merged.Distribution)
	if merged.Citk == "" {
		return nil, fmt.Errorf("no citk path given and the home dir is unknown")
	}
	return merged, nil
}

// newRefSource creates the source of the project's tags and branches.
func newRefSource(ctx context.Context, o *options, log logrus.FieldLogger) (catalog.RefSource, error) {
	switch o.RefSource {
	case refSourceClone:
		auther, err := gitcmd.NewAuther(o.GitAuth, o.GitHubUser, o.GitHubPAT, o.AzDOPAT)
		if err != nil {
			return nil, err
		}
		return &gitcmd.CloneSource{
			Root:    o.TempDir,
			Project: o.Project,
			Auther:  auther,
			Log:     log,
		}, nil

	case refSourceGitHub:
		var client *github.Client
		var err error
		switch {
		case o.GitHubAppID != 0:
			client, err = githubutil.NewInstallationClient(ctx, o.GitHubAppID, o.GitHubAppInstallation, o.GitHubAppPrivateKey)
		case o.GitHubPAT != "":
			client, err = githubutil.NewClient(ctx, o.GitHubPAT)
		default:
			log.Debug("No GitHub credentials given, using the GitHub API anonymously.")
			client = github.NewClient(nil)
		}
		if err != nil {
			return nil, err
		}
		return &githubutil.RefSource{Client: client, Log: log}, nil

	case refSourceAzDO:
		return &azdo.RefSource{PAT: o.AzDOPAT, Log: log}, nil
	}
	return nil, fmt.Errorf("ref source %q is not one of %q, %q, %q", o.RefSource, refSourceClone, refSourceGitHub, refSourceAzDO)
}

func getenvTrim(name string) (string, bool) {
	value, ok := os.LookupEnv(name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}
