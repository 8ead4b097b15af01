package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/helixml/chlog/infrastructure/git"
	"github.com/helixml/chlog/internal/log"
)

func infoCmd() *cobra.Command {
	var (
		envFile  string
		repoPath string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show repository details relevant to changelog generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			logger := log.Configure(cfg).Slog()

			source, err := git.Open(repoPath, logger)
			if err != nil {
				return err
			}

			branch, err := source.CurrentBranch()
			if err != nil {
				return err
			}
			head, err := source.HeadSHA()
			if err != nil {
				return err
			}

			fmt.Printf("branch:      %s\n", branch)
			fmt.Printf("head:        %s\n", shortSHA(head))

			if tag, err := source.LatestTag(); err == nil {
				fmt.Printf("latest tag:  %s\n", tag.Name)
			} else if errors.Is(err, git.ErrNoTags) {
				fmt.Printf("latest tag:  (none)\n")
			} else {
				return err
			}

			if remote, err := source.RemoteURL(); err == nil {
				fmt.Printf("remote:      %s\n", remote)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVarP(&repoPath, "repo", "r", ".", "Path of the git repository")

	return cmd
}
