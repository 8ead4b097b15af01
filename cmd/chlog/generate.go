package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	appservice "github.com/helixml/chlog/application/service"
	domainservice "github.com/helixml/chlog/domain/service"
	"github.com/helixml/chlog/infrastructure/git"
	"github.com/helixml/chlog/internal/log"
)

type generateOptions struct {
	envFile      string
	repoPath     string
	fromRef      string
	toRef        string
	auto         bool
	templateFile string
	output       string
}

func generateCmd() *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a changelog for a commit range",
		Long: `Generate a changelog for a range of git commits.

The range runs from --from (exclusive) to --to (inclusive). With --auto the
lower bound is the repository's highest semantic version tag. Omitting both
--from and --auto covers the whole history.

Environment variables (CHLOG_ prefix):
  CHLOG_LOG_LEVEL                  Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  CHLOG_LOG_FORMAT                 Log format: pretty, json (default: pretty)
  CHLOG_PROMPTS_PATH               External prompts YAML file
  CHLOG_HTTP_CACHE_DIR             Cache model responses on disk
  CHLOG_MAX_FAILURE_RATE           Tolerated fraction of failed commits (default: 0)

  CHLOG_ENDPOINT_*                 Model endpoint configuration
    BASE_URL                       Base URL (e.g. https://api.openai.com/v1)
    MODEL                          Model identifier (default: gpt-4.1)
    API_KEY                        API key (falls back to OPENAI_API_KEY)
    NUM_PARALLEL_TASKS             Concurrent model calls (default: 10)
    TIMEOUT                        Request timeout in seconds (default: 60)
    MAX_RETRIES                    Retry attempts (default: 5)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVarP(&opts.repoPath, "repo", "r", ".", "Path of the git repository")
	cmd.Flags().StringVarP(&opts.fromRef, "from", "f", "", "Exclusive lower bound of the range (tag, branch or hash)")
	cmd.Flags().StringVarP(&opts.toRef, "to", "t", "", "Inclusive upper bound of the range (default: HEAD)")
	cmd.Flags().BoolVarP(&opts.auto, "auto", "a", false, "Start from the highest semantic version tag")
	cmd.Flags().StringVar(&opts.templateFile, "template", "", "Markdown template file guiding the changelog layout")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the changelog to a file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("from", "auto")

	return cmd
}

func runGenerate(ctx context.Context, opts generateOptions) error {
	cfg, err := loadConfig(opts.envFile)
	if err != nil {
		return err
	}
	logger := log.Configure(cfg).Slog()

	fromRef := opts.fromRef
	if opts.auto {
		source, err := git.Open(opts.repoPath, logger)
		if err != nil {
			return err
		}
		tag, err := source.LatestTag()
		if err != nil {
			return fmt.Errorf("detect latest version tag: %w", err)
		}
		logger.Info("starting from latest version tag", slog.String("tag", tag.Name))
		fromRef = tag.Name
	}

	var template string
	if opts.templateFile != "" {
		data, err := os.ReadFile(opts.templateFile)
		if err != nil {
			return fmt.Errorf("read template: %w", err)
		}
		template = string(data)
	}

	generator, err := buildGenerator(cfg, logger)
	if err != nil {
		return err
	}

	enrichOpts := []domainservice.EnrichOption{
		domainservice.WithMaxFailureRate(cfg.MaxFailureRate()),
		domainservice.WithEnrichProgress(func(completed, total int) {
			logger.Info("enriching", slog.Int("completed", completed), slog.Int("total", total))
		}),
		domainservice.WithCommitFailure(func(hash string, err error) {
			logger.Warn("commit enrichment failed",
				slog.String("hash", hash),
				slog.Any("error", err))
		}),
	}

	cl, err := generator.Generate(ctx, appservice.GenerateRequest{
		RepoPath:   opts.repoPath,
		FromRef:    fromRef,
		ToRef:      opts.toRef,
		Template:   template,
		EnrichOpts: enrichOpts,
	})
	if err != nil {
		return err
	}

	markdown := cl.Markdown()
	if opts.output != "" {
		if err := os.WriteFile(opts.output, []byte(markdown), 0o644); err != nil {
			return fmt.Errorf("write changelog: %w", err)
		}
		logger.Info("changelog written", slog.String("path", opts.output))
		return nil
	}

	fmt.Println(markdown)
	return nil
}
