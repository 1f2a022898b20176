package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"basic-cleaning/artifact"
	"basic-cleaning/config"
	"basic-cleaning/metrics"
	"basic-cleaning/models"
	"basic-cleaning/services"
	"basic-cleaning/storage"
	"basic-cleaning/tracking"
	"basic-cleaning/utils"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitConfig     = 2
	exitResolution = 3
	exitParse      = 4
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := utils.NewLoggerTo(stdout, stderr, utils.LevelInfo)

	// started flips once a command body runs; errors before that are flag errors.
	started := false
	root := newRootCommand(logger, &started)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		logger.Error("%v", err)
		if !started {
			return exitConfig
		}
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var (
		cfgErr   *models.ConfigError
		resErr   *models.ResolutionError
		parseErr *models.ParseError
	)
	switch {
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &resErr):
		return exitResolution
	case errors.As(err, &parseErr):
		return exitParse
	}
	return exitFailure
}

func newRootCommand(logger *utils.Logger, started *bool) *cobra.Command {
	var a services.Args

	root := &cobra.Command{
		Use:   "basic-cleaning",
		Short: "Clean an Airbnb listings artifact and publish the result as a new artifact",
		Example: `  basic-cleaning --min_price 10 --max_price 350 \
    --input_artifact sample.csv:latest --output_artifact clean_sample.csv \
    --output_type clean_sample --output_description "Data with outliers and null values removed"`,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			*started = true
			cmd.SilenceUsage = true
			return runCleaning(cmd.Context(), logger, a)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &models.ConfigError{Key: "flags", Err: err}
	})

	f := root.Flags()
	f.IntVar(&a.MinPrice, "min_price", 0, "Minimum price of the Airbnb listings to analyze")
	f.IntVar(&a.MaxPrice, "max_price", 0, "Maximum price of the Airbnb listings to analyze")
	f.StringVar(&a.InputArtifact, "input_artifact", "", "Name of the input artifact (name[:latest|vN])")
	f.StringVar(&a.OutputArtifact, "output_artifact", "", "Name of the output artifact, also the local output file")
	f.StringVar(&a.OutputType, "output_type", "", "Type of the output artifact")
	f.StringVar(&a.OutputDescription, "output_description", "", "Description of the output artifact")
	markRequired(root, "min_price", "max_price", "input_artifact", "output_artifact", "output_type", "output_description")

	root.AddCommand(newPublishCommand(logger, started), newRunsCommand(logger, started))
	return root
}

func newPublishCommand(logger *utils.Logger, started *bool) *cobra.Command {
	var spec artifact.Spec

	cmd := &cobra.Command{
		Use:     "publish",
		Short:   "Upload a local file as a new artifact version",
		Example: `  basic-cleaning publish --file sample.csv --name sample.csv --type raw_data --description "Raw listings"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*started = true
			cmd.SilenceUsage = true
			return runPublish(cmd.Context(), logger, spec)
		},
	}

	f := cmd.Flags()
	f.StringVar(&spec.Path, "file", "", "Local file to upload")
	f.StringVar(&spec.Name, "name", "", "Artifact name")
	f.StringVar(&spec.Type, "type", "", "Artifact type")
	f.StringVar(&spec.Description, "description", "", "Artifact description")
	markRequired(cmd, "file", "name", "type")
	return cmd
}

func newRunsCommand(logger *utils.Logger, started *bool) *cobra.Command {
	var jobType string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs and the artifact versions they consumed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			*started = true
			cmd.SilenceUsage = true
			return runHistory(cmd.Context(), logger, cmd.OutOrStdout(), jobType)
		},
	}
	cmd.Flags().StringVar(&jobType, "job", "", "Only list runs of this job type (e.g. "+services.JobType+")")
	return cmd
}

func markRequired(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("flag %q: %v", name, err))
		}
	}
}

func runCleaning(ctx context.Context, logger *utils.Logger, a services.Args) error {
	env, err := openEnvironment(ctx, logger)
	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		return &models.ResolutionError{Identifier: a.InputArtifact, Err: err}
	}
	defer env.Close()

	logger.Info("=== Basic cleaning starting ===")
	logger.Info("Config: price [%d, %d] | input: %s | output: %s (%s)",
		a.MinPrice, a.MaxPrice, a.InputArtifact, a.OutputArtifact, a.OutputType)

	pipeline := services.NewBasicCleaning(
		env.tracker,
		services.NewCleaner(logger),
		services.NewReportService(logger),
		metrics.NewRecorder(services.JobType, env.cfg.PushgatewayURL),
		logger,
	)
	v, err := pipeline.Run(ctx, a)
	if err != nil {
		return err
	}

	logger.Info("Done. %s → %s (%d bytes)", a.InputArtifact, v.Tag(), v.Size)
	return nil
}

func runPublish(ctx context.Context, logger *utils.Logger, spec artifact.Spec) error {
	env, err := openEnvironment(ctx, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	v, err := services.NewUploader(env.tracker, logger).Upload(ctx, spec)
	if err != nil {
		return err
	}
	logger.Info("Published %s (%d bytes)", v.Tag(), v.Size)
	return nil
}

func runHistory(ctx context.Context, logger *utils.Logger, out io.Writer, jobType string) error {
	env, err := openEnvironment(ctx, logger)
	if err != nil {
		return err
	}
	defer env.Close()

	return services.NewRunHistory(env.registry, out).Print(ctx, jobType)
}

// environment holds the backends shared by every command.
type environment struct {
	cfg      *config.Config
	registry storage.Registry
	tracker  *tracking.Tracker
}

func openEnvironment(ctx context.Context, logger *utils.Logger) (*environment, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger.SetLevel(cfg.LogLevel)

	var registry storage.Registry
	switch cfg.RegistryBackend {
	case config.RegistryPostgres:
		logger.Info("[registry] Connecting to PostgreSQL at %s:%s", cfg.PostgresHost, cfg.PostgresPort)
		registry, err = storage.NewPostgresRegistry(ctx, cfg.DSN(), &utils.RetryConfig{
			MaxAttempts: cfg.RegistryConnectAttempts,
			BaseDelay:   time.Second,
			Logger:      logger,
		})
	default:
		logger.Debug("[registry] Using file registry in %s", cfg.ArtifactRoot)
		registry, err = storage.NewFileRegistry(cfg.ArtifactRoot)
	}
	if err != nil {
		return nil, err
	}

	var blobs storage.BlobStore
	switch cfg.BlobBackend {
	case config.BlobMinio:
		logger.Info("[artifact] Using bucket %s at %s", cfg.MinioBucket, cfg.MinioEndpoint)
		blobs, err = storage.NewMinioBlobStore(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		blobs, err = storage.NewFSBlobStore(filepath.Join(cfg.ArtifactRoot, "blobs"))
	}
	if err != nil {
		_ = registry.Close()
		return nil, err
	}

	store := artifact.NewStore(registry, blobs, cfg.CacheDir, logger)
	return &environment{
		cfg:      cfg,
		registry: registry,
		tracker:  tracking.NewTracker(cfg.Project, registry, store),
	}, nil
}

func (e *environment) Close() error {
	return e.registry.Close()
}
