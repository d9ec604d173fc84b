package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"musicetl/internal/api"
	"musicetl/internal/catalog"
	"musicetl/internal/config"
	"musicetl/internal/datasource/file"
	"musicetl/internal/jobs"
	"musicetl/internal/pipeline"
	"musicetl/internal/retention"
)

func newIngestCommand(c *cli) *cobra.Command {
	var src, in, out string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Normalize one source file into the canonical schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := catalog.ParseSource(src)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(c.app.InterimDir(), defaultInterim(s))
			}
			defer c.startMetrics()()
			st, err := c.runner().RunSingle(cmd.Context(), "", s, in, out)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&src, "source", "", "source identity: D1, D2 or D3")
	cmd.Flags().StringVar(&in, "in", "", "input file")
	cmd.Flags().StringVar(&out, "out", "", "output CSV (default: <data_dir>/interim/<source>_clean.csv)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func defaultInterim(s catalog.Source) string {
	switch s {
	case catalog.D1:
		return pipeline.D1Clean
	case catalog.D2:
		return pipeline.D2Clean
	default:
		return pipeline.D3Clean
	}
}

func newMergeCommand(c *cli) *cobra.Command {
	var songs []string
	var artists, out string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Concatenate cleaned song tables and enrich them with artists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := pipeline.DefaultMergeInput(c.app.InterimDir(), c.app.ProcessedDir())
			if len(songs) > 0 {
				in.Songs = songs
			}
			if artists != "" {
				in.Artists = artists
			}
			if out != "" {
				in.Out = out
			}
			defer c.startMetrics()()
			st, err := c.runner().RunMerge(cmd.Context(), in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringSliceVar(&songs, "songs", nil, "cleaned song CSVs (default: interim d1 and d2)")
	cmd.Flags().StringVar(&artists, "artists", "", "cleaned artist CSV (default: interim d3)")
	cmd.Flags().StringVar(&out, "out", "", "output CSV (default: processed/tracks_clean.csv)")
	return cmd
}

func newBulkCommand(c *cli) *cobra.Command {
	var outDir, src, list, id string
	cmd := &cobra.Command{
		Use:   "bulk [files...]",
		Short: "Clean many files and concatenate them into one deduplicated CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if list != "" {
				more, err := file.ReadList(list)
				if err != nil {
					return fmt.Errorf("read list: %w", err)
				}
				paths = append(paths, more...)
			}
			if len(paths) == 0 {
				return fmt.Errorf("at least one file is required")
			}
			if outDir == "" {
				outDir = c.app.ProcessedDir()
			}
			if id == "" {
				id = uuid.NewString()
			}
			defer c.startMetrics()()
			st, err := c.runner().RunBulk(cmd.Context(), id, paths, src, outDir)
			if perr := printJSON(cmd.OutOrStdout(), st); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", "", "output directory (default: <data_dir>/processed)")
	cmd.Flags().StringVar(&src, "source", "", "normalize every file as this source instead of generic cleaning")
	cmd.Flags().StringVar(&list, "list", "", "file with one input path per line")
	cmd.Flags().StringVar(&id, "id", "", "run id used in the output name (default: random)")
	return cmd
}

func newLocalCommand(c *cli) *cobra.Command {
	var dataDir string
	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run D1, D2 and D3 from <data-dir>/raw and merge them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dataDir == "" {
				dataDir = c.app.DataDir
			}
			defer c.startMetrics()()
			st, err := c.runner().Local(cmd.Context(), dataDir)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "data directory (default: data_dir from config)")
	return cmd
}

func newServeCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context())
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	defer c.startMetrics()()

	tracker, err := jobs.Open(ctx, c.app)
	if err != nil {
		return err
	}
	defer tracker.Close()

	runner := c.runner()
	runner.Tracker = tracker

	sweeper := retention.New(c.app, tracker, logger)
	if c.app.Retention.MaxAge > 0 && c.app.Retention.Schedule != "" {
		if err := sweeper.Start(ctx, c.app.Retention.Schedule); err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	return api.NewServer(c.app, runner, logger).ListenAndServe(ctx)
}

func newConfigCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the resolved values",
		RunE: func(cmd *cobra.Command, _ []string) error {
			issues := config.Validate(c.app)
			if config.HasErrors(issues) {
				log.Printf("Configuration is invalid: %v", c.cfgPath)
				return fmt.Errorf("%d configuration issue(s)", len(issues))
			}
			log.Printf("Configuration is valid: %v", c.cfgPath)
			return printJSON(cmd.OutOrStdout(), c.app)
		},
	})
	return cmd
}
