package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-content-migrate/pkg/migrate/intake"
	"github.com/tendant/simple-content-migrate/pkg/migrate/runner"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var sourcePath string
	var showRows bool

	cmd := &cobra.Command{
		Use:   "run <migration-id>",
		Short: "Run a migration against its uploaded source",
		Long: `Run a migration. The source is the CSV last uploaded for the migration,
or a local file given with --source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pipeline, err := cfg.BuildPipeline(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer pipeline.Close()

			var result *runner.Result
			if sourcePath != "" {
				m, ok := pipeline.Runner.Migration(args[0])
				if !ok {
					return fmt.Errorf("%w: %s", runner.ErrUnknownMigration, args[0])
				}
				file, err := os.Open(sourcePath)
				if err != nil {
					return err
				}
				defer file.Close()
				result, err = pipeline.Runner.Run(cmd.Context(), m, file)
				if err != nil {
					return err
				}
				result.Source = sourcePath
			} else {
				result, err = pipeline.Runner.RunMigration(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			}

			if !showRows {
				result.Rows = nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&sourcePath, "source", "", "local CSV file to read instead of the uploaded source")
	cmd.Flags().BoolVar(&showRows, "rows", false, "include processed rows in the output")
	return cmd
}

// NewUploadCommand creates the upload command
func NewUploadCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <migration> <file.csv>",
		Short: "Store a CSV file as the source of a migration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pipeline, err := cfg.BuildPipeline(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer pipeline.Close()

			file, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			result, err := pipeline.Intake.Upload(cmd.Context(), intake.UploadRequest{
				MigrationID: args[0],
				FileName:    args[1],
				Reader:      file,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered migrations and their sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pipeline, err := cfg.BuildPipeline(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to build pipeline: %w", err)
			}
			defer pipeline.Close()

			out := cmd.OutOrStdout()
			for _, id := range pipeline.Runner.Migrations() {
				m, _ := pipeline.Runner.Migration(id)
				source := "-"
				if src, err := pipeline.Store.GetMigrationSource(cmd.Context(), id); err == nil {
					source = src.Path
					if meta, err := pipeline.Intake.Stat(cmd.Context(), src.Path); err == nil {
						source = fmt.Sprintf("%s (%d bytes)", src.Path, meta.Size)
					}
				}
				fmt.Fprintf(out, "%-20s %-40s %s\n", id, m.Label, source)
			}
			if len(pipeline.Runner.Migrations()) == 0 {
				fmt.Fprintln(out, "no migrations registered")
			}
			return nil
		},
	}
}
