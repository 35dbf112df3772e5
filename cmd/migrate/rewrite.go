package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/simple-content-migrate/pkg/migrate"
)

// NewRewriteCommand creates the rewrite command
func NewRewriteCommand() *cobra.Command {
	var langcode string

	cmd := &cobra.Command{
		Use:   "rewrite [file]",
		Short: "Replace inline images in an HTML fragment with media embeds",
		Long: `Reads an HTML fragment from a file or stdin, materializes every local
image it references and writes the rewritten fragment to stdout. Row
messages are written to stderr.`,
		Args: cobra.MaximumNArgs(1),
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

			in := cmd.InOrStdin()
			if len(args) == 1 {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}
			text, err := io.ReadAll(in)
			if err != nil {
				return err
			}

			row := migrate.NewRow(0, nil)
			row.SetDestination("langcode", langcode)

			out, _ := pipeline.Rewriter.Rewrite(cmd.Context(), row, string(text))
			fmt.Fprint(cmd.OutOrStdout(), out)
			for _, msg := range row.Messages {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", msg.Level, msg.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&langcode, "langcode", "en", "language of the created media")
	return cmd
}
