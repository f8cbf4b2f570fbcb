package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	skipBuild  bool
	skipUpload bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Bump, build and upload a release",
	Long: `Create a release by running the entire pipeline.

The stages run in order and the first failure stops the run:
  - Bump the patch version in the installer and assembly files
  - Build the installer with MSBuild
  - Upload the MSI over SFTP

A failed build exits with the build tool's exit code. Version files are
not rolled back when a later stage fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts := releaseOptions()
		opts.SkipBuild = skipBuild
		opts.SkipUpload = skipUpload

		p, err := newPipeline(ctx, opts)
		if err != nil {
			return err
		}

		if err := p.Run(ctx); err != nil {
			return fmt.Errorf("release failed: %w", err)
		}

		return nil
	},
}

func init() {
	releaseCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be done without changing anything")
	releaseCmd.Flags().BoolVar(&skipBuild, "skip-build", false, "skip the build stage")
	releaseCmd.Flags().BoolVar(&skipUpload, "skip-upload", false, "skip the upload stage")
	releaseCmd.Flags().BoolVar(&progress, "progress", false, "show an upload progress bar")
}
