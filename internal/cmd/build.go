package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Increment the patch version",
	Long: `Increment the patch version in the installer definition and every
assembly metadata file. Nothing is built or uploaded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := newPipeline(ctx, releaseOptions())
		if err != nil {
			return err
		}

		if err := p.Bump(ctx); err != nil {
			return fmt.Errorf("bump failed: %w", err)
		}
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the installer",
	Long: `Build the installer at its current version without bumping it.

The build tool's exit code becomes the exit code of this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := newPipeline(ctx, releaseOptions())
		if err != nil {
			return err
		}

		if err := p.Build(ctx); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}
		return nil
	},
}

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload the installer",
	Long: `Upload the built installer to the server named in the credential file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, err := newPipeline(ctx, releaseOptions())
		if err != nil {
			return err
		}

		if err := p.Upload(ctx); err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}
		return nil
	},
}

func init() {
	bumpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the new version without writing files")
	buildCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the build command without running it")
	uploadCmd.Flags().BoolVar(&dryRun, "dry-run", false, "show the upload without connecting")
	uploadCmd.Flags().BoolVar(&progress, "progress", false, "show an upload progress bar")
}
