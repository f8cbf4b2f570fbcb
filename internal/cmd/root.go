/*
Package cmd provides the CLI commands for bcrelease.
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/bloodstar/bcrelease/internal/pipeline"
)

var (
	cfgFile  string
	verbose  bool
	debug    bool
	quiet    bool
	workDir  string
	dryRun   bool
	progress bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bcrelease",
	Short: "Release automation for the Bloodstar Clocktica installer",
	Long: `bcrelease bumps the installer version, builds the MSI and uploads
it to the distribution server.

Example:
  bcrelease release              # Bump, build and upload
  bcrelease release --dry-run    # Show what would happen
  bcrelease bump                 # Only bump the patch version
  bcrelease upload               # Upload the current installer`,
	SilenceUsage: true,
}

// ExecuteContext runs the root command. Commands observe ctx for cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .bcrelease.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print warnings and errors")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "project directory (default is the config's dir)")

	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(bumpCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	switch {
	case debug:
		log.SetLevel(log.DebugLevel)
	case quiet:
		log.SetLevel(log.WarnLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	if verbose || debug {
		log.SetReportTimestamp(true)
	}

	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Config file not found: %s\n", cfgFile)
			os.Exit(1)
		}
	}
}

func releaseOptions() pipeline.ReleaseOptions {
	return pipeline.ReleaseOptions{
		ConfigFile: cfgFile,
		Dir:        workDir,
		DryRun:     dryRun,
		Progress:   progress,
	}
}

// newPipeline builds a pipeline from the global flags
func newPipeline(ctx context.Context, opts pipeline.ReleaseOptions) (*pipeline.Pipeline, error) {
	p, err := pipeline.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	return p, nil
}
