package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/bloodstar/bcrelease"
	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/version"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and project files",
	Long: `Check that a release could run.

This validates:
  - YAML syntax and required fields
  - Template syntax
  - Version declarations in every version file
  - The credential file, unless uploads are skipped`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd.Context(), releaseOptions())
		if err != nil {
			return err
		}

		decls, err := p.Declarations()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		cfg := p.Config()
		drawVersionTable(out, cfg.Dir, decls)

		plan, err := p.Plan()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Current version %s, next version %s\n", plan.Previous, plan.Next)

		if !cfg.Upload.Skip {
			creds, err := config.LoadCredentials(cfg.Path(cfg.Upload.Credentials))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Upload target %s\n", creds)
		}

		return nil
	},
}

func drawVersionTable(out io.Writer, root string, decls []version.Declaration) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"File", "Version"})

	for _, d := range decls {
		path := d.Path
		if rel, err := filepath.Rel(root, d.Path); err == nil {
			path = rel
		}
		t.AppendRow(table.Row{filepath.ToSlash(path), d.Version})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Long: `Initialize a new .bcrelease.yaml configuration file.

The generated file spells out the built-in defaults so they can be
customized.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := ".bcrelease.yaml"
		if cfgFile != "" {
			configPath = cfgFile
		}
		if workDir != "" && !filepath.IsAbs(configPath) {
			configPath = filepath.Join(workDir, configPath)
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", configPath)
		}

		if err := os.WriteFile(configPath, []byte(config.DefaultTemplate()), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", configPath)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build date of bcrelease.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "bcrelease %s\n", bcrelease.Version)
		if bcrelease.GitCommit != "" {
			fmt.Fprintf(out, "  Commit: %s\n", bcrelease.GitCommit)
		}
		if bcrelease.BuildDate != "" {
			fmt.Fprintf(out, "  Built:  %s\n", bcrelease.BuildDate)
		}
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [shell]",
	Short: "Generate shell completions",
	Long: `Generate a shell completion script.

Bash:
  source <(bcrelease completion bash)

PowerShell:
  bcrelease completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(out)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}
