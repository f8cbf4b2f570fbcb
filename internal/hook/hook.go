// Package hook provides lifecycle hook execution.
package hook

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/tmpl"
)

// Runner executes lifecycle hooks.
type Runner struct {
	tmplCtx *tmpl.Context
	workDir string
	env     []string

	stdout io.Writer
	stderr io.Writer
}

// NewRunner creates a new hook runner.
func NewRunner(tmplCtx *tmpl.Context, workDir string, env []string) *Runner {
	return &Runner{
		tmplCtx: tmplCtx,
		workDir: workDir,
		env:     env,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// RunPhase runs the plain commands of a phase, then its hooks.
// Plain commands always fail fast.
func (r *Runner) RunPhase(ctx context.Context, hooks config.Hooks, phase string) error {
	all := append(FromStrings(hooks.Commands), hooks.Hooks...)
	if len(all) == 0 {
		return nil
	}

	log.Debug("Running hooks", "phase", phase, "count", len(all))
	for _, h := range all {
		if err := r.Run(ctx, h); err != nil {
			return fmt.Errorf("%s hook %q failed: %w", phase, h.Cmd, err)
		}
	}
	return nil
}

// Run executes a hook.
func (r *Runner) Run(ctx context.Context, hook config.Hook) error {
	// Check condition
	if hook.If != "" {
		condition, err := r.tmplCtx.Apply(hook.If)
		if err != nil {
			return fmt.Errorf("failed to evaluate condition: %w", err)
		}
		condition = strings.TrimSpace(condition)
		if condition != "true" && condition != "1" {
			log.Debug("Skipping hook due to condition", "condition", hook.If)
			return nil
		}
	}

	cmd := hook.Cmd
	if cmd == "" {
		return nil
	}

	cmd, err := r.tmplCtx.Apply(cmd)
	if err != nil {
		return fmt.Errorf("failed to apply template to command: %w", err)
	}

	log.Info("Running hook", "cmd", cmd)

	var c *exec.Cmd
	if hook.Shell {
		shell, flag := shellCommand()
		c = exec.CommandContext(ctx, shell, flag, cmd)
	} else {
		parts := strings.Fields(cmd)
		if len(parts) == 0 {
			return nil
		}
		c = exec.CommandContext(ctx, parts[0], parts[1:]...)
	}

	c.Dir = r.workDir
	if hook.Dir != "" {
		c.Dir = hook.Dir
	}

	c.Env = append(os.Environ(), r.env...)
	for key, value := range hook.Env {
		expandedValue, err := r.tmplCtx.Apply(value)
		if err != nil {
			return fmt.Errorf("failed to expand env %s: %w", key, err)
		}
		c.Env = append(c.Env, fmt.Sprintf("%s=%s", key, expandedValue))
	}

	if hook.Output == "true" || hook.Output == "1" {
		c.Stdout = r.stdout
		c.Stderr = r.stderr
	}

	if err := c.Run(); err != nil {
		if hook.FailFast {
			return err
		}
		log.Warn("Hook failed but continuing", "cmd", cmd, "error", err)
	}

	return nil
}

// shellCommand returns the shell and its command flag for this platform
func shellCommand() (string, string) {
	shell := os.Getenv("SHELL")
	if runtime.GOOS == "windows" {
		if shell == "" {
			shell = "powershell.exe"
		}
		return shell, "-Command"
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, "-c"
}

// FromStrings converts a slice of command strings to hooks.
func FromStrings(commands []string) []config.Hook {
	hooks := make([]config.Hook, 0, len(commands))
	for _, cmd := range commands {
		hooks = append(hooks, config.Hook{
			Cmd:      cmd,
			FailFast: true,
			Output:   "true",
			Shell:    true,
		})
	}
	return hooks
}
