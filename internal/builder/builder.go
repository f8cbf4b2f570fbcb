/*
Package builder runs the external build tool that produces the installer.
*/
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/tmpl"
)

// ExitError reports a build tool that ran and exited nonzero.
// The release exits with the same code.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// Invoker runs the build tool synchronously
type Invoker struct {
	tool string
	args []string
	dir  string
	env  []string

	stdout io.Writer
	stderr io.Writer
}

// New creates an invoker from the build configuration. Arguments and
// environment entries are expanded with the template context.
func New(cfg *config.Config, tmplCtx *tmpl.Context) (*Invoker, error) {
	build := cfg.Build

	project, err := tmplCtx.Apply(build.Project)
	if err != nil {
		return nil, fmt.Errorf("failed to expand project %s: %w", build.Project, err)
	}

	args, err := tmplCtx.ApplyAll(build.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to expand build args: %w", err)
	}
	if project != "" {
		args = append([]string{project}, args...)
	}

	env := append([]string{}, cfg.Env...)
	expandedEnv, err := tmplCtx.ApplyAll(build.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to expand build env: %w", err)
	}
	env = append(env, expandedEnv...)

	dir := cfg.Dir
	if build.Dir != "" {
		dir = cfg.Path(build.Dir)
	}

	return &Invoker{
		tool:   build.Tool,
		args:   args,
		dir:    dir,
		env:    env,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}, nil
}

// Command returns the tool and its arguments
func (i *Invoker) Command() (string, []string) {
	return i.tool, i.args
}

// Run runs the build tool and waits for it to exit.
// A nonzero exit is returned as *ExitError.
func (i *Invoker) Run(ctx context.Context) error {
	log.Info("Building installer", "tool", i.tool, "args", i.args)
	log.Debug("Build directory", "dir", i.dir)

	cmd := exec.CommandContext(ctx, i.tool, i.args...)
	cmd.Dir = i.dir
	cmd.Env = append(os.Environ(), i.env...)
	cmd.Stdout = i.stdout
	cmd.Stderr = i.stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			return &ExitError{Tool: i.tool, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("failed to run %s: %w", i.tool, err)
	}

	log.Info("Build succeeded")
	return nil
}
