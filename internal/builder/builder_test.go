package builder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodstar/bcrelease/internal/config"
	"github.com/bloodstar/bcrelease/internal/tmpl"
	"github.com/bloodstar/bcrelease/internal/version"
)

// TestHelperProcess is not a real test. It stands in for the build tool when
// the test binary re-executes itself with BCRELEASE_HELPER_PROCESS set.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("BCRELEASE_HELPER_PROCESS") != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	if len(args) > 0 {
		args = args[1:]
	}
	fmt.Fprintln(os.Stdout, strings.Join(args, " "))

	code, _ := strconv.Atoi(os.Getenv("BCRELEASE_HELPER_EXIT"))
	os.Exit(code)
}

func helperInvoker(t *testing.T, exitCode int) (*Invoker, *bytes.Buffer) {
	t.Helper()
	t.Setenv("BCRELEASE_HELPER_PROCESS", "1")
	t.Setenv("BCRELEASE_HELPER_EXIT", strconv.Itoa(exitCode))

	var out bytes.Buffer
	return &Invoker{
		tool:   os.Args[0],
		args:   []string{"-test.run=TestHelperProcess", "--", "Installer/Installer.wixproj", "/p:Configuration=Release"},
		dir:    t.TempDir(),
		stdout: &out,
		stderr: &out,
	}, &out
}

func TestRunSuccess(t *testing.T) {
	inv, out := helperInvoker(t, 0)

	require.NoError(t, inv.Run(context.Background()))
	assert.Contains(t, out.String(), "Installer/Installer.wixproj /p:Configuration=Release")
}

func TestRunPropagatesExitCode(t *testing.T) {
	for _, code := range []int{1, 3} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			inv, _ := helperInvoker(t, code)

			err := inv.Run(context.Background())

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, code, exitErr.Code)
		})
	}
}

func TestRunMissingTool(t *testing.T) {
	inv := &Invoker{tool: "bcrelease-no-such-build-tool", stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}

	err := inv.Run(context.Background())
	require.Error(t, err)

	var exitErr *ExitError
	assert.NotErrorAs(t, err, &exitErr)
}

func TestNewExpandsArguments(t *testing.T) {
	cfg := config.Default()
	cfg.Build.Tool = "msbuild"
	cfg.Build.Args = []string{"/p:Configuration=Release", "/p:ProductVersion={{ .Version }}"}
	cfg.Build.Env = []string{"RELEASE_VERSION={{ .Version }}"}

	ctx := tmpl.New(cfg)
	ctx.SetVersion(version.Plan{Previous: version.Version{Major: 1}, Next: version.Version{Major: 1, Patch: 1}})

	inv, err := New(cfg, ctx)
	require.NoError(t, err)

	tool, args := inv.Command()
	assert.Equal(t, "msbuild", tool)
	assert.Equal(t, []string{"Installer/Installer.wixproj", "/p:Configuration=Release", "/p:ProductVersion=1.0.1"}, args)
	assert.Contains(t, inv.env, "RELEASE_VERSION=1.0.1")
}

func TestExitErrorMessage(t *testing.T) {
	err := &ExitError{Tool: "MSBuild.exe", Code: 1}
	assert.Equal(t, "MSBuild.exe exited with status 1", err.Error())
}
