package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodstar/bcrelease/internal/builder"
	"github.com/bloodstar/bcrelease/internal/version"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "build failure", err: &builder.ExitError{Tool: "MSBuild.exe", Code: 1}, want: 1},
		{name: "wrapped build failure", err: fmt.Errorf("release failed: %w", &builder.ExitError{Tool: "MSBuild.exe", Code: 3}), want: 3},
		{name: "zero code", err: &builder.ExitError{Tool: "MSBuild.exe", Code: 0}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

// run executes the root command with fresh flag state
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgFile, verbose, debug, quiet, workDir, dryRun, progress = "", false, false, true, "", false, false
	skipBuild, skipUpload = false, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"Installer/Product.wxs":                            "<Wix>\n  <Product Id=\"*\" Version=\"2.0.7\">\n</Wix>\n",
		"BloodstarClockticaLib/Properties/AssemblyInfo.cs": "[assembly: AssemblyVersion(\"2.0.7\")]\n",
		"BloodstarClockticaWpf/Properties/AssemblyInfo.cs": "[assembly: AssemblyVersion(\"2.0.7\")]\n",
		"ftpinfo.json":                                     `{"host":"releases.example.com","port":2222,"user":"deploy","passwd":"secret"}`,
	}
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestCheck(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, "check", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Installer/Product.wxs")
	assert.Contains(t, out, "BloodstarClockticaWpf/Properties/AssemblyInfo.cs")
	assert.Contains(t, out, "Current version 2.0.7, next version 2.0.8")
	assert.Contains(t, out, "deploy@releases.example.com:2222")
	assert.NotContains(t, out, "secret")

	require.NoError(t, os.Remove(filepath.Join(dir, "ftpinfo.json")))
	_, err = run(t, "check", "-C", dir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCheckMismatch(t *testing.T) {
	dir := writeProject(t)
	wpf := filepath.Join(dir, "BloodstarClockticaWpf", "Properties", "AssemblyInfo.cs")
	require.NoError(t, os.WriteFile(wpf, []byte("[assembly: AssemblyVersion(\"2.0.6\")]\n"), 0o644))

	out, err := run(t, "check", "-C", dir)
	assert.ErrorIs(t, err, version.ErrVersionMismatch)
	assert.Contains(t, out, "2.0.6")
}

func TestBumpCommand(t *testing.T) {
	dir := writeProject(t)

	_, err := run(t, "bump", "-C", dir, "--dry-run")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(dir, "Installer", "Product.wxs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `Version="2.0.7"`)

	_, err = run(t, "bump", "-C", dir)
	require.NoError(t, err)
	data, err = os.ReadFile(filepath.Join(dir, "Installer", "Product.wxs"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `Version="2.0.8"`)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "init", "-C", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Created")
	assert.FileExists(t, filepath.Join(dir, ".bcrelease.yaml"))

	_, err = run(t, "init", "-C", dir)
	assert.ErrorContains(t, err, "already exists")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "bcrelease 1.0.0")
}
