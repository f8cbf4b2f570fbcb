package version

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	wxs  string
	lib  string
	wpf  string
	upd  *Updater
	orig map[string]string
}

func newFixture(t *testing.T, wxs, lib, wpf string) *fixture {
	t.Helper()
	dir := t.TempDir()

	f := &fixture{
		wxs:  filepath.Join(dir, "Product.wxs"),
		lib:  filepath.Join(dir, "LibAssemblyInfo.cs"),
		wpf:  filepath.Join(dir, "WpfAssemblyInfo.cs"),
		orig: make(map[string]string),
	}
	for path, content := range map[string]string{f.wxs: wxs, f.lib: lib, f.wpf: wpf} {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
		f.orig[path] = content
	}

	f.upd = NewUpdater(ProductTarget(f.wxs), AssemblyTarget(f.lib), AssemblyTarget(f.wpf))
	return f
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestUpdaterBump(t *testing.T) {
	f := newFixture(t, productWxs, assemblyInfo, assemblyInfo)

	plan, err := f.upd.Bump()
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", plan.Previous.String())
	assert.Equal(t, "1.2.4", plan.Next.String())

	assert.Contains(t, read(t, f.wxs), `Version="1.2.4"`)
	assert.NotContains(t, read(t, f.wxs), `Version="1.2.3"`)
	for _, p := range []string{f.lib, f.wpf} {
		content := read(t, p)
		assert.Contains(t, content, `[assembly: AssemblyVersion("1.2.4")]`)
		assert.Contains(t, content, `[assembly: AssemblyFileVersion("1.0.0.0")]`)
	}
}

func TestUpdaterBumpTwice(t *testing.T) {
	f := newFixture(t, productWxs, assemblyInfo, assemblyInfo)

	_, err := f.upd.Bump()
	require.NoError(t, err)
	plan, err := f.upd.Bump()
	require.NoError(t, err)

	assert.Equal(t, "1.2.4", plan.Previous.String())
	assert.Equal(t, "1.2.5", plan.Next.String())
	assert.Contains(t, read(t, f.lib), `AssemblyVersion("1.2.5")`)
}

func TestUpdaterPreservesLineEndingsAndMode(t *testing.T) {
	crlf := "using System;\r\n[assembly: AssemblyVersion(\"1.2.3\")]\r\n// end\r\n"
	wxs := "<Wix>\r\n  <Product Version=\"1.2.3\">\r\n</Wix>"
	f := newFixture(t, wxs, crlf, crlf)

	_, err := f.upd.Bump()
	require.NoError(t, err)

	assert.Equal(t, "using System;\r\n[assembly: AssemblyVersion(\"1.2.4\")]\r\n// end\r\n", read(t, f.lib))
	assert.Equal(t, "<Wix>\r\n  <Product Version=\"1.2.4\">\r\n</Wix>", read(t, f.wxs))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(f.lib)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	}
}

func TestUpdaterVersionNotFound(t *testing.T) {
	f := newFixture(t, "<Wix>\n</Wix>\n", assemblyInfo, assemblyInfo)

	_, err := f.upd.Bump()
	require.ErrorIs(t, err, ErrVersionNotFound)

	for path, content := range f.orig {
		assert.Equal(t, content, read(t, path), "%s must be untouched", path)
	}
}

func TestUpdaterMismatch(t *testing.T) {
	stale := "[assembly: AssemblyVersion(\"1.2.2\")]\n"
	f := newFixture(t, productWxs, assemblyInfo, stale)

	_, err := f.upd.Plan()
	require.ErrorIs(t, err, ErrVersionMismatch)

	_, err = f.upd.Bump()
	require.ErrorIs(t, err, ErrVersionMismatch)
	for path, content := range f.orig {
		assert.Equal(t, content, read(t, path))
	}
}

func TestUpdaterMissingCompanion(t *testing.T) {
	f := newFixture(t, productWxs, assemblyInfo, assemblyInfo)
	require.NoError(t, os.Remove(f.wpf))

	_, err := f.upd.Bump()
	require.Error(t, err)
	assert.Equal(t, f.orig[f.lib], read(t, f.lib))
	assert.Equal(t, f.orig[f.wxs], read(t, f.wxs))
}

func TestUpdaterNoRollback(t *testing.T) {
	f := newFixture(t, productWxs, assemblyInfo, assemblyInfo)

	plan, err := f.upd.Plan()
	require.NoError(t, err)

	// The second companion disappears between planning and writing.
	require.NoError(t, os.Remove(f.wpf))

	err = f.upd.Apply(plan)
	require.Error(t, err)
	assert.Contains(t, read(t, f.lib), `AssemblyVersion("1.2.4")`, "earlier files stay rewritten")
	assert.Equal(t, f.orig[f.wxs], read(t, f.wxs), "canonical file is written last")
}

func TestUpdaterTargetsOrder(t *testing.T) {
	u := NewUpdater(ProductTarget("p.wxs"), AssemblyTarget("a.cs"), AssemblyTarget("b.cs"))

	var paths []string
	for _, tgt := range u.Targets() {
		paths = append(paths, tgt.Path)
	}
	assert.Equal(t, []string{"a.cs", "b.cs", "p.wxs"}, paths)
}

func TestUpdaterDeclarations(t *testing.T) {
	stale := "[assembly: AssemblyVersion(\"1.2.2\")]\n"
	f := newFixture(t, productWxs, assemblyInfo, stale)

	decls, err := f.upd.Declarations()
	require.NoError(t, err)
	assert.Equal(t, []Declaration{
		{Path: f.lib, Version: "1.2.3"},
		{Path: f.wpf, Version: "1.2.2"},
		{Path: f.wxs, Version: "1.2.3"},
	}, decls)

	require.NoError(t, os.WriteFile(f.lib, []byte("// no version\n"), 0o640))
	_, err = f.upd.Declarations()
	assert.ErrorIs(t, err, ErrVersionNotFound)
}
