package project

import (
	"os"
	"path/filepath"
	"testing"

	"flyable/backend"
	"flyable/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flyable.toml": `name = "demo"`,
		"main.py":      "print(1)\n",
	})

	proj, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "demo", proj.Name)
	assert.Equal(t, filepath.Join(dir, "main.py"), proj.Entry)
	assert.Equal(t, DefaultSources, proj.Sources)
	assert.Equal(t, filepath.Join(dir, "build", platformFolder()), proj.OutputDir)
	assert.Equal(t, DefaultExecName, proj.ExecName)
	assert.Equal(t, DefaultMaxPasses, proj.MaxPasses)
	assert.Equal(t, backend.KindLLC, proj.Backend.Kind)
	assert.Equal(t, DefaultLLC, proj.Backend.LLCPath)
	assert.Equal(t, DefaultCC, proj.Link.CC)
	assert.Equal(t, []string{"-flto"}, proj.Link.Flags)
	assert.Equal(t, DefaultPythonVersion, proj.Link.PythonVersion)
	assert.False(t, proj.SingleFile)
}

func TestLoadReadsEverySetting(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flyable.toml": `
name = "demo"
entry = "app/start.py"
sources = ["app/*.py"]
output-dir = "out"
exec-name = "demo"
max-passes = 3

[backend]
kind = "shared"
lib-dir = "native"
keep-ir = true

[link]
cc = "clang"
flags = []
runtime-lib = "native/librt.a"
python-lib = "/opt/python/lib"
python-version = "3.11"
`,
	})

	proj, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "app", "start.py"), proj.Entry)
	assert.Equal(t, []string{"app/*.py"}, proj.Sources)
	assert.Equal(t, filepath.Join(dir, "out"), proj.OutputDir)
	assert.Equal(t, 3, proj.MaxPasses)
	assert.Equal(t, backend.KindShared, proj.Backend.Kind)
	assert.Equal(t, filepath.Join(dir, "native"), proj.Backend.LibDir)
	assert.True(t, proj.Backend.KeepIR)
	assert.Equal(t, "clang", proj.Link.CC)
	assert.Empty(t, proj.Link.Flags)
	assert.Equal(t, filepath.Join(dir, "native", "librt.a"), proj.Link.RuntimeLib)
	assert.True(t, filepath.IsAbs(proj.Link.PythonLibDir))
	assert.Equal(t, "3.11", proj.Link.PythonVersion)
	assert.Equal(t, filepath.Join(dir, "out", common.ExecutableName("demo")), proj.ExecPath())
}

func TestLoadRejectsInvalidProjects(t *testing.T) {
	cases := map[string]string{
		"missing name":  `entry = "main.py"`,
		"bad name":      `name = "my-project"`,
		"bad entry":     "name = \"demo\"\nentry = \"main.c\"",
		"bad backend":   "name = \"demo\"\n[backend]\nkind = \"gcc\"",
		"negative pass": "name = \"demo\"\nmax-passes = -1",
		"malformed":     `name = `,
	}

	for what, content := range cases {
		dir := t.TempDir()
		writeFiles(t, dir, map[string]string{"flyable.toml": content})

		_, err := Load(dir)
		assert.Error(t, err, what)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flyable.toml": `name = "demo"`,
		"main.py":      "",
		"notes.txt":    "",
	})

	proj, err := Resolve(dir)
	require.NoError(t, err)
	assert.False(t, proj.SingleFile)

	proj, err = Resolve(filepath.Join(dir, "flyable.toml"))
	require.NoError(t, err)
	assert.Equal(t, "demo", proj.Name)

	proj, err = Resolve(filepath.Join(dir, "main.py"))
	require.NoError(t, err)
	assert.True(t, proj.SingleFile)
	assert.Equal(t, "main", proj.Name)
	assert.Equal(t, filepath.Join(dir, "main.py"), proj.Entry)

	_, err = Resolve(filepath.Join(dir, "notes.txt"))
	assert.Error(t, err)

	_, err = Resolve(filepath.Join(dir, "missing.py"))
	assert.Error(t, err)
}

func TestFromFileFallsBackToMainName(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"my-script.py": ""})

	proj, err := FromFile(filepath.Join(dir, "my-script.py"))
	require.NoError(t, err)
	assert.Equal(t, "main", proj.Name)
}

func TestSourceFiles(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flyable.toml":               `name = "demo"`,
		"main.py":                    "",
		"util.py":                    "",
		"pkg/__init__.py":            "",
		"pkg/helpers.py":             "",
		"pkg/data.json":              "",
		".venv/lib/site.py":          "",
		"build/linux64/generated.py": "",
	})

	proj, err := Load(dir)
	require.NoError(t, err)
	proj.OutputDir = filepath.Join(dir, "build", "linux64")

	files, err := proj.SourceFiles()
	require.NoError(t, err)

	var reprs []string
	for _, f := range files {
		reprs = append(reprs, filepath.ToSlash(f.ReprPath))
	}

	assert.Equal(t, []string{"main.py", "pkg/__init__.py", "pkg/helpers.py", "util.py"}, reprs)
	assert.Equal(t, filepath.Join(dir, "main.py"), files[0].AbsPath)
}

func TestSourceFilesOfSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"script.py": "",
		"other.py":  "",
	})

	proj, err := FromFile(filepath.Join(dir, "script.py"))
	require.NoError(t, err)

	files, err := proj.SourceFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "script.py", files[0].ReprPath)
}

func TestInvalidSourcePattern(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"flyable.toml": "name = \"demo\"\nsources = [\"[a\"]",
		"main.py":      "",
	})

	proj, err := Load(dir)
	require.NoError(t, err)

	_, err = proj.SourceFiles()
	assert.Error(t, err)
}

func TestIsValidIdentifier(t *testing.T) {
	assert.True(t, IsValidIdentifier("demo_2"))
	assert.True(t, IsValidIdentifier("_x"))
	assert.False(t, IsValidIdentifier("2demo"))
	assert.False(t, IsValidIdentifier("de-mo"))
	assert.False(t, IsValidIdentifier(""))
}
