package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"flyable/backend"
	"flyable/common"
	"flyable/project"
	"flyable/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProject writes a project into a temporary directory and loads it.  The
// global reporter is reset so that errors of other tests do not leak in.
func newProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	report.InitReporter(report.LogLevelSilent)

	dir := t.TempDir()
	if _, ok := files[common.ProjectFileName]; !ok {
		files[common.ProjectFileName] = `name = "demo"`
	}

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	proj, err := project.Load(dir)
	require.NoError(t, err)
	return proj
}

const conflictingTypes = `
def f():
    x = 1
    x = "one"
    return x

f()
`

func TestEmitWritesModule(t *testing.T) {
	proj := newProject(t, map[string]string{
		"main.py": `
from util import double

print(double(21))
`,
		"util.py": `
def double(v):
    return v * 2
`,
	})

	outPath := filepath.Join(proj.OutputDir, "demo.ll")
	c := NewCompiler(proj)
	require.NoError(t, c.Emit(outPath))

	text, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(text), "define i32 @main()")
	assert.Contains(t, string(text), "@main.__module__()")
	assert.Contains(t, string(text), "@util.double.0(i64 %a0)")
	assert.Equal(t, 1, c.passes)
}

func TestGenerateRestartsPasses(t *testing.T) {
	proj := newProject(t, map[string]string{"main.py": conflictingTypes})

	c := NewCompiler(proj)
	require.True(t, c.Analyze())

	mod, ok := c.Generate()
	require.True(t, ok)
	require.NotNil(t, mod)
	assert.Equal(t, 2, c.passes)
	assert.False(t, report.AnyErrors())
}

func TestGenerateGivesUpAfterMaxPasses(t *testing.T) {
	proj := newProject(t, map[string]string{"main.py": conflictingTypes})
	proj.MaxPasses = 1

	c := NewCompiler(proj)
	require.True(t, c.Analyze())

	_, ok := c.Generate()
	assert.False(t, ok)
	assert.True(t, report.AnyErrors())
}

func TestAnalyzeReportsSourceErrors(t *testing.T) {
	proj := newProject(t, map[string]string{
		"main.py":    "from helpers import f\n",
		"helpers.py": "f = lambda x: x\n",
	})

	c := NewCompiler(proj)
	assert.False(t, c.Analyze())

	errs, _ := report.Counts()
	assert.Equal(t, 1, errs)
}

func TestAnalyzeReportsBadBaseClass(t *testing.T) {
	proj := newProject(t, map[string]string{
		"main.py": "class A(B):\n    pass\n",
	})

	c := NewCompiler(proj)
	assert.False(t, c.Analyze())
}

func TestCompileErrorsStopGeneration(t *testing.T) {
	proj := newProject(t, map[string]string{"main.py": "break\n"})

	err := NewCompiler(proj).Emit(filepath.Join(proj.OutputDir, "out.ll"))
	assert.ErrorIs(t, err, errSourceErrors)
	assert.True(t, report.AnyErrors())
	assert.NoFileExists(t, filepath.Join(proj.OutputDir, "out.ll"))
}

func TestBuildReportsToolchainFailure(t *testing.T) {
	proj := newProject(t, map[string]string{"main.py": "x = 1\n"})
	proj.Backend.LLCPath = "flyable-no-such-llc"

	c := NewCompiler(proj)
	_, err := c.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compiling failed")

	var te *backend.ToolchainError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "flyable-no-such-llc", te.Tool)
	assert.NoDirExists(t, filepath.Join(proj.ScratchDir(), c.buildID))
}

func TestLinkArgs(t *testing.T) {
	proj := newProject(t, map[string]string{"main.py": ""})
	proj.Link.RuntimeLib = "/opt/flyable/libFlyableRuntime.a"
	proj.Link.PythonLibDir = "/opt/python/libs"

	args := NewCompiler(proj).linkArgs("output.o")
	assert.Equal(t, "-flto", args[0])
	assert.Equal(t, []string{"-o", proj.ExecPath(), "output.o", "/opt/flyable/libFlyableRuntime.a", "-L/opt/python/libs"}, args[1:6])
	assert.Contains(t, args, common.PythonLinkArg("3.10"))
}

func TestRunExecutableRelaysExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}

	code, err := runExecutable("/bin/sh", "-c", "exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	_, err = runExecutable(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
