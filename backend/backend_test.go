package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingDependency(t *testing.T) {
	dep, ok := missingDependency("libLLVM-15.so.1: cannot open shared object file: No such file or directory")
	require.True(t, ok)
	assert.Equal(t, "libLLVM-15.so.1", dep)

	dep, ok = missingDependency("/opt/flyable/linux64/libFlyableCodeGen.so: cannot open shared object file: No such file or directory")
	require.True(t, ok)
	assert.Equal(t, "libFlyableCodeGen.so", dep)

	dep, ok = missingDependency("dlopen(libFlyableCodeGen.dylib, 0x000A): Library not loaded: @rpath/libz.1.dylib\n  Referenced from: ...")
	require.True(t, ok)
	assert.Equal(t, "libz.1.dylib", dep)

	_, ok = missingDependency("undefined symbol: LLVMInitializeX86Target")
	assert.False(t, ok)
}

type fakeLibrary struct {
	name string
}

func (fl *fakeLibrary) run(buf []byte, output string) error { return nil }
func (fl *fakeLibrary) close()                               {}

// fakeLoader simulates a dynamic loader: a library opens once all of its
// dependencies have been opened.
type fakeLoader struct {
	deps   map[string][]string
	loaded map[string]bool
	opened []string
}

func (fl *fakeLoader) open(path string) (library, error) {
	name := filepath.Base(path)
	deps, ok := fl.deps[name]
	if !ok {
		return nil, fmt.Errorf("%s: cannot open shared object file: No such file or directory", path)
	}

	for _, dep := range deps {
		if !fl.loaded[dep] {
			return nil, fmt.Errorf("%s: cannot open shared object file: No such file or directory", dep)
		}
	}

	fl.loaded[name] = true
	fl.opened = append(fl.opened, name)
	return &fakeLibrary{name: name}, nil
}

func TestOpenWithDependencies(t *testing.T) {
	loader := &fakeLoader{
		deps: map[string][]string{
			"libcg.so":   {"libllvm.so", "libz.so"},
			"libllvm.so": {"libz.so"},
			"libz.so":    nil,
		},
		loaded: make(map[string]bool),
	}

	lib, err := openWithDependencies("/lib", "libcg.so", loader.open, make(map[string]bool))
	require.NoError(t, err)
	assert.Equal(t, "libcg.so", lib.(*fakeLibrary).name)
	assert.Equal(t, []string{"libz.so", "libllvm.so", "libcg.so"}, loader.opened)
}

func TestOpenWithMissingDependency(t *testing.T) {
	loader := &fakeLoader{
		deps: map[string][]string{
			"libcg.so": {"libgone.so"},
		},
		loaded: make(map[string]bool),
	}

	_, err := openWithDependencies("/lib", "libcg.so", loader.open, make(map[string]bool))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libgone.so")

	_, err = openWithDependencies("/lib", "libnone.so", loader.open, make(map[string]bool))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libnone.so")
}

func TestNewBackend(t *testing.T) {
	be, err := New(KindLLC, "llc-15", "", true)
	require.NoError(t, err)
	assert.Equal(t, KindLLC, be.Name())
	assert.Equal(t, "llc-15", be.(*LLC).Path)

	be, err = New(KindShared, "", "/opt/lib", false)
	require.NoError(t, err)
	assert.Equal(t, KindShared, be.Name())

	_, err = New("gcc", "", "", false)
	assert.Error(t, err)
}

func TestRunToolReportsMissingTool(t *testing.T) {
	err := RunTool(t.TempDir(), "flyable-no-such-tool")
	require.Error(t, err)

	var te *ToolchainError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, -1, te.ExitCode)
	assert.Equal(t, "flyable-no-such-tool", te.Tool)
}

func TestLLCKeepsIR(t *testing.T) {
	mod := ir.NewModule()
	mod.NewGlobalDef("answer", constant.NewInt(types.I64, 42))

	dir := t.TempDir()
	llc := &LLC{Path: "flyable-no-such-llc", KeepIR: true}
	err := llc.Compile(mod, filepath.Join(dir, "output.o"))

	var te *ToolchainError
	require.True(t, errors.As(err, &te))
	assert.FileExists(t, filepath.Join(dir, "output.ll"))
}

func TestLinkageErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &LinkageError{Lib: "libFlyableCodeGen.so", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "libFlyableCodeGen.so")
}
