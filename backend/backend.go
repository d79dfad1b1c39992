// Package backend turns generated modules into native object files.  Two
// substitutable backends exist: one running the `llc` tool on the textual
// module and one calling into the shared code generation library.
package backend

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/llir/llvm/ir"
)

// Backend compiles a module into an object file.
type Backend interface {
	// Name returns the name the backend is selected by.
	Name() string

	// Compile writes the object file of mod to objPath.
	Compile(mod *ir.Module, objPath string) error
}

// Enumeration of the backend kinds.
const (
	KindLLC    = "llc"
	KindShared = "shared"
)

// New creates the backend of the given kind.  llcPath is used by the llc
// backend and libDir by the shared backend.
func New(kind, llcPath, libDir string, keepIR bool) (Backend, error) {
	switch kind {
	case KindLLC:
		return &LLC{Path: llcPath, KeepIR: keepIR}, nil
	case KindShared:
		return &Shared{LibDir: libDir}, nil
	}

	return nil, fmt.Errorf("unknown backend `%s`", kind)
}

// WriteIR writes the textual form of mod to path.
func WriteIR(mod *ir.Module, path string) error {
	if err := os.WriteFile(path, []byte(mod.String()), 0644); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// ToolchainError is returned when an external tool fails.  ExitCode is -1
// when the tool could not be started at all.
type ToolchainError struct {
	Tool     string
	ExitCode int
	Output   string
}

func (te *ToolchainError) Error() string {
	if te.ExitCode == -1 {
		return fmt.Sprintf("failed to run `%s`: %s", te.Tool, te.Output)
	}

	return fmt.Sprintf("`%s` exited with code %d:\n%s", te.Tool, te.ExitCode, te.Output)
}

// RunTool runs an external tool in dir and waits for it.  The combined output
// of a failed run is returned in a ToolchainError.
func RunTool(dir, tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}

	te := &ToolchainError{Tool: filepath.Base(tool), ExitCode: -1, Output: string(out)}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		te.ExitCode = exitErr.ExitCode()
	} else {
		te.Output = err.Error()
	}

	return te
}
