package backend

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/llir/llvm/ir"
)

// LLC compiles modules with the `llc` tool.  The module is written as text
// next to the object file.
type LLC struct {
	// Path is the path to the llc executable.
	Path string

	// KeepIR keeps the textual module after compilation.
	KeepIR bool
}

func (l *LLC) Name() string {
	return KindLLC
}

func (l *LLC) Compile(mod *ir.Module, objPath string) error {
	irPath := strings.TrimSuffix(objPath, filepath.Ext(objPath)) + ".ll"
	if err := WriteIR(mod, irPath); err != nil {
		return err
	}

	if !l.KeepIR {
		defer os.Remove(irPath)
	}

	return RunTool("", l.Path, "-filetype=obj", "-relocation-model=pic", "-o", objPath, irPath)
}
