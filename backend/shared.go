package backend

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"flyable/common"

	"github.com/llir/llvm/ir"
)

// Shared compiles modules by handing their text to the entry point of the
// shared code generation library.  The library and the libraries it depends on
// are looked up in LibDir.
type Shared struct {
	LibDir string
}

func (s *Shared) Name() string {
	return KindShared
}

func (s *Shared) Compile(mod *ir.Module, objPath string) error {
	name := common.CodeGenLibName()

	lib, err := openWithDependencies(s.LibDir, name, openLibrary, make(map[string]bool))
	if err != nil {
		return &LinkageError{Lib: name, Err: err}
	}
	defer lib.close()

	return lib.run([]byte(mod.String()), objPath)
}

// LinkageError is returned when the shared code generation library cannot be
// loaded.
type LinkageError struct {
	Lib string
	Err error
}

func (le *LinkageError) Error() string {
	return fmt.Sprintf("failed to load `%s`: %s", le.Lib, le.Err)
}

func (le *LinkageError) Unwrap() error {
	return le.Err
}

// -----------------------------------------------------------------------------

// library is a loaded code generation library.
type library interface {
	// run calls the code generation entry point with the module text and the
	// path of the object file to produce.
	run(buf []byte, output string) error

	close()
}

// opener loads the library at path.
type opener func(path string) (library, error)

// openWithDependencies loads the library name from dir.  The dynamic loader
// only looks in the system paths for the dependencies of a library: whenever
// it reports a missing dependency, the dependency is loaded globally from dir
// first and loading is retried.
func openWithDependencies(dir, name string, open opener, seen map[string]bool) (library, error) {
	for {
		lib, err := open(filepath.Join(dir, name))
		if err == nil {
			return lib, nil
		}

		dep, ok := missingDependency(err.Error())
		if !ok || dep == name || seen[dep] {
			return nil, err
		}
		seen[dep] = true

		// Dependencies stay loaded for the rest of the process.
		if _, err := openWithDependencies(dir, dep, open, seen); err != nil {
			return nil, err
		}
	}
}

var macMissingLib = regexp.MustCompile(`Library not loaded: (\S+)`)

// missingDependency extracts the name of the missing library from a dynamic
// loader error message.
func missingDependency(msg string) (string, bool) {
	if i := strings.Index(msg, ": cannot open shared object file"); i > 0 {
		return filepath.Base(msg[:i]), true
	}

	if m := macMissingLib.FindStringSubmatch(msg); m != nil {
		return filepath.Base(m[1]), true
	}

	return "", false
}
