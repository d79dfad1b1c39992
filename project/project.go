// Package project loads the configuration of a Flyable project.
package project

// Project is a loaded and validated project configuration.  All paths are
// absolute.
type Project struct {
	// Name is the name of the project.
	Name string

	// Root is the directory containing the project file or the single source
	// file being compiled.
	Root string

	// Entry is the source file whose module-level code is the program.
	Entry string

	// Sources are the glob patterns selecting the source files of the
	// project relative to its root.  They are always matched with forward
	// slashes.
	Sources []string

	// OutputDir is the directory receiving the executable and the scratch
	// directory of builds.
	OutputDir string

	// ExecName is the name of the produced executable without extension.
	ExecName string

	// MaxPasses is the maximum number of specialization passes run before
	// compilation gives up.
	MaxPasses int

	Backend BackendConfig
	Link    LinkConfig

	// SingleFile indicates that the project was synthesized around a lone
	// source file.
	SingleFile bool
}

// BackendConfig selects and configures the backend producing object files.
type BackendConfig struct {
	// Kind is one of the backend kinds: `llc` or `shared`.
	Kind string

	// LLCPath is the llc executable used by the llc backend.
	LLCPath string

	// LibDir is the directory holding the shared code generation library and
	// its dependencies.
	LibDir string

	// KeepIR keeps the textual module next to the object file.
	KeepIR bool
}

// LinkConfig configures the link of the final executable.
type LinkConfig struct {
	// CC is the C toolchain driver used to link.
	CC string

	// Flags are passed to the driver before the inputs.
	Flags []string

	// RuntimeLib is the static runtime library.  It is not linked when empty.
	RuntimeLib string

	// PythonLibDir is an additional library directory searched for the
	// Python library.  It may be empty.
	PythonLibDir string

	// PythonVersion is the `major.minor` version of the Python library.
	PythonVersion string
}

// Defaults of the optional settings.
const (
	DefaultEntry         = "main.py"
	DefaultExecName      = "a"
	DefaultMaxPasses     = 8
	DefaultCC            = "gcc"
	DefaultLLC           = "llc"
	DefaultPythonVersion = "3.10"
	RuntimeLibName       = "libFlyableRuntime.a"
)

// DefaultSources are the source patterns used when none are given.
var DefaultSources = []string{"*.py", "**/*.py"}

// DefaultLinkFlags are the link flags used when none are given.
var DefaultLinkFlags = []string{"-flto"}

// IsValidIdentifier returns whether idstr can name a project.
func IsValidIdentifier(idstr string) bool {
	if idstr == "" {
		return false
	}

	if idstr[0] == '_' || ('a' <= idstr[0] && idstr[0] <= 'z') || ('A' <= idstr[0] && idstr[0] <= 'Z') {
		for _, c := range idstr[1:] {
			if c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
				continue
			}

			return false
		}

		return true
	}

	return false
}
