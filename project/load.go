package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"flyable/backend"
	"flyable/common"
	"flyable/report"

	"github.com/pelletier/go-toml"
)

// tomlProject represents the project file as it is encoded in TOML.
type tomlProject struct {
	Name      string       `toml:"name"`
	Version   string       `toml:"flyable-version"`
	Entry     string       `toml:"entry,omitempty"`
	Sources   []string     `toml:"sources,omitempty"`
	OutputDir string       `toml:"output-dir,omitempty"`
	ExecName  string       `toml:"exec-name,omitempty"`
	MaxPasses int          `toml:"max-passes,omitempty"`
	Backend   *tomlBackend `toml:"backend"`
	Link      *tomlLink    `toml:"link"`
}

// tomlBackend represents the backend table as it is encoded in TOML.
type tomlBackend struct {
	Kind    string `toml:"kind"`
	LLCPath string `toml:"llc-path,omitempty"`
	LibDir  string `toml:"lib-dir,omitempty"`
	KeepIR  bool   `toml:"keep-ir"`
}

// tomlLink represents the link table as it is encoded in TOML.
type tomlLink struct {
	CC            string   `toml:"cc,omitempty"`
	Flags         []string `toml:"flags,omitempty"`
	RuntimeLib    string   `toml:"runtime-lib,omitempty"`
	PythonLib     string   `toml:"python-lib,omitempty"`
	PythonVersion string   `toml:"python-version,omitempty"`
}

// Resolve loads the project designated by path: a project directory, a
// project file or a lone source file.
func Resolve(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	switch {
	case info.IsDir():
		return Load(abs)
	case filepath.Base(abs) == common.ProjectFileName:
		return Load(filepath.Dir(abs))
	case filepath.Ext(abs) == common.SourceFileExt:
		return FromFile(abs)
	}

	return nil, fmt.Errorf("`%s` is neither a project nor a Python source file", path)
}

// Load loads and validates the project whose project file is in dir.
func Load(dir string) (*Project, error) {
	projPath := filepath.Join(dir, common.ProjectFileName)
	buff, err := os.ReadFile(projPath)
	if err != nil {
		return nil, err
	}

	tp := &tomlProject{}
	if err := toml.Unmarshal(buff, tp); err != nil {
		return nil, fmt.Errorf("malformed project file %s: %w", projPath, err)
	}

	if err := validateProject(tp, projPath); err != nil {
		return nil, err
	}

	proj := &Project{
		Name:      tp.Name,
		Root:      dir,
		Entry:     tp.Entry,
		Sources:   tp.Sources,
		OutputDir: tp.OutputDir,
		ExecName:  tp.ExecName,
		MaxPasses: tp.MaxPasses,
	}

	if tp.Backend != nil {
		proj.Backend = BackendConfig{
			Kind:    tp.Backend.Kind,
			LLCPath: tp.Backend.LLCPath,
			LibDir:  tp.Backend.LibDir,
			KeepIR:  tp.Backend.KeepIR,
		}
	}

	if tp.Link != nil {
		proj.Link = LinkConfig{
			CC:            tp.Link.CC,
			Flags:         tp.Link.Flags,
			RuntimeLib:    tp.Link.RuntimeLib,
			PythonLibDir:  tp.Link.PythonLib,
			PythonVersion: tp.Link.PythonVersion,
		}
	}

	proj.applyDefaults()
	return proj, nil
}

// FromFile synthesizes a default project around a single source file.
func FromFile(path string) (*Project, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	if !IsValidIdentifier(name) {
		name = "main"
	}

	proj := &Project{
		Name:       name,
		Root:       filepath.Dir(abs),
		Entry:      filepath.Base(abs),
		Sources:    []string{filepath.Base(abs)},
		SingleFile: true,
	}

	proj.applyDefaults()
	return proj, nil
}

// validateProject checks that the contents of the project file are valid.
func validateProject(tp *tomlProject, projPath string) error {
	if tp.Name == "" {
		return fmt.Errorf("missing project name in %s", projPath)
	}

	if !IsValidIdentifier(tp.Name) {
		return errors.New("project name must be a valid identifier")
	}

	if tp.Entry != "" && filepath.Ext(tp.Entry) != common.SourceFileExt {
		return fmt.Errorf("entry `%s` must be a Python source file", tp.Entry)
	}

	if tp.MaxPasses < 0 {
		return errors.New("max-passes must be positive")
	}

	if tp.Backend != nil {
		switch tp.Backend.Kind {
		case "", backend.KindLLC, backend.KindShared:
		default:
			return fmt.Errorf("unknown backend kind `%s`", tp.Backend.Kind)
		}
	}

	if tp.Version != "" && tp.Version != common.FlyableVersion {
		report.ReportCompileWarning(
			projPath,
			common.ProjectFileName,
			nil,
			"version of project `%s` (v%s) does not match current flyable version (v%s)",
			tp.Name, tp.Version, common.FlyableVersion,
		)
	}

	return nil
}

// applyDefaults fills in every setting left empty and makes paths absolute.
func (p *Project) applyDefaults() {
	if p.Entry == "" {
		p.Entry = DefaultEntry
	}
	p.Entry = p.abs(p.Entry)

	if len(p.Sources) == 0 {
		p.Sources = DefaultSources
	}

	if p.OutputDir == "" {
		p.OutputDir = filepath.Join("build", platformFolder())
	}
	p.OutputDir = p.abs(p.OutputDir)

	if p.ExecName == "" {
		p.ExecName = DefaultExecName
	}

	if p.MaxPasses == 0 {
		p.MaxPasses = DefaultMaxPasses
	}

	if p.Backend.Kind == "" {
		p.Backend.Kind = backend.KindLLC
	}

	if p.Backend.LLCPath == "" {
		p.Backend.LLCPath = DefaultLLC
	}

	if p.Backend.LibDir == "" {
		p.Backend.LibDir = defaultLibDir()
	} else {
		p.Backend.LibDir = p.abs(p.Backend.LibDir)
	}

	if p.Link.CC == "" {
		p.Link.CC = DefaultCC
	}

	if p.Link.Flags == nil {
		p.Link.Flags = DefaultLinkFlags
	}

	if p.Link.PythonVersion == "" {
		p.Link.PythonVersion = DefaultPythonVersion
	}

	if p.Link.PythonLibDir == "" {
		if dir, ok := pythonLibDir(p.Link.PythonVersion); ok {
			p.Link.PythonLibDir = dir
		}
	} else {
		p.Link.PythonLibDir = p.abs(p.Link.PythonLibDir)
	}

	if p.Link.RuntimeLib == "" {
		lib := filepath.Join(p.Backend.LibDir, RuntimeLibName)
		if _, err := os.Stat(lib); err == nil {
			p.Link.RuntimeLib = lib
		}
	} else {
		p.Link.RuntimeLib = p.abs(p.Link.RuntimeLib)
	}
}

// abs resolves a project relative path.
func (p *Project) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(p.Root, path)
}

// ExecPath returns the path of the produced executable.
func (p *Project) ExecPath() string {
	return filepath.Join(p.OutputDir, common.ExecutableName(p.ExecName))
}

// ScratchDir returns the directory holding the intermediate files of builds.
func (p *Project) ScratchDir() string {
	return filepath.Join(p.OutputDir, common.ScratchDirName)
}

// platformFolder returns the platform folder of the host.  Unsupported hosts
// still get a folder of their own so that the llc backend can be used.
func platformFolder() string {
	if folder, err := common.PlatformFolder(); err == nil {
		return folder
	}

	return runtime.GOOS + "-" + runtime.GOARCH
}

// defaultLibDir returns the platform library folder shipped next to the
// compiler's executable.
func defaultLibDir() string {
	exe, err := os.Executable()
	if err != nil {
		return filepath.Join("lib", platformFolder())
	}

	return filepath.Join(filepath.Dir(exe), "lib", platformFolder())
}
