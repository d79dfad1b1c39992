// Package cmd is the driver of the Flyable compiler: it parses command-line
// arguments, loads projects and runs every phase of a build from parsing to
// running the produced executable.
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"flyable/backend"
	"flyable/codegen"
	"flyable/common"
	"flyable/depm"
	"flyable/project"
	"flyable/report"
	"flyable/syntax"
	"flyable/walk"

	"github.com/google/uuid"
	"github.com/llir/llvm/ir"
)

// errSourceErrors indicates that the build stopped on errors in the user's
// source code.  They have already been reported.
var errSourceErrors = errors.New("source errors")

// Compiler represents the state of a single build of a project.
type Compiler struct {
	proj *project.Project

	// prog is the entity graph of every source file of the project.
	prog *depm.Program

	// entry is the file whose module-level code is the program.
	entry *depm.LangFile

	// buildID names the scratch directory of this build so that concurrent
	// builds of one project do not clobber each other's intermediates.
	buildID string

	// passes is the number of specialization passes run by Generate.
	passes int
}

// NewCompiler creates a new compiler for a loaded project.
func NewCompiler(proj *project.Project) *Compiler {
	return &Compiler{
		proj:    proj,
		prog:    depm.NewProgram(proj.Root),
		buildID: uuid.New().String(),
	}
}

// Analyze parses and registers every source file of the project and resolves
// static imports and class hierarchies.  It returns false if any errors were
// reported.
func (c *Compiler) Analyze() bool {
	files, err := c.proj.SourceFiles()
	if err != nil {
		report.ReportStdError(c.proj.Name, err)
		return false
	}

	for _, sf := range files {
		c.loadFile(sf)
	}

	if report.AnyErrors() {
		return false
	}

	for _, file := range c.prog.Files {
		c.inFile(file, func() { c.prog.LinkImports(file) })
	}

	for _, file := range c.prog.Files {
		c.inFile(file, func() { c.prog.LinkClasses(file) })
	}

	if report.AnyErrors() {
		return false
	}

	for _, class := range c.prog.Classes {
		c.inFile(c.prog.File(class.File), func() { c.prog.LayoutClass(class) })
	}

	return !report.AnyErrors()
}

// loadFile parses and registers a single source file.
func (c *Compiler) loadFile(sf project.SourceFile) {
	defer report.CatchErrors(sf.AbsPath, sf.ReprPath)

	text, err := os.ReadFile(sf.AbsPath)
	if err != nil {
		panic(err)
	}

	file := c.prog.Register(sf.AbsPath, sf.ReprPath, text, syntax.Parse(text))
	if sf.AbsPath == c.proj.Entry {
		c.entry = file
	}
}

// inFile runs f catching the errors it throws against file.
func (c *Compiler) inFile(file *depm.LangFile, f func()) {
	defer report.CatchErrors(file.AbsPath, file.ReprPath)
	f()
}

// -----------------------------------------------------------------------------

// Generate runs specialization passes over the program until one completes
// without a restart.  It returns the generated module.
func (c *Compiler) Generate() (*ir.Module, bool) {
	for c.passes < c.proj.MaxPasses {
		if c.passes > 0 {
			c.prog.ClearInfo()
		}
		c.passes++

		mod, restart := c.runPass()
		if restart == nil {
			return mod, mod != nil
		}

		report.ReportTrace("pass %d restarted: %s", c.passes, restart)
	}

	report.ReportCompileError(
		c.entry.AbsPath,
		c.entry.ReprPath,
		nil,
		"specialization did not settle after %d passes: raise `max-passes` in the project file",
		c.proj.MaxPasses,
	)
	return nil, false
}

// runPass runs one specialization pass from the entry file.  A restart of the
// pass is returned rather than reported.
func (c *Compiler) runPass() (mod *ir.Module, restart *walk.Restart) {
	defer func() {
		if x := recover(); x != nil {
			mod = nil

			switch v := x.(type) {
			case *walk.Restart:
				restart = v
			case *walk.FileError:
				report.ReportCompileError(v.File.AbsPath, v.File.ReprPath, v.Err.Span, "%s", v.Err.Message)
			case *report.LocalCompileError:
				report.ReportCompileError(c.entry.AbsPath, c.entry.ReprPath, v.Span, "%s", v.Message)
			case *report.InternalError:
				report.ReportICE("%s", v.Message)
			default:
				report.ReportICE("%v", x)
			}
		}
	}()

	cg := codegen.NewCodeGen(c.prog)
	p := walk.NewParser(c.prog, cg)

	entryFunc := p.ParseModule(c.entry)
	c.checkEnded()

	cg.GenerateEntry(entryFunc)
	return cg.Mod, nil
}

// checkEnded asserts that every generated implementation finished.  Calls
// emitted while an implementation was still being walked target its forward
// declaration, which is only valid once the body is complete.
func (c *Compiler) checkEnded() {
	for _, impl := range c.prog.AllImpls() {
		if !impl.IsUnknown && impl.Status != depm.Ended {
			fn := c.prog.Func(impl.Func)
			report.ICE("implementation %d of `%s` was never finished", impl.LocalID, fn.QualName(c.prog))
		}
	}
}

// -----------------------------------------------------------------------------

// Build compiles and links the project.  It returns the path to the produced
// executable.
func (c *Compiler) Build() (string, error) {
	mod, err := c.compileModule()
	if err != nil {
		return "", err
	}

	report.BeginPhase("Compiling")
	be, err := backend.New(c.proj.Backend.Kind, c.proj.Backend.LLCPath, c.proj.Backend.LibDir, c.proj.Backend.KeepIR)
	if err != nil {
		return "", fmt.Errorf("compiling failed: %w", err)
	}

	scratch := filepath.Join(c.proj.ScratchDir(), c.buildID)
	if err := os.MkdirAll(scratch, 0755); err != nil {
		return "", fmt.Errorf("compiling failed: %w", err)
	}

	if !c.proj.Backend.KeepIR {
		defer os.RemoveAll(scratch)
	}

	objPath := filepath.Join(scratch, common.ObjectFileName)
	report.ReportTrace("compiling with the %s backend into %s", be.Name(), objPath)
	if err := be.Compile(mod, objPath); err != nil {
		return "", fmt.Errorf("compiling failed: %w", err)
	}

	report.BeginPhase("Linking")
	if err := c.linkExecutable(objPath); err != nil {
		return "", fmt.Errorf("linking failed: %w", err)
	}

	report.EndPhase(true)
	return c.proj.ExecPath(), nil
}

// Emit writes the textual module of the project to outPath.
func (c *Compiler) Emit(outPath string) error {
	mod, err := c.compileModule()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return err
	}

	if err := backend.WriteIR(mod, outPath); err != nil {
		return err
	}

	report.EndPhase(true)
	return nil
}

// compileModule runs the phases producing the module handed to the backend.
func (c *Compiler) compileModule() (*ir.Module, error) {
	report.BeginPhase("Parsing")
	if !c.Analyze() {
		return nil, errSourceErrors
	}

	if c.entry == nil {
		return nil, fmt.Errorf("entry file %s is not a source file of the project", c.proj.Entry)
	}

	report.BeginPhase("Specializing")
	mod, ok := c.Generate()
	if !ok {
		return nil, errSourceErrors
	}

	return mod, nil
}
