package cmd

import (
	"errors"
	"os"
	"path/filepath"

	"flyable/backend"
	"flyable/common"
	"flyable/project"
	"flyable/report"

	"github.com/ComedicChimera/olive"
)

// Execute is the main entry point for the `flyc` CLI utility.  It returns the
// exit code of the process.
func Execute() int {
	// set up the argument parser and all its extended commands and arguments
	cli := olive.NewCLI("flyc", "flyc compiles Python programs into native executables", true)
	logLvlArg := cli.AddSelectorArg("loglevel", "ll", "the compiler log level", false, []string{"silent", "error", "warn", "verbose", "debug"})
	logLvlArg.SetDefaultValue("verbose")

	buildCmd := cli.AddSubcommand("build", "compile and link a program", true)
	buildCmd.AddPrimaryArg("project-path", "the path to the project directory or source file", true)
	buildCmd.AddSelectorArg("backend", "b", "the backend producing object files", false, []string{backend.KindLLC, backend.KindShared})

	runCmd := cli.AddSubcommand("run", "build a program and run it", true)
	runCmd.AddPrimaryArg("project-path", "the path to the project directory or source file", true)
	runCmd.AddSelectorArg("backend", "b", "the backend producing object files", false, []string{backend.KindLLC, backend.KindShared})

	emitCmd := cli.AddSubcommand("emit", "write the generated module as text", true)
	emitCmd.AddPrimaryArg("project-path", "the path to the project directory or source file", true)
	emitCmd.AddStringArg("output", "o", "the path of the emitted module", false)

	cli.AddSubcommand("version", "print the Flyable version", false)

	// run the argument parser
	result, err := olive.ParseArgs(cli, os.Args)
	if err != nil {
		report.ReportFatal("%s", err)
	}

	report.InitReporter(report.LogLevelNames[result.Arguments["loglevel"].(string)])

	// process the inputed command line
	subcmdName, subResult, _ := result.Subcommand()
	switch subcmdName {
	case "build":
		execBuildCommand(subResult)
	case "run":
		return execRunCommand(subResult)
	case "emit":
		execEmitCommand(subResult)
	case "version":
		report.ReportInfo("flyable v%s", common.FlyableVersion)
	}

	if report.AnyErrors() {
		return 1
	}

	return 0
}

// loadProject loads the project named by the primary argument of a command
// and applies the command's overrides.
func loadProject(result *olive.ArgParseResult) *project.Project {
	projPath, _ := result.PrimaryArg()

	proj, err := project.Resolve(projPath)
	if err != nil {
		report.ReportFatal("failed to load project: %s", err)
	}

	if kind, ok := result.Arguments["backend"]; ok {
		proj.Backend.Kind = kind.(string)
	}

	return proj
}

// execBuildCommand executes the build subcommand and handles all errors.
func execBuildCommand(result *olive.ArgParseResult) (string, bool) {
	c := NewCompiler(loadProject(result))

	outPath, err := c.Build()
	finishBuild(outPath, err)
	return outPath, err == nil
}

// execRunCommand executes the run subcommand.  The exit code of the program
// is relayed as the exit code of the compiler.
func execRunCommand(result *olive.ArgParseResult) int {
	outPath, ok := execBuildCommand(result)
	if !ok {
		return 1
	}

	code, err := runExecutable(outPath)
	if err != nil {
		report.ReportFatal("running failed: %s", err)
	}

	return code
}

// execEmitCommand executes the emit subcommand.
func execEmitCommand(result *olive.ArgParseResult) {
	proj := loadProject(result)

	outPath := filepath.Join(proj.OutputDir, proj.ExecName+".ll")
	if out, ok := result.Arguments["output"]; ok {
		outPath = out.(string)
	}

	c := NewCompiler(proj)
	err := c.Emit(outPath)
	finishBuild(outPath, err)
}

// finishBuild reports the outcome of a build.
func finishBuild(outPath string, err error) {
	if err != nil && !errors.Is(err, errSourceErrors) {
		report.ReportFatal("%s", err)
	}

	report.ReportCompilationFinished(outPath)
}
