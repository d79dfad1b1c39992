package report

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// Reporter prints diagnostics and progress filtered by a log level.  All
// reporting functions lock it.
type Reporter struct {
	m *sync.Mutex

	// One of the LogLevel constants.
	logLevel int

	// The number of errors and warnings reported so far.
	errorCount, warnCount int

	// The writer all messages are displayed to.
	out io.Writer

	// Whether spinners can be drawn on the output.
	interactive bool

	// The currently running phase, if any.
	phase *phaseState
}

// Log levels, from quietest to loudest.
const (
	LogLevelSilent = iota
	LogLevelError
	LogLevelWarn
	LogLevelVerbose // default
	LogLevelDebug   // adds trace messages
)

// LogLevelNames maps command line log level names onto log levels.
var LogLevelNames = map[string]int{
	"silent":  LogLevelSilent,
	"error":   LogLevelError,
	"warn":    LogLevelWarn,
	"verbose": LogLevelVerbose,
	"debug":   LogLevelDebug,
}

// rep is the global reporter instance.  It starts out verbose on stdout so that
// the compiler's packages can be used before InitReporter is called.
var rep = newReporter(LogLevelVerbose, os.Stdout)

// exit is the function used to terminate the process on fatal errors.
var exit = os.Exit

func newReporter(logLevel int, out io.Writer) *Reporter {
	return &Reporter{
		m:        &sync.Mutex{},
		logLevel: logLevel,
		out:      out,
	}
}

// InitReporter initializes the global error reporter to the given log level.
// Colors and spinners are disabled when stdout is not a terminal.
func InitReporter(logLevel int) {
	fd := os.Stdout.Fd()
	interactive := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	if !interactive {
		pterm.DisableColor()
	}

	rep = newReporter(logLevel, os.Stdout)
	rep.interactive = interactive
}

// LogLevel returns the log level of the global reporter.
func LogLevel() int {
	return rep.logLevel
}

// Counts returns the number of errors and warnings reported so far.
func Counts() (int, int) {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.errorCount, rep.warnCount
}
