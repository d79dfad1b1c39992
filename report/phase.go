package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// phaseState is the state of the currently running compilation phase.
type phaseState struct {
	name    string
	start   time.Time
	spinner *pterm.SpinnerPrinter
}

const maxPhaseLength = len("Specializing")

func padPhase(name string) string {
	if len(name) >= maxPhaseLength {
		return name + "  "
	}

	return name + strings.Repeat(" ", maxPhaseLength-len(name)+2)
}

// BeginPhase displays the beginning of a compilation phase.  Any phase still
// running is ended successfully first.  A spinner is only shown when the
// reporter writes to an interactive terminal.
func BeginPhase(name string) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.endPhase(true)

	if rep.logLevel < LogLevelVerbose {
		return
	}

	ps := &phaseState{name: name, start: time.Now()}
	if rep.interactive {
		ps.spinner = pterm.DefaultSpinner.WithStyle(pterm.NewStyle(InfoColorFG))
		ps.spinner.SuccessPrinter = &pterm.PrefixPrinter{
			MessageStyle: pterm.NewStyle(pterm.FgDefault),
			Prefix: pterm.Prefix{
				Style: SuccessStyleBG,
				Text:  "Done",
			},
		}
		ps.spinner.FailPrinter = &pterm.PrefixPrinter{
			MessageStyle: pterm.NewStyle(pterm.FgDefault),
			Prefix: pterm.Prefix{
				Style: ErrorStyleBG,
				Text:  "Fail",
			},
		}

		ps.spinner, _ = ps.spinner.Start(padPhase(name) + "...")
	}

	rep.phase = ps
}

// EndPhase displays the end of the current compilation phase.
func EndPhase(success bool) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.endPhase(success)
}

// endPhase must be called with the reporter's mutex held.
func (r *Reporter) endPhase(success bool) {
	ps := r.phase
	if ps == nil {
		return
	}
	r.phase = nil

	elapsed := fmt.Sprintf("(%.3fs)", time.Since(ps.start).Seconds())
	if ps.spinner != nil {
		if success {
			ps.spinner.Success(padPhase(ps.name), elapsed)
		} else {
			ps.spinner.Fail(padPhase(ps.name))
		}

		return
	}

	if success {
		fmt.Fprintln(r.out, padPhase(ps.name)+SuccessColorFG.Sprint("done"), elapsed)
	} else {
		fmt.Fprintln(r.out, padPhase(ps.name)+ErrorColorFG.Sprint("failed"))
	}
}

// -----------------------------------------------------------------------------

// ReportInfo displays an informational message in verbose mode.
func ReportInfo(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel >= LogLevelVerbose {
		fmt.Fprintln(rep.out, fmt.Sprintf(message, args...))
	}
}

// ReportTrace displays an internal trace message in debug mode.  These are
// used to follow specialization and restarts.
func ReportTrace(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel >= LogLevelDebug {
		fmt.Fprintln(rep.out, InfoColorFG.Sprint("trace")+" "+fmt.Sprintf(message, args...))
	}
}

// ReportCompilationFinished displays the closing message of a compilation.
func ReportCompilationFinished(outputPath string) {
	rep.m.Lock()
	defer rep.m.Unlock()

	success := rep.errorCount == 0
	rep.endPhase(success)

	if rep.logLevel < LogLevelError {
		return
	}

	fmt.Fprintln(rep.out)
	if success {
		fmt.Fprint(rep.out, SuccessColorFG.Sprint("All done! "))
	} else {
		fmt.Fprint(rep.out, ErrorColorFG.Sprint("Oh no! "))
	}

	fmt.Fprintf(rep.out, "(%s, %s)\n", plural(rep.errorCount, "error"), plural(rep.warnCount, "warning"))

	if success && outputPath != "" && rep.logLevel >= LogLevelVerbose {
		fmt.Fprintln(rep.out, "output written to", InfoColorFG.Sprint(outputPath))
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}

	return fmt.Sprintf("%d %ss", n, noun)
}
