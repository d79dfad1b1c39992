package report

import (
	"fmt"
)

// TextSpan locates a piece of Python source text.  Lines and columns count
// from zero; EndCol is one past the last spanned character.
type TextSpan struct {
	StartLine, StartCol int
	EndLine, EndCol     int
}

// NewSpanOver returns the span running from the start of start to the end of
// end.
func NewSpanOver(start, end *TextSpan) *TextSpan {
	return &TextSpan{
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func (ts *TextSpan) String() string {
	if ts == nil {
		return "?"
	}

	return fmt.Sprintf("%d:%d", ts.StartLine+1, ts.StartCol+1)
}

// -----------------------------------------------------------------------------

// LocalCompileError is an error in user code raised while the file being
// processed is implicit: whoever catches it knows which file it belongs to.
type LocalCompileError struct {
	Message string
	Span    *TextSpan
}

func (lce *LocalCompileError) Error() string {
	return lce.Message
}

// Raise builds a LocalCompileError.  Callers panic with the result and a
// deferred CatchErrors reports it.
func Raise(span *TextSpan, msg string, args ...interface{}) *LocalCompileError {
	return &LocalCompileError{Message: fmt.Sprintf(msg, args...), Span: span}
}

// InternalError is a broken compiler invariant.
type InternalError struct {
	Message string
}

func (ie *InternalError) Error() string {
	return "internal compiler error: " + ie.Message
}

// ICE panics with an InternalError.
func ICE(msg string, args ...interface{}) {
	panic(&InternalError{Message: fmt.Sprintf(msg, args...)})
}

// -----------------------------------------------------------------------------

// ReportICE prints an internal compiler error at any log level and exits.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.endPhase(false)
	displayICE(fmt.Sprintf(message, args...))

	exit(-1)
}

// ReportFatal stops compilation on an environment problem: an unreadable
// project file, a missing toolchain, a Python installation that cannot be
// found.
func ReportFatal(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	if rep.logLevel > LogLevelSilent {
		rep.endPhase(false)
		displayFatal(fmt.Sprintf(message, args...))
	}

	exit(1)
}

// ReportCompileError reports an error in a source file.  absPath is used to
// print the offending source and reprPath to name the file.  A nil span
// prints no position.
func ReportCompileError(absPath, reprPath string, span *TextSpan, message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.errorCount++
	if rep.logLevel == LogLevelSilent {
		return
	}

	rep.endPhase(false)
	displayCompileMessage("error", absPath, reprPath, span, fmt.Sprintf(message, args...))
}

// ReportCompileWarning is ReportCompileError for warnings.
func ReportCompileWarning(absPath, reprPath string, span *TextSpan, message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.warnCount++
	if rep.logLevel < LogLevelWarn {
		return
	}

	displayCompileMessage("warning", absPath, reprPath, span, fmt.Sprintf(message, args...))
}

// ReportStdError counts err as a compile error of the file at reprPath.
func ReportStdError(reprPath string, err error) {
	rep.m.Lock()
	defer rep.m.Unlock()

	rep.errorCount++
	if rep.logLevel == LogLevelSilent {
		return
	}

	rep.endPhase(false)
	displayStdError(reprPath, err)
}

// AnyErrors returns whether an error has been reported.
func AnyErrors() bool {
	rep.m.Lock()
	defer rep.m.Unlock()

	return rep.errorCount > 0
}

// -----------------------------------------------------------------------------

// CatchErrors recovers a panic raised while processing one file and reports
// it against that file.  It must be deferred.
func CatchErrors(absPath, reprPath string) {
	x := recover()
	if x == nil {
		return
	}

	switch v := x.(type) {
	case *LocalCompileError:
		ReportCompileError(absPath, reprPath, v.Span, "%s", v.Message)
	case *InternalError:
		ReportICE("%s", v.Message)
	case error:
		ReportStdError(reprPath, v)
	default:
		ReportICE("%v", x)
	}
}
