package report

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
)

var (
	SuccessColorFG = pterm.FgLightGreen
	SuccessStyleBG = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	WarnColorFG    = pterm.FgYellow
	WarnStyleBG    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	ErrorColorFG   = pterm.FgRed
	ErrorStyleBG   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	InfoColorFG    = pterm.FgCyan
)

// displayICE prints an internal compiler error.
func displayICE(message string) {
	fmt.Fprint(rep.out, ErrorStyleBG.Sprint("internal compiler error"), " ")
	fmt.Fprintln(rep.out, ErrorColorFG.Sprint(message))
	fmt.Fprint(rep.out, "This error was not supposed to happen: please open an issue with the file that caused it.\n\n")
}

func displayFatal(message string) {
	fmt.Fprint(rep.out, ErrorStyleBG.Sprint("fatal error"), " ")
	fmt.Fprintf(rep.out, "%s\n\n", message)
}

// displayCompileMessage prints an error or warning about a source file,
// followed by the spanned source when there is a span.  label is "error" or
// "warning".
func displayCompileMessage(label, absPath, reprPath string, span *TextSpan, message string) {
	color := WarnColorFG
	if label == "error" {
		color = ErrorColorFG
	}

	where := reprPath
	if span != nil {
		where = fmt.Sprintf("%s:%d:%d", reprPath, span.StartLine+1, span.StartCol+1)
	}

	fmt.Fprintf(rep.out, "%s: %s: %s\n\n", where, color.Sprint(label), message)
	if span != nil {
		displaySourceText(absPath, span)
	}
}

func displayStdError(reprPath string, err error) {
	fmt.Fprintf(rep.out, "%s: %s: %s\n\n", reprPath, ErrorColorFG.Sprint("error"), err)
}

// -----------------------------------------------------------------------------

// displaySourceText prints the lines covered by span with the spanned text
// underlined.  Files that can no longer be read are skipped: the message above
// already carries the position.
func displaySourceText(absPath string, span *TextSpan) {
	lines, ok := spannedLines(absPath, span)
	if !ok {
		return
	}

	indent := math.MaxInt
	for _, line := range lines {
		if n := len(line) - len(strings.TrimLeft(line, " ")); n < indent {
			indent = n
		}
	}

	gutter := len(strconv.Itoa(span.EndLine + 1))
	for i, line := range lines {
		fmt.Fprint(rep.out, InfoColorFG.Sprintf("%*d | ", -gutter, span.StartLine+i+1))
		fmt.Fprintln(rep.out, line[indent:])

		start, end := underlineBounds(line, span, i == 0, i == len(lines)-1)
		start = max(start-indent, 0)
		end = max(end-indent, start+1)

		fmt.Fprint(rep.out, strings.Repeat(" ", gutter), " | ", strings.Repeat(" ", start))
		fmt.Fprintln(rep.out, ErrorColorFG.Sprint(strings.Repeat("^", end-start)))
	}

	fmt.Fprintln(rep.out)
}

// spannedLines reads the lines of a file between the start and end lines of
// span with tabs expanded.
func spannedLines(absPath string, span *TextSpan) ([]string, bool) {
	f, err := os.Open(absPath)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for ln := 0; sc.Scan() && ln <= span.EndLine; ln++ {
		if ln >= span.StartLine {
			lines = append(lines, strings.ReplaceAll(sc.Text(), "\t", "    "))
		}
	}

	return lines, sc.Err() == nil && len(lines) > 0
}

// underlineBounds returns the columns of line to underline.  Underlining runs
// from the start of the span on its first line and to the end of the span on
// its last line; lines in between are underlined entirely.
func underlineBounds(line string, span *TextSpan, first, last bool) (int, int) {
	start, end := 0, len(line)
	if first {
		start = span.StartCol
	}
	if last && span.EndCol < end {
		end = span.EndCol
	}

	return start, end
}
