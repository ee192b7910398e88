// errors.go
//
// Error taxonomy surfaced to mirror consumers, plus caret-annotated snippet
// rendering for front-end diagnostics:
//
//	PARSE ERROR at 2:9: unexpected token '}'
//
//	   1 | a = 5;
//	   2 | b = a + };
//	       |        ^
//
// Resolution and unpack errors propagate to the immediate caller as typed
// errors carrying the offending symbol name; rendering truncation is never
// an error. Re-execution failures from SetValueAndExecute propagate
// unwrapped so an interactive session surfaces engine crashes instead of
// hiding them.
package protocore

import (
	"fmt"
	"strings"
)

// NameNotFoundError: the requested symbol does not resolve in any reachable
// scope. Surfaced to the caller; never retried.
type NameNotFoundError struct {
	Name string
}

func (e *NameNotFoundError) Error() string {
	return fmt.Sprintf("name %q not found", e.Name)
}

// UninitializedVariableError: the symbol resolves but its stack slot still
// holds the invalid sentinel (declared, never assigned).
type UninitializedVariableError struct {
	Name string
}

func (e *UninitializedVariableError) Error() string {
	return fmt.Sprintf("variable %q has not been initialized", e.Name)
}

// UnsupportedFeatureError: a genuine gap the mirror never silently works
// around — fixed-size-array symbol resolution, or an unknown value tag
// during unpack.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported: %s", e.Feature)
}

// ParseError is produced by the associative front end. Line and Col are
// 1-based.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("PARSE ERROR at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// WrapErrorWithSource augments a *ParseError with a caret-annotated snippet
// of the source it came from. Other errors pass through unchanged.
func WrapErrorWithSource(err error, src string) error {
	pe, ok := err.(*ParseError)
	if !ok {
		return err
	}
	return fmt.Errorf("%s", prettyErrorString(src, "PARSE ERROR", pe.Line, pe.Col, pe.Msg))
}

// prettyErrorString builds the snippet with a header and caret: up to one
// line of context before and after, 1-based coordinates clamped to the
// source bounds.
func prettyErrorString(src, header string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line < 1 {
		line = 1
	}
	if line > len(lines) {
		line = len(lines)
	}
	if col < 1 {
		col = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
