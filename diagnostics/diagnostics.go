// Package diagnostics defines the closed error taxonomy shared by the
// lexer, parser, compiler and VM.
package diagnostics

import "fmt"

// Kind identifies which stage of the pipeline raised a Diagnostic and
// what class of problem it hit. The set is closed: callers can switch
// over it exhaustively.
type Kind string

const (
	LexicalError           Kind = "LexicalError"
	SyntaxError             Kind = "SyntaxError"
	UndefinedName           Kind = "UndefinedName"
	DivisionByZero          Kind = "DivisionByZero"
	StackUnderflow          Kind = "StackUnderflow"
	BadInstruction          Kind = "BadInstruction"
	ExecutionLimitExceeded  Kind = "ExecutionLimitExceeded"
)

// Diagnostic is a single reported problem, positioned in the source
// text that produced it. It implements error so callers that only
// care about "did this fail" can treat it like any other Go error.
type Diagnostic struct {
	Kind    Kind
	Message string
	Line    int
	Column  int
}

func (d Diagnostic) Error() string {
	if d.Line == 0 && d.Column == 0 {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s: %s (line %d, column %d)", d.Kind, d.Message, d.Line, d.Column)
}

// New builds a Diagnostic with a formatted message.
func New(kind Kind, line, column int, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Message: fmt.Sprintf(format, args...), Line: line, Column: column}
}
