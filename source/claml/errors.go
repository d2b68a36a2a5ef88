package claml

import "fmt"

// SyntaxError reports a document that is not well-formed XML.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("xml syntax error at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("xml syntax error: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// StructureError reports well-formed XML that does not satisfy the CLAML
// structure expected by the compiler.
type StructureError struct {
	// Code is the offending class or qualifier code, if known.
	Code string

	// Element is the CLAML element involved.
	Element string

	// Line is the line of the element in the source, 0 if not known.
	Line int

	Reason string
}

func (e *StructureError) Error() string {
	msg := "invalid " + e.Element
	if e.Code != "" {
		msg += fmt.Sprintf(" %q", e.Code)
	}
	if e.Line > 0 {
		msg += fmt.Sprintf(" at line %d", e.Line)
	}
	return msg + ": " + e.Reason
}
