package compiler

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/politpatrick/icf-api/source/claml"
	"github.com/politpatrick/icf-api/vocabulary/icf"
)

// Kind classifies a failed run.
type Kind string

const (
	KindEnvironment     Kind = "environment"
	KindInputNotFound   Kind = "input-not-found"
	KindMalformedInput  Kind = "malformed-input"
	KindMissingLanguage Kind = "missing-language"
	KindOutputWrite     Kind = "output-write"
)

// Sentinel errors, one per Kind. Use errors.Is to test a run error.
var (
	ErrEnvironment     = errors.New("environment error")
	ErrInputNotFound   = errors.New("input not found")
	ErrMalformedInput  = errors.New("malformed input")
	ErrMissingLanguage = errors.New("missing language")
	ErrOutputWrite     = errors.New("output write failed")
)

// Exit codes of the icfc command.
const (
	ExitOK              = 0
	ExitFailure         = 1
	ExitPanic           = 2
	ExitEnvironment     = 3
	ExitInputNotFound   = 4
	ExitMalformedInput  = 5
	ExitMissingLanguage = 6
	ExitOutputWrite     = 7
)

var kinds = []struct {
	kind     Kind
	sentinel error
	exit     int
}{
	{KindEnvironment, ErrEnvironment, ExitEnvironment},
	{KindInputNotFound, ErrInputNotFound, ExitInputNotFound},
	{KindMalformedInput, ErrMalformedInput, ExitMalformedInput},
	{KindMissingLanguage, ErrMissingLanguage, ExitMissingLanguage},
	{KindOutputWrite, ErrOutputWrite, ExitOutputWrite},
}

// Sentinel returns the sentinel error of a kind.
func (k Kind) Sentinel() error {
	for _, e := range kinds {
		if e.kind == k {
			return e.sentinel
		}
	}
	return nil
}

// Error is a classified run failure.
type Error struct {
	Kind Kind
	Op   string
	Path string

	// Code is the class code the failure concerns, if any.
	Code string

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" " + e.Path)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.Sentinel()
}

// NewError creates a classified error.
func NewError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// MissingLanguageError reports a text field that has no label in the
// requested language.
type MissingLanguageError struct {
	// Code of the class or qualifier lacking the label.
	Code string

	// Scale is set when Code is a qualifier value.
	Scale string

	Rubric    icf.RubricKind
	Lang      string
	Available []string
}

func (e *MissingLanguageError) Error() string {
	owner := e.Code
	if e.Scale != "" && e.Scale != e.Code {
		owner = e.Scale + "/" + e.Code
	}
	return fmt.Sprintf("no %s label in language %q for %q (available: %s)",
		e.Rubric, e.Lang, owner, strings.Join(e.Available, ", "))
}

// Is matches ErrMissingLanguage.
func (e *MissingLanguageError) Is(target error) bool { return target == ErrMissingLanguage }

// KindOf returns the kind of a run error.
func KindOf(err error) (Kind, bool) {
	for _, e := range kinds {
		if errors.Is(err, e.sentinel) {
			return e.kind, true
		}
	}
	return "", false
}

// ExitCode maps an error to the exit status of the icfc command.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	for _, e := range kinds {
		if errors.Is(err, e.sentinel) {
			return e.exit
		}
	}
	return ExitFailure
}

// classifyParse turns a parser error into a run error.
func classifyParse(path string, err error) error {
	var (
		syntax    *claml.SyntaxError
		structure *claml.StructureError
	)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return NewError(KindInputNotFound, "read input", path, err)
	case errors.As(err, &syntax):
		return NewError(KindMalformedInput, "parse input", path, err)
	case errors.As(err, &structure):
		return &Error{Kind: KindMalformedInput, Op: "parse input", Path: path, Code: structure.Code, Err: err}
	default:
		return NewError(KindInputNotFound, "read input", path, err)
	}
}

// classifyWrite turns a writer error into a run error.
func classifyWrite(outDir string, err error) error {
	return NewError(KindOutputWrite, "write dataset", outDir, err)
}
