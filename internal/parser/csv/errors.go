package csv

import (
	"errors"
	"fmt"
)

// Kind classifies a LoadError.
type Kind uint8

const (
	// KindIO means the source could not be opened or read.
	KindIO Kind = iota + 1
	// KindParse means the bytes were read but are not a well-formed table.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindParse:
		return "parse"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Sentinels for errors.Is checks against a *LoadError.
var (
	ErrIO    = errors.New("csv: source unreadable")
	ErrParse = errors.New("csv: malformed table")
)

// LoadError is returned by Load for every fatal ingestion failure.
type LoadError struct {
	Kind Kind
	Path string
	Line int // 1-based input line, 0 when not applicable
	Err  error
}

func (e *LoadError) Error() string {
	where := e.Path
	if e.Line > 0 {
		where = fmt.Sprintf("%s:%d", e.Path, e.Line)
	}
	return fmt.Sprintf("load %s (%s): %v", where, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIO) and errors.Is(err, ErrParse) match by kind.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}
