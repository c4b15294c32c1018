package parse

import "fmt"

// FormatAuto tags errors raised by Parse, which detects formats itself.
const FormatAuto = "auto"

// ParseError is the single error kind returned by Parse.
type ParseError struct {
	Message string
	Format  string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (%s): %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FileReadError reports that a path could not be read.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }
