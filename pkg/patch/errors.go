package patch

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error.
const (
	CodeParse          = "PARSE_ERROR"
	CodeIO             = "IO_ERROR"
	CodeUnsafePath     = "UNSAFE_PATH"
	CodeCanceled       = "CANCELED"
	CodeInvalidOptions = "INVALID_OPTIONS"
)

// Error represents a structured failure while parsing or applying a patch. Conflicts are not
// errors; they are reported through Outcome values.
type Error struct {
	Code    string
	Message string
	// Line is the 1-based patch line that caused a parse error.
	Line int
	// Path names the file involved in an I/O or path failure.
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if msg == "" {
		msg = "patch error"
	}
	switch {
	case e.Code == CodeParse && e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, msg)
	case e.Path != "" && e.Message != "":
		return fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func parseErrorf(line int, format string, args ...any) *Error {
	return &Error{Code: CodeParse, Line: line, Message: fmt.Sprintf(format, args...)}
}

func ioError(path, message string, err error) *Error {
	return &Error{Code: CodeIO, Path: path, Message: message, Err: err}
}

// IsParseError reports whether err is a malformed or truncated patch.
func IsParseError(err error) bool {
	return hasCode(err, CodeParse)
}

// IsIOError reports whether err is a document, patch, or output I/O failure.
func IsIOError(err error) bool {
	return hasCode(err, CodeIO)
}

// IsUnsafePath reports whether err is a rejected file path.
func IsUnsafePath(err error) bool {
	return hasCode(err, CodeUnsafePath)
}

func hasCode(err error, code string) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}
