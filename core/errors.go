package core

import (
	"database/sql"
	stderrors "errors"
	"strings"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries the per-field messages of rejected input.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if len(err.Fields) > 0 {
		msgs := make([]string, 0, len(err.Fields))
		for _, f := range err.Fields {
			msgs = append(msgs, f.Field+": "+f.Error)
		}
		return strings.Join(msgs, "; ")
	}
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error {
	return err.Err
}

// shutdown errors ask the running app to stop.
type shutdown struct {
	message string
	cause   error
}

func NewShutdownError(msg string, cause ...error) error {
	s := &shutdown{message: msg}
	if len(cause) > 0 {
		s.cause = cause[0]
	}
	return s
}

func (s *shutdown) Error() string {
	if s.cause == nil {
		return s.message
	}
	return s.message + ": " + s.cause.Error()
}

func (s *shutdown) Unwrap() error {
	return s.cause
}

func IsShutdown(err error) bool {
	var s *shutdown
	return stderrors.As(err, &s)
}

// database/sql does not export the error of a closed *sql.DB.
const errDBClosedMsg = "sql: database is closed"

// CheckConnection turns err into a shutdown error when it says the database is gone,
// and returns it unchanged otherwise.
func CheckConnection(err error) error {
	if err == nil || IsShutdown(err) {
		return err
	}
	if stderrors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), errDBClosedMsg) {
		return NewShutdownError("database connection lost", err)
	}
	return err
}
