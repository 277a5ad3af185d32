package envconf

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrInvalidTarget is returned when the configuration argument is not a
	// (non-nil pointer to a) struct.
	ErrInvalidTarget = errors.New("envconf: config must be a non-nil pointer to struct")

	// ErrMissing matches every *MissingError.
	ErrMissing = errors.New("envconf: required variable not set")
)

// DefinitionError reports an illegal field declaration. It is returned by
// Compile before any environment state is read.
type DefinitionError struct {
	Type   reflect.Type
	Field  string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("envconf: %s.%s: %s", e.Type, e.Field, e.Reason)
}

// MissingError reports a required field with no value from any source.
type MissingError struct {
	Field    string
	Name     string
	FromFile bool
}

func (e *MissingError) Error() string {
	if e.FromFile {
		return fmt.Sprintf("environment variable %q is required but not set (also checked %q)", e.Name, e.Name+FileSuffix)
	}
	return fmt.Sprintf("environment variable %q is required but not set", e.Name)
}

func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// FileReadError reports a <NAME>_FILE variable whose path could not be read.
// It is never downgraded to absence.
type FileReadError struct {
	Field   string
	Name    string
	FileVar string
	Path    string
	Err     error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("failed to read file %q named by %q for environment variable %q: %v", e.Path, e.FileVar, e.Name, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// ConversionError reports text that could not be converted to the field type.
type ConversionError struct {
	Field     string
	Name      string
	Source    Source
	Text      string
	Type      reflect.Type
	Converter string
	Err       error
}

func (e *ConversionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to parse environment variable %q", e.Name)
	if e.Source == SourceFile {
		fmt.Fprintf(&b, " (read from %q)", e.Name+FileSuffix)
	}
	fmt.Fprintf(&b, " value %q as %s", e.Text, e.Type)
	if e.Converter != "" {
		fmt.Fprintf(&b, " with converter %q", e.Converter)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *ConversionError) Unwrap() error { return e.Err }

// AggregateError collects every field failure of one resolution, in
// declaration order.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return "envconf: " + e.Errors[0].Error()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "envconf: %d fields failed to resolve:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }
