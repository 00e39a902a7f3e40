package usagecsv

import (
	"fmt"
	"strings"
)

// MissingHeaderError means no line containing the header token was found
type MissingHeaderError struct {
	Token string
}

func (e *MissingHeaderError) Error() string {
	return fmt.Sprintf("could not find header row containing %q; upload a usage CSV exported from Smart Meter Texas", e.Token)
}

// MissingFieldError means a required column is absent from the header
type MissingFieldError struct {
	Field      string
	Candidates []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required %s column, expected one of: %s", e.Field, strings.Join(e.Candidates, ", "))
}

// UnparseableDateError means no supported date layout matched
type UnparseableDateError struct {
	Value string
	Line  int
}

func (e *UnparseableDateError) Error() string {
	return fmt.Sprintf("line %d: unable to parse date %q", e.Line, e.Value)
}

// UnparseableNumberError means a required numeric cell could not be converted
type UnparseableNumberError struct {
	Field string
	Value string
	Line  int
}

func (e *UnparseableNumberError) Error() string {
	return fmt.Sprintf("line %d: unable to parse %s value %q", e.Line, e.Field, e.Value)
}
