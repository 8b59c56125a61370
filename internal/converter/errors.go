package converter

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound    = errors.New("source file not found")
	ErrNotPDF            = errors.New("source is not a PDF document")
	ErrDestinationExists = errors.New("destination already exists")
	ErrNoOutput          = errors.New("converter produced no output")
)

// ConversionError carries the failure reported by the external converter.
type ConversionError struct {
	Source string
	Output string
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("conversion of %s failed: %v: %s", e.Source, e.Err, e.Output)
	}
	return fmt.Sprintf("conversion of %s failed: %v", e.Source, e.Err)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}
