package flattenjson

import (
	"errors"
	"fmt"
)

// Sentinel errors for flattenjson
var (
	// ErrOutputExists is returned when output_dir exists and force was not set
	ErrOutputExists = errors.New("output directory already exists")
	// ErrNoOutputFormat is returned when neither CSV nor XLSX output was requested
	ErrNoOutputFormat = errors.New("no output format requested: enable WithCSV and/or WithXLSX")
	// ErrPipelineClosed is returned when a send/receive observes unexpected peer termination
	ErrPipelineClosed = errors.New("pipeline channel closed unexpectedly")
	// ErrEmptySelector is returned when a SAXFrontEnd selector path is empty
	ErrEmptySelector = errors.New("selector path must not be empty")
	// ErrUnknownCompression is returned when a compression scheme name is not recognized
	ErrUnknownCompression = errors.New("unknown compression scheme")
)

// ParseError represents malformed input observed by a front end, with
// enough location information to find the offending record.
//
// Example:
//
//	var pe *flattenjson.ParseError
//	if errors.As(err, &pe) {
//	    fmt.Printf("record %d: %s\n", pe.RecordNumber, pe.Message)
//	}
type ParseError struct {
	RecordNumber int    // 1-based index of the record being parsed when the error occurred, 0 if unknown
	Offset       int64  // byte offset into the source stream, -1 if unknown
	Message      string // human-readable description
	Err          error  // underlying error, if any
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("record %d (offset %d): %s", e.RecordNumber, e.Offset, e.Message)
	}
	return fmt.Sprintf("record %d: %s", e.RecordNumber, e.Message)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// newParseError creates a new ParseError
func newParseError(recordNumber int, offset int64, message string, err error) *ParseError {
	return &ParseError{RecordNumber: recordNumber, Offset: offset, Message: message, Err: err}
}

// StageError wraps an I/O or workbook-write failure with the pipeline
// stage that produced it ("setup", "io", "stage", "finalize", or
// "workbook").
type StageError struct {
	Stage string
	Table string // table name, empty if not table-specific
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s stage, table %q: %v", e.Stage, e.Table, e.Err)
	}
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	return e.Err
}

// newStageError creates a new StageError
func newStageError(stage, table string, err error) *StageError {
	return &StageError{Stage: stage, Table: table, Err: err}
}
