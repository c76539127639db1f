package domain

import "fmt"

// ConfigError reports invalid run configuration: weight vectors that do not
// sum to one, missing paths, inconsistent rule sets. Configuration errors are
// fatal and abort the run before any processing.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "config: " + e.Msg }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// GeometryError reports CRS, reprojection, or clip failures. Fatal for the
// affected raster or forecast day only; the orchestrator skips the unit and
// continues.
type GeometryError struct {
	Op  string // "reproject", "resample", "clip", "align", "combine"
	Msg string
	Err error
}

func (e *GeometryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geometry: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("geometry: %s: %s", e.Op, e.Msg)
}

func (e *GeometryError) Unwrap() error { return e.Err }

// Geometryf builds a GeometryError for the given operation.
func Geometryf(op, format string, args ...any) error {
	return &GeometryError{Op: op, Msg: fmt.Sprintf(format, args...)}
}

// DataFormatError reports unparsable rainfall CSV columns or dates. Fatal for
// the affected day's rainfall processing only.
type DataFormatError struct {
	Msg string
	Err error
}

func (e *DataFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data format: %s: %v", e.Msg, e.Err)
	}
	return "data format: " + e.Msg
}

func (e *DataFormatError) Unwrap() error { return e.Err }

// DataFormatf builds a DataFormatError from a format string.
func DataFormatf(format string, args ...any) error {
	return &DataFormatError{Msg: fmt.Sprintf(format, args...)}
}
