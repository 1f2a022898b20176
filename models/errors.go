package models

import "fmt"

// ConfigError reports a missing or invalid flag or environment setting.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ResolutionError reports an artifact that could not be found or materialised locally.
type ResolutionError struct {
	Identifier string
	Err        error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Identifier, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// ParseError reports malformed CSV or an unusable value in a required column.
// Row is 1-based over data rows; zero means the error is not tied to a row.
type ParseError struct {
	Path   string
	Column string
	Row    int
	Err    error
}

func (e *ParseError) Error() string {
	where := e.Path
	if where == "" {
		where = "table"
	}
	switch {
	case e.Row > 0:
		return fmt.Sprintf("parse %s: row %d column %q: %v", where, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("parse %s: column %q: %v", where, e.Column, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", where, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
