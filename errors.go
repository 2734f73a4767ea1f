package tablift

import "errors"

// Common errors used throughout the tablift package
var (
	// Configuration errors
	ErrConfigValidation = errors.New("configuration validation failed")
	ErrUnknownDialect   = errors.New("unknown dialect")

	// Compiler errors. Blank input is a contract violation, not a
	// degradable formula issue.
	ErrEmptyFormula   = errors.New("formula text must not be empty")
	ErrEmptyFieldName = errors.New("field name must not be empty")

	// Workbook errors
	ErrWorkbookRead = errors.New("failed to read workbook")
	ErrNoDatasource = errors.New("no datasource found in workbook")

	// View generation errors
	ErrNoCompiledFields = errors.New("no compiled fields to render")
)
