package tablift

// Severity classifies how much a diagnostic degrades a compiled field.
type Severity int

const (
	// SeverityWarning marks recoverable issues such as unknown functions.
	SeverityWarning Severity = iota
	// SeverityError marks issues that forced part of a formula into a fallback.
	SeverityError
)

// String returns the string representation of Severity
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic describes one issue found while compiling a formula.
// Diagnostics are facts attached to the result; they never abort the
// pipeline. Position is a byte offset into the original formula.
type Diagnostic struct {
	Severity Severity
	Message  string
	Position int
}

// String returns the string representation of Diagnostic
func (d Diagnostic) String() string {
	return d.Severity.String() + ": " + d.Message
}
