package errors

// SQLSTATE codes used by the planning layer.
const (
	SuccessfulCompletion = "00000"

	// Class 0A — Feature Not Supported
	FeatureNotSupported = "0A000"

	// Class 42 — Syntax Error or Access Rule Violation
	AnalysisError   = "42000"
	SyntaxError     = "42601"
	UndefinedColumn = "42703"
	UndefinedTable  = "42P01"
	AmbiguousColumn = "42702"

	// Class XX — Internal Error
	InternalError = "XX000"
)
