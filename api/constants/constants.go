package constants

// Common error messages
const (
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrInvalidJSONShort   = "Invalid JSON"
	ErrInvalidRequestBody = "Invalid request body"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrSessionNotFound    = "mapping session not found"
	ErrAccountNotFound    = "account row not found in session"
	ErrMissingFile        = "Missing 'file' field"
	ErrDB                 = "DB error"
)

// Content types
const (
	ContentTypeHeader = "Content-Type"
	ContentTypeJSON   = "application/json"
)

// DateFormat is the wire format for statement dates.
const DateFormat = "2006-01-02"
