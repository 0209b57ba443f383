// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
// Code is the machine-readable error kind; Details carries structured data
// such as thresholds or pending counts.
type APIError struct {
	Detail  string         `json:"detail"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// WithCode returns an envelope tagged with an error kind.
func WithCode(code, msg string, details map[string]any) *APIError {
	if len(details) == 0 {
		details = nil
	}
	return &APIError{Detail: msg, Code: code, Details: details}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Code: "validation", Fields: fields}
}
