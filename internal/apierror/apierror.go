// Package apierror provides the standardized error envelope for the API.
// All errors returned to clients go through this package so responses stay
// consistent and internal details (stack traces, DB errors) never leak.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation error", Fields: fields}
}

// VoidBlockError is returned when a close is blocked by unapproved voided
// sales. It carries the full summary so the client can present the blocking
// sales instead of a generic failure.
type VoidBlockError struct {
	Detail string `json:"detail"`
	Voids  any    `json:"voids"`
}

func NewVoidBlock(msg string, voids any) *VoidBlockError {
	return &VoidBlockError{Detail: msg, Voids: voids}
}
