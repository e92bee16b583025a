package handler

const (
	// RootPath is the root path of the API route group.
	RootPath = "/api/"

	// AdminPath is the root path of the administrative API.
	AdminPath = RootPath + "admin/"

	// ErrNilACDFatalLogMsg is used if app, cfg or the auth service pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or auth service is nil"

	// ErrInvalidID is returned when the provided id parameter is invalid or non-positive.
	ErrInvalidID = "Invalid id"
	// ErrInvalidBody is returned when the request body is not valid JSON for the endpoint.
	ErrInvalidBody = "Invalid request body"
	// ErrValidationPrefix prefixes validation error messages.
	ErrValidationPrefix = "Validation failed: "

	// DefaultPageSize for list endpoints.
	DefaultPageSize = 100
	// MaxPageSize clamps the page size upper bound.
	MaxPageSize = 1000
)
