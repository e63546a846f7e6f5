package shardfuse

import "fmt"

// Code is a machine-readable error code.
type Code string

const (
	// CodeInvalidIdentifier: bad identifier length, rarity letter or number.
	CodeInvalidIdentifier Code = "INVALID_IDENTIFIER"
	// CodeInvalidTag: category, skill, family or effect tag outside its domain.
	CodeInvalidTag Code = "INVALID_TAG"
	// CodeInvalidRequirement: empty requirement or unknown filter value.
	CodeInvalidRequirement Code = "INVALID_REQUIREMENT"
	// CodeInvalidFuseRequirementFormat: special fusion declared in an unknown shape.
	CodeInvalidFuseRequirementFormat Code = "INVALID_FUSE_REQUIREMENT_FORMAT"
	// CodeMissingPrice: a computation needed a price the snapshot lacks.
	CodeMissingPrice Code = "MISSING_PRICE"
	// CodeUnknownItemReference: a rule or lookup names an item not in the catalog.
	CodeUnknownItemReference Code = "UNKNOWN_ITEM_REFERENCE"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrInvalidIdentifier            = &Error{Code: CodeInvalidIdentifier}
	ErrInvalidTag                   = &Error{Code: CodeInvalidTag}
	ErrInvalidRequirement           = &Error{Code: CodeInvalidRequirement}
	ErrInvalidFuseRequirementFormat = &Error{Code: CodeInvalidFuseRequirementFormat}
	ErrMissingPrice                 = &Error{Code: CodeMissingPrice}
	ErrUnknownItemReference         = &Error{Code: CodeUnknownItemReference}
)

// Error is a data validation failure. Any of these aborts the computation
// for the snapshot being processed.
type Error struct {
	Code     Code
	Message  string
	Metadata map[string]string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates an error with a formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError creates an error that wraps an underlying cause.
func WrapError(code Code, cause error, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithMetadata attaches key/value context and returns e.
func (e *Error) WithMetadata(kv ...string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string, len(kv)/2)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Metadata[kv[i]] = kv[i+1]
	}
	return e
}
