package domain

import (
	"errors"
	"fmt"
)

const (
	CodeMissingLogo        = "missing_logo"
	CodeMissingCompanyName = "missing_company_name"
	CodeMissingCompanyUIC  = "missing_company_uic"
	CodeInvalidItems       = "invalid_items"
	CodeFontMissing        = "font_missing"
	CodeLogoUnavailable    = "logo_unavailable"
	CodeStorage            = "storage_error"
	CodeRenderFailed       = "render_failed"
)

// Error is the typed failure returned by every public build operation.
type Error struct {
	Code    string
	Message string
	Err     error
}

// NewError builds an Error wrapping err (which may be nil).
func NewError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrMissingLogo        = NewError(CodeMissingLogo, "company logo is required", nil)
	ErrMissingCompanyName = NewError(CodeMissingCompanyName, "company legal name is required", nil)
	ErrMissingCompanyUIC  = NewError(CodeMissingCompanyUIC, "company registration number is required", nil)
	ErrInvalidItems       = NewError(CodeInvalidItems, "order items are malformed", nil)
	ErrFontMissing        = NewError(CodeFontMissing, "document font is not available", nil)
	ErrLogoUnavailable    = NewError(CodeLogoUnavailable, "company logo could not be loaded", nil)
	ErrStorage            = NewError(CodeStorage, "document could not be stored", nil)
	ErrRenderFailed       = NewError(CodeRenderFailed, "document could not be generated", nil)
)

// Code extracts the error code, or "" for foreign errors.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsPrecondition reports whether err is an input validation failure.
func IsPrecondition(err error) bool {
	switch Code(err) {
	case CodeMissingLogo, CodeMissingCompanyName, CodeMissingCompanyUIC, CodeInvalidItems:
		return true
	default:
		return false
	}
}
