package shared

import (
	"errors"
	"fmt"
)

// Kind groups errors by how callers should react to them.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindResolution  Kind = "resolution"
	KindStock       Kind = "stock"
	KindArithmetic  Kind = "arithmetic"
	KindConsistency Kind = "consistency"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
)

// Code identifies a specific failure reported to callers.
type Code string

const (
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeInvalidLine       Code = "INVALID_LINE"
	CodeItemNotFound      Code = "ITEM_NOT_FOUND"
	CodeVendorUnresolved  Code = "VENDOR_UNRESOLVED"
	CodeOutOfStock        Code = "OUT_OF_STOCK"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeZeroSettlement    Code = "ZERO_SETTLEMENT"
	CodeLedgerMismatch    Code = "LEDGER_MISMATCH"
	CodeLotOverflow       Code = "LOT_OVERFLOW"
	CodeNotFound          Code = "NOT_FOUND"
	CodeDuplicate         Code = "DUPLICATE"
)

// Error is the structured error surfaced by billing operations. Two errors
// are considered equal by errors.Is when their codes match.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code so copies produced by With and Wrap still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e whose message carries the formatted detail.
func (e *Error) With(format string, args ...any) *Error {
	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Message: e.Message + ": " + fmt.Sprintf(format, args...),
		Fields:  e.Fields,
		Err:     e.Err,
	}
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Fields: e.Fields, Err: cause}
}

// WithFields returns a copy of e annotated with per-field problems.
func (e *Error) WithFields(fields map[string]string) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Fields: fields, Err: e.Err}
}

var (
	// ErrInvalidInput rejects a malformed request before any side effect.
	ErrInvalidInput = &Error{Kind: KindValidation, Code: CodeInvalidInput, Message: "invalid input"}
	// ErrInvalidLine rejects a line item missing required fields.
	ErrInvalidLine = &Error{Kind: KindValidation, Code: CodeInvalidLine, Message: "invalid line"}
	// ErrItemNotFound indicates no item matched the supplied name.
	ErrItemNotFound = &Error{Kind: KindResolution, Code: CodeItemNotFound, Message: "item not found"}
	// ErrVendorUnresolved indicates the vendor id or shortcut could not be resolved.
	ErrVendorUnresolved = &Error{Kind: KindResolution, Code: CodeVendorUnresolved, Message: "vendor unresolved"}
	// ErrOutOfStock indicates no lot with remaining stock matched.
	ErrOutOfStock = &Error{Kind: KindStock, Code: CodeOutOfStock, Message: "out of stock"}
	// ErrInsufficientStock indicates the selected lot could not cover the deduction.
	ErrInsufficientStock = &Error{Kind: KindStock, Code: CodeInsufficientStock, Message: "insufficient stock"}
	// ErrZeroSettlement rejects a watak whose proceeds round to zero.
	ErrZeroSettlement = &Error{Kind: KindArithmetic, Code: CodeZeroSettlement, Message: "settlement has no proceeds"}
	// ErrLedgerMismatch reports stored balances that do not reconcile with history.
	ErrLedgerMismatch = &Error{Kind: KindConsistency, Code: CodeLedgerMismatch, Message: "ledger does not reconcile"}
	// ErrLotOverflow reports a release that would push a lot above its received quantity.
	ErrLotOverflow = &Error{Kind: KindConsistency, Code: CodeLotOverflow, Message: "lot release exceeds quantity received"}
	// ErrNotFound indicates resource not found.
	ErrNotFound = &Error{Kind: KindNotFound, Code: CodeNotFound, Message: "not found"}
	// ErrDuplicate indicates a uniqueness violation.
	ErrDuplicate = &Error{Kind: KindConflict, Code: CodeDuplicate, Message: "duplicate entry"}
)

// KindOf returns the taxonomy kind of err, or "" when err is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of err, or "" when err is not a *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
