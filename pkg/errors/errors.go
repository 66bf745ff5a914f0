package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"
	CodeRateLimit    Code = "RATE_LIMITED"

	CodeInsufficientStock    Code = "INSUFFICIENT_STOCK"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeUnverifiedWebhook    Code = "UNVERIFIED_WEBHOOK"
	CodeGatewayUnavailable   Code = "GATEWAY_UNAVAILABLE"
	CodePricingInconsistency Code = "PRICING_INCONSISTENCY"
)

// Metadata is how a Code surfaces over HTTP. Details are only echoed to
// clients when DetailsAllowed is set.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

const (
	terminal  = false
	retryable = true
	opaque    = false
	detailed  = true
)

var metadataByCode = map[Code]Metadata{
	CodeValidation:   {http.StatusBadRequest, terminal, "validation failed", detailed},
	CodeUnauthorized: {http.StatusUnauthorized, terminal, "authentication required", opaque},
	CodeForbidden:    {http.StatusForbidden, terminal, "access denied", opaque},
	CodeNotFound:     {http.StatusNotFound, terminal, "resource not found", opaque},
	CodeConflict:     {http.StatusConflict, terminal, "conflict detected", opaque},
	CodeIdempotency:  {http.StatusConflict, terminal, "idempotency key reused", detailed},
	CodeInternal:     {http.StatusInternalServerError, retryable, "internal server error", opaque},
	CodeDependency:   {http.StatusServiceUnavailable, retryable, "dependency unavailable", detailed},
	CodeRateLimit:    {http.StatusTooManyRequests, retryable, "too many requests", opaque},

	CodeInsufficientStock:    {http.StatusConflict, terminal, "insufficient stock", detailed},
	CodeInvalidTransition:    {http.StatusConflict, terminal, "invalid order status transition", detailed},
	CodeUnverifiedWebhook:    {http.StatusUnauthorized, retryable, "webhook could not be verified", opaque},
	CodeGatewayUnavailable:   {http.StatusServiceUnavailable, retryable, "payment gateway unavailable", detailed},
	CodePricingInconsistency: {http.StatusUnprocessableEntity, terminal, "order total does not match gateway constraints", detailed},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Retryable reports whether a client may retry the request that produced
// err unchanged. Untyped errors count as internal.
func Retryable(err error) bool {
	return MetadataFor(CodeOf(err)).Retryable
}

// CodeOf returns the outermost code in err's chain, or CodeInternal.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.code
	}
	return CodeInternal
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

// Error includes the cause so logs keep the full chain; clients only ever
// see the public message.
func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the first *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error in err's chain carries
// code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
