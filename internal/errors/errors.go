package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinels used across the service. Callers attach them with
// NewError(...).Mark(ErrX) and test for them with errors.Is.
var (
	ErrNotFound         = New(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = New(ErrCodeAlreadyExists, "resource already exists")
	ErrVersionConflict  = New(ErrCodeVersionConflict, "version conflict")
	ErrValidation       = New(ErrCodeValidation, "validation error")
	ErrInvalidOperation = New(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied = New(ErrCodePermissionDenied, "permission denied")
	ErrUnauthorized     = New(ErrCodeUnauthorized, "unauthorized")
	ErrHTTPClient       = New(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = New(ErrCodeDatabase, "database error")
	ErrSystem           = New(ErrCodeSystemError, "system error")

	// payment gateway and reconciliation
	ErrGatewayUnavailable  = New(ErrCodeGatewayUnavailable, "payment gateway unavailable")
	ErrGatewayRejected     = New(ErrCodeGatewayRejected, "payment gateway rejected the request")
	ErrTransactionNotFound = New(ErrCodeTransactionNotFound, "transaction not found at gateway")
	ErrPaymentNotFound     = New(ErrCodePaymentNotFound, "payment not found")
	ErrSignatureInvalid    = New(ErrCodeSignatureInvalid, "webhook signature invalid")
	ErrStorageConflict     = New(ErrCodeStorageConflict, "storage conflict")
	ErrRateLimited         = New(ErrCodeRateLimited, "too many requests")

	// evaluated in order, the first match wins
	statusCodes = []struct {
		err    error
		status int
	}{
		{ErrSignatureInvalid, http.StatusUnauthorized},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrStorageConflict, http.StatusConflict},
		{ErrGatewayUnavailable, http.StatusServiceUnavailable},
		{ErrGatewayRejected, http.StatusUnprocessableEntity},
		{ErrTransactionNotFound, http.StatusNotFound},
		{ErrPaymentNotFound, http.StatusNotFound},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrVersionConflict, http.StatusConflict},
		{ErrValidation, http.StatusBadRequest},
		{ErrInvalidOperation, http.StatusBadRequest},
		{ErrPermissionDenied, http.StatusForbidden},
		{ErrHTTPClient, http.StatusInternalServerError},
		{ErrDatabase, http.StatusInternalServerError},
		{ErrSystem, http.StatusInternalServerError},
	}
)

const (
	ErrCodeHTTPClient          = "http_client_error"
	ErrCodeSystemError         = "system_error"
	ErrCodeNotFound            = "not_found"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeVersionConflict     = "version_conflict"
	ErrCodeValidation          = "validation_error"
	ErrCodeInvalidOperation    = "invalid_operation"
	ErrCodePermissionDenied    = "permission_denied"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeDatabase            = "database_error"
	ErrCodeGatewayUnavailable  = "gateway_unavailable"
	ErrCodeGatewayRejected     = "gateway_rejected"
	ErrCodeTransactionNotFound = "transaction_not_found"
	ErrCodePaymentNotFound     = "payment_not_found"
	ErrCodeSignatureInvalid    = "signature_invalid"
	ErrCodeStorageConflict     = "storage_conflict"
	ErrCodeRateLimited         = "rate_limited"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is matches on the error code so wrapped copies compare equal to the sentinel
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func New(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

// IsNotFound reports any not-found flavour, including missing payments
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrPaymentNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

func IsGatewayUnavailable(err error) bool {
	return errors.Is(err, ErrGatewayUnavailable)
}

func IsGatewayRejected(err error) bool {
	return errors.Is(err, ErrGatewayRejected)
}

func IsTransactionNotFound(err error) bool {
	return errors.Is(err, ErrTransactionNotFound)
}

func IsSignatureInvalid(err error) bool {
	return errors.Is(err, ErrSignatureInvalid)
}

func IsStorageConflict(err error) bool {
	return errors.Is(err, ErrStorageConflict)
}

// IsRetryableStorage reports errors raised by the storage layer that a fresh
// transaction attempt can resolve.
func IsRetryableStorage(err error) bool {
	return errors.Is(err, ErrDatabase) ||
		errors.Is(err, ErrVersionConflict) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrStorageConflict)
}

func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.err) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}
