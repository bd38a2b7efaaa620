package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied = new(ErrCodePermissionDenied, "permission denied")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// Billing specific error classes. These are kept distinct because the
	// operator response to each is different: a gateway failure means no money
	// moved, a payment recording failure means money moved but the ledger write
	// failed, and a scheduling failure means the ledger is correct but future
	// billing cadence was lost.
	ErrGatewayFailure          = new(ErrCodeGatewayFailure, "payment gateway rejected the request")
	ErrPaymentRecordingFailure = new(ErrCodePaymentRecordingFailure, "payment succeeded but recording failed")
	ErrSchedulingFailure       = new(ErrCodeSchedulingFailure, "billing schedule could not be updated")
	ErrWalletChargeFailure     = new(ErrCodeWalletChargeFailure, "wallet charge failed")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrNotFound:                http.StatusNotFound,
		ErrAlreadyExists:           http.StatusConflict,
		ErrValidation:              http.StatusBadRequest,
		ErrInvalidOperation:        http.StatusBadRequest,
		ErrPermissionDenied:        http.StatusForbidden,
		ErrDatabase:                http.StatusInternalServerError,
		ErrSystem:                  http.StatusInternalServerError,
		ErrGatewayFailure:          http.StatusPaymentRequired,
		ErrPaymentRecordingFailure: http.StatusInternalServerError,
		ErrSchedulingFailure:       http.StatusInternalServerError,
		ErrWalletChargeFailure:     http.StatusBadRequest,
	}
)

const (
	ErrCodeSystemError             = "system_error"
	ErrCodeNotFound                = "not_found"
	ErrCodeAlreadyExists           = "already_exists"
	ErrCodeValidation              = "validation_error"
	ErrCodeInvalidOperation        = "invalid_operation"
	ErrCodePermissionDenied        = "permission_denied"
	ErrCodeDatabase                = "database_error"
	ErrCodeGatewayFailure          = "gateway_failure"
	ErrCodePaymentRecordingFailure = "payment_recording_failure"
	ErrCodeSchedulingFailure       = "scheduling_failure"
	ErrCodeWalletChargeFailure     = "wallet_charge_failure"
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

// Is implements error matching for wrapped errors
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

// new creates a new InternalError
func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsGatewayFailure checks if an error came from the payment processor
func IsGatewayFailure(err error) bool {
	return errors.Is(err, ErrGatewayFailure)
}

// IsPaymentRecordingFailure checks if a charge succeeded but the ledger write failed
func IsPaymentRecordingFailure(err error) bool {
	return errors.Is(err, ErrPaymentRecordingFailure)
}

// IsSchedulingFailure checks if a renewal job could not be scheduled
func IsSchedulingFailure(err error) bool {
	return errors.Is(err, ErrSchedulingFailure)
}

// IsWalletChargeFailure checks if a wallet debit was refused
func IsWalletChargeFailure(err error) bool {
	return errors.Is(err, ErrWalletChargeFailure)
}

// IsDatabase checks if an error is a database error
func IsDatabase(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// HTTPStatusFromErr returns the http status code for an error
func HTTPStatusFromErr(err error) int {
	for sentinel, status := range statusCodeMap {
		if errors.Is(err, sentinel) {
			return status
		}
	}
	return http.StatusInternalServerError
}
