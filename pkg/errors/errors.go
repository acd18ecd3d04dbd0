package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/worktime/worktime-backend/pkg/i18n"
)

// Standard error types
var (
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("forbidden")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("resource conflict")
	ErrInternal   = errors.New("internal server error")
	ErrValidation = errors.New("validation error")
)

// Error codes surfaced to API callers
const (
	CodeNotFound               = "NOT_FOUND"
	CodeBadRequest             = "BAD_REQUEST"
	CodeConflict               = "CONFLICT"
	CodeInternal               = "INTERNAL_ERROR"
	CodeValidation             = "VALIDATION_ERROR"
	CodeEmployeeNotFound       = "EMPLOYEE_NOT_FOUND"
	CodeRecordNotFound         = "RECORD_NOT_FOUND"
	CodeInvalidTimeFormat      = "INVALID_TIME_FORMAT"
	CodeInvalidTimeRange       = "INVALID_TIME_RANGE"
	CodeInvalidDateFormat      = "INVALID_DATE_FORMAT"
	CodeInvalidIdentifier      = "INVALID_IDENTIFIER"
	CodeDateLocked             = "DATE_LOCKED"
	CodeRecordLocked           = "RECORD_LOCKED"
	CodeLockThresholdMovedBack = "LOCK_THRESHOLD_MOVED_BACK"
	CodeNoFieldsProvided       = "NO_FIELDS_PROVIDED"
	CodeExceedsMaximumDuration = "EXCEEDS_MAXIMUM_DURATION"
	CodeSchemaOperationFailed  = "SCHEMA_OPERATION_FAILED"
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	MessageKey string            `json:"-"` // i18n key for localization
	Params     map[string]string `json:"-"` // Parameters for i18n interpolation
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Localize returns a localized version of the error message
func (e *AppError) Localize(ctx context.Context) string {
	if e.MessageKey == "" {
		return e.Message
	}
	return i18n.TFromContext(ctx, e.MessageKey, e.Params)
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// newKeyed builds an AppError whose default message comes from the English catalog
func newKeyed(base error, code, key string, status int, params map[string]string) *AppError {
	return &AppError{
		Err:        base,
		Code:       code,
		Message:    i18n.T(key, params),
		MessageKey: key,
		Params:     params,
		StatusCode: status,
	}
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		MessageKey: "errors.not_found",
		Params:     map[string]string{"resource": resource},
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       CodeBadRequest,
		Message:    message,
		MessageKey: "errors.bad_request",
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       CodeConflict,
		Message:    message,
		MessageKey: "errors.conflict",
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       CodeInternal,
		Message:    message,
		MessageKey: "errors.internal",
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       CodeValidation,
		Message:    "validation failed",
		MessageKey: "errors.validation_failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// Work record error kinds

func EmployeeNotFound(employeeID int64) *AppError {
	return newKeyed(ErrNotFound, CodeEmployeeNotFound, "errors.employee_not_found", http.StatusNotFound,
		map[string]string{"id": fmt.Sprint(employeeID)})
}

func RecordNotFound(recordID int64) *AppError {
	return newKeyed(ErrNotFound, CodeRecordNotFound, "errors.record_not_found", http.StatusNotFound,
		map[string]string{"id": fmt.Sprint(recordID)})
}

func InvalidTimeFormat(value string) *AppError {
	return newKeyed(ErrBadRequest, CodeInvalidTimeFormat, "errors.invalid_time_format", http.StatusBadRequest,
		map[string]string{"value": value})
}

func InvalidTimeRange(value string) *AppError {
	return newKeyed(ErrBadRequest, CodeInvalidTimeRange, "errors.invalid_time_range", http.StatusBadRequest,
		map[string]string{"value": value})
}

func InvalidDateFormat(value string) *AppError {
	return newKeyed(ErrBadRequest, CodeInvalidDateFormat, "errors.invalid_date_format", http.StatusBadRequest,
		map[string]string{"value": value})
}

func InvalidIdentifier(value string) *AppError {
	return newKeyed(ErrBadRequest, CodeInvalidIdentifier, "errors.invalid_identifier", http.StatusBadRequest,
		map[string]string{"value": value})
}

func DateLocked(date, lockedUntil string) *AppError {
	return newKeyed(ErrForbidden, CodeDateLocked, "errors.date_locked", http.StatusForbidden,
		map[string]string{"date": date, "locked_until": lockedUntil})
}

func RecordLocked(recordID int64) *AppError {
	return newKeyed(ErrForbidden, CodeRecordLocked, "errors.record_locked", http.StatusForbidden,
		map[string]string{"id": fmt.Sprint(recordID)})
}

// LockThresholdMovedBack rejects clearing or lowering locked_until, which would unlock records
func LockThresholdMovedBack(current, requested string) *AppError {
	return newKeyed(ErrForbidden, CodeLockThresholdMovedBack, "errors.lock_threshold_moved_back", http.StatusForbidden,
		map[string]string{"current": current, "requested": requested})
}

func NoFieldsProvided() *AppError {
	return newKeyed(ErrBadRequest, CodeNoFieldsProvided, "errors.no_fields_provided", http.StatusBadRequest, nil)
}

func ExceedsMaximumDuration(hours string) *AppError {
	return newKeyed(ErrBadRequest, CodeExceedsMaximumDuration, "errors.exceeds_maximum_duration", http.StatusBadRequest,
		map[string]string{"hours": hours})
}

// SchemaOperationFailed wraps a failed CREATE/ALTER/DROP statement. There is no
// safe automatic retry, the caller owns compensation.
func SchemaOperationFailed(operation, table string, cause error) *AppError {
	e := newKeyed(ErrInternal, CodeSchemaOperationFailed, "errors.schema_operation_failed", http.StatusInternalServerError,
		map[string]string{"operation": operation, "table": table})
	if cause != nil {
		e.Err = errors.Join(ErrInternal, cause)
	}
	return e
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// HasCode reports whether err is an AppError carrying the given code
func HasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
