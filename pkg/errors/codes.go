package errors

import "net/http"

// ErrorCode is a string representation of a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeUnauthorized       ErrorCode = "COMMON_003"
	ErrCodeForbidden          ErrorCode = "COMMON_004"
	ErrCodeNotFound           ErrorCode = "COMMON_005"
	ErrCodeConflict           ErrorCode = "COMMON_006"
	ErrCodeTimeout            ErrorCode = "COMMON_007"
	ErrCodeValidation         ErrorCode = "COMMON_008"
	ErrCodeSerialization      ErrorCode = "COMMON_009"
	ErrCodeDatabaseError      ErrorCode = "COMMON_010"
	ErrCodeCacheError         ErrorCode = "COMMON_011"
	ErrCodeExternalService    ErrorCode = "COMMON_012"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_013"
)

// File module error codes.
const (
	ErrCodeFileNotFound          ErrorCode = "FILE_001"
	ErrCodeFileAlreadyExists     ErrorCode = "FILE_002"
	ErrCodeFileInvalidTransition ErrorCode = "FILE_003"
	ErrCodeFileInvalidPriority   ErrorCode = "FILE_004"
	ErrCodeFileTypeNotAllowed    ErrorCode = "FILE_005"
	ErrCodeSectionNotFound       ErrorCode = "FILE_006"
)

// SLA module error codes.
const (
	ErrCodeMalformedDeadlineState ErrorCode = "SLA_001"
	ErrCodeSweepAlreadyRunning    ErrorCode = "SLA_002"
)

// Classifier collaborator error codes.
const (
	ErrCodeClassifierUnavailable ErrorCode = "CLS_001"
	ErrCodeClassifierMalformed   ErrorCode = "CLS_002"
)

// Date extraction error codes.
const (
	ErrCodeDateUnparseable ErrorCode = "DATE_001"
)

// Ledger module error codes.
const (
	ErrCodeAlertNotFound ErrorCode = "LGR_001"
)

// CodeOK marks the absence of an error when a code must be reported.
const CodeOK = ErrorCode("OK")

// errorCodeHTTPStatus maps ErrorCodes to HTTP status codes.
var errorCodeHTTPStatus = map[ErrorCode]int{
	ErrCodeInternal:           http.StatusInternalServerError,
	ErrCodeBadRequest:         http.StatusBadRequest,
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeNotFound:           http.StatusNotFound,
	ErrCodeConflict:           http.StatusConflict,
	ErrCodeTimeout:            http.StatusGatewayTimeout,
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeSerialization:      http.StatusInternalServerError,
	ErrCodeDatabaseError:      http.StatusInternalServerError,
	ErrCodeCacheError:         http.StatusInternalServerError,
	ErrCodeExternalService:    http.StatusBadGateway,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,

	ErrCodeFileNotFound:          http.StatusNotFound,
	ErrCodeFileAlreadyExists:     http.StatusConflict,
	ErrCodeFileInvalidTransition: http.StatusConflict,
	ErrCodeFileInvalidPriority:   http.StatusBadRequest,
	ErrCodeFileTypeNotAllowed:    http.StatusBadRequest,
	ErrCodeSectionNotFound:       http.StatusNotFound,

	ErrCodeMalformedDeadlineState: http.StatusInternalServerError,
	ErrCodeSweepAlreadyRunning:    http.StatusConflict,

	ErrCodeClassifierUnavailable: http.StatusServiceUnavailable,
	ErrCodeClassifierMalformed:   http.StatusBadGateway,

	ErrCodeDateUnparseable: http.StatusUnprocessableEntity,

	ErrCodeAlertNotFound: http.StatusNotFound,
}

// HTTPStatusForCode returns the HTTP status code for an ErrorCode.
func HTTPStatusForCode(code ErrorCode) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// IsClientError returns true if the ErrorCode corresponds to a 4xx HTTP status.
func IsClientError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 400 && status < 500
}

// IsServerError returns true if the ErrorCode corresponds to a 5xx HTTP status.
func IsServerError(code ErrorCode) bool {
	status := HTTPStatusForCode(code)
	return status >= 500 && status < 600
}
