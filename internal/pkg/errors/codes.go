package errors

import (
	"fmt"
	"net/http"
)

// Code represents an error code with HTTP status and message
type Code struct {
	Code    int    // Business error code
	Status  int    // HTTP status code
	Message string // Error message
}

// Error codes for different modules
const (
	// Success
	Success = 0

	// Common errors (1000-1999)
	ErrInternalServer  = 1000
	ErrInvalidParams   = 1001
	ErrNotFound        = 1002
	ErrUnauthorized    = 1003
	ErrForbidden       = 1004
	ErrConflict        = 1005
	ErrTooManyRequests = 1006
	ErrBadRequest      = 1007
	ErrServiceUnavail  = 1008

	// Auth errors (2000-2999)
	ErrAuthInvalidToken = 2000
	ErrAuthTokenExpired = 2001
	ErrAuthNoSession    = 2002

	// User errors (3000-3999)
	ErrUserNotFound = 3000

	// File errors (4000-4999)
	ErrFileNotFound      = 4000
	ErrFileInvalidParams = 4001
	ErrFileUnauthorized  = 4002
	ErrFileStorageFailed = 4003
	ErrFileTooLarge      = 4004
	ErrFileQuotaExceeded = 4005
	ErrFileUploadFailed  = 4006
	ErrFileIncomplete    = 4007
)

// codeMap maps error codes to their details
var codeMap = map[int]Code{
	Success: {Success, http.StatusOK, "Success"},

	// Common errors
	ErrInternalServer:  {ErrInternalServer, http.StatusInternalServerError, "Internal server error"},
	ErrInvalidParams:   {ErrInvalidParams, http.StatusBadRequest, "Invalid parameters"},
	ErrNotFound:        {ErrNotFound, http.StatusNotFound, "Resource not found"},
	ErrUnauthorized:    {ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	ErrForbidden:       {ErrForbidden, http.StatusForbidden, "Forbidden"},
	ErrConflict:        {ErrConflict, http.StatusConflict, "Resource conflict"},
	ErrTooManyRequests: {ErrTooManyRequests, http.StatusTooManyRequests, "Too many requests"},
	ErrBadRequest:      {ErrBadRequest, http.StatusBadRequest, "Bad request"},
	ErrServiceUnavail:  {ErrServiceUnavail, http.StatusServiceUnavailable, "Service unavailable"},

	// Auth errors
	ErrAuthInvalidToken: {ErrAuthInvalidToken, http.StatusUnauthorized, "Invalid or expired session"},
	ErrAuthTokenExpired: {ErrAuthTokenExpired, http.StatusUnauthorized, "Session expired"},
	ErrAuthNoSession:    {ErrAuthNoSession, http.StatusUnauthorized, "No session"},

	// User errors
	ErrUserNotFound: {ErrUserNotFound, http.StatusNotFound, "User not found"},

	// File errors
	ErrFileNotFound:      {ErrFileNotFound, http.StatusNotFound, "File not found"},
	ErrFileInvalidParams: {ErrFileInvalidParams, http.StatusBadRequest, "Invalid file parameters"},
	ErrFileUnauthorized:  {ErrFileUnauthorized, http.StatusForbidden, "Unauthorized access to file"},
	ErrFileStorageFailed: {ErrFileStorageFailed, http.StatusInternalServerError, "Storage operation failed"},
	ErrFileTooLarge:      {ErrFileTooLarge, http.StatusBadRequest, "File size exceeds limit"},
	ErrFileQuotaExceeded: {ErrFileQuotaExceeded, http.StatusForbidden, "Storage quota exceeded"},
	ErrFileUploadFailed:  {ErrFileUploadFailed, http.StatusInternalServerError, "File upload failed"},
	ErrFileIncomplete:    {ErrFileIncomplete, http.StatusConflict, "File upload is not complete"},
}

// GetCode returns the Code for a given error code
func GetCode(code int) Code {
	if c, ok := codeMap[code]; ok {
		return c
	}
	return codeMap[ErrInternalServer]
}

// GetHTTPStatus returns HTTP status for a given error code
func GetHTTPStatus(code int) int {
	return GetCode(code).Status
}

// GetMessage returns the message for a given error code
func GetMessage(code int) string {
	return GetCode(code).Message
}

// FormatError formats an error message with optional details
func FormatError(code int, details ...string) string {
	msg := GetMessage(code)
	if len(details) > 0 && details[0] != "" {
		return fmt.Sprintf("%s: %s", msg, details[0])
	}
	return msg
}
