package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the numeric result code carried in acknowledgements and HTTP error bodies.
type ErrorCode int

const (
	CodeSuccess             ErrorCode = 0
	CodeServerError         ErrorCode = 1
	CodeInvalidParams       ErrorCode = 2
	CodeRateLimited         ErrorCode = 4
	CodeInvalidAccessToken  ErrorCode = 1001
	CodeInvalidRefreshToken ErrorCode = 1002
	CodeAlreadyInRoom       ErrorCode = 10001
	CodeRoomNotFound        ErrorCode = 10002
	CodeNotRoomOwner        ErrorCode = 10003
	CodeNotRoomMember       ErrorCode = 10004
	CodeNoStateChange       ErrorCode = 10005
	CodeRoomAlreadyExists   ErrorCode = 10006
	CodeAlreadyWaiting      ErrorCode = 10007
	CodeNotWaiting          ErrorCode = 10008
	CodeJoinRequestNotFound ErrorCode = 10009
	CodeParticipantGone     ErrorCode = 10010
)

var defaultMessages = map[ErrorCode]string{
	CodeSuccess:             "Success",
	CodeServerError:         "Server Error",
	CodeInvalidParams:       "Invalid params",
	CodeRateLimited:         "Rate limit exceeded",
	CodeInvalidAccessToken:  "Invalid access token",
	CodeInvalidRefreshToken: "Invalid refresh token",
	CodeAlreadyInRoom:       "Already joined room",
	CodeRoomNotFound:        "Room not found",
	CodeNotRoomOwner:        "Not room owner",
	CodeNotRoomMember:       "Not room member",
	CodeNoStateChange:       "Requested same state",
	CodeRoomAlreadyExists:   "Room already exists",
	CodeAlreadyWaiting:      "Already waiting for a room",
	CodeNotWaiting:          "Not waiting for a room",
	CodeJoinRequestNotFound: "Join request not found",
	CodeParticipantGone:     "Participant not connected",
}

// Message returns the canonical text for a code.
func (c ErrorCode) Message() string {
	if msg, ok := defaultMessages[c]; ok {
		return msg
	}
	return defaultMessages[CodeServerError]
}

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

func NewInvalidParamsError(message string) *AppError {
	return NewAppError(CodeInvalidParams, message, http.StatusBadRequest)
}

func NewUnauthorizedError(message string) *AppError {
	return NewAppError(CodeInvalidAccessToken, message, http.StatusUnauthorized)
}

func NewRateLimitError() *AppError {
	return NewAppError(CodeRateLimited, CodeRateLimited.Message(), http.StatusTooManyRequests)
}

func NewInternalError(cause error) *AppError {
	return WrapError(cause, CodeServerError, CodeServerError.Message(), http.StatusInternalServerError)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// Mapping ties a sentinel error to the code reported for it.
type Mapping struct {
	Err        error
	Code       ErrorCode
	HTTPStatus int
}

// Classify converts err into an AppError using the first mapping whose sentinel
// matches. Errors that match nothing become a ServerError whose message does
// not leak the cause.
func Classify(err error, mappings []Mapping) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	for _, m := range mappings {
		if errors.Is(err, m.Err) {
			return WrapError(err, m.Code, err.Error(), m.HTTPStatus)
		}
	}
	return NewInternalError(err)
}
