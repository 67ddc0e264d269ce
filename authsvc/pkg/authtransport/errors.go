package authtransport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ichigozero/taskapi/authsvc"
	"github.com/ichigozero/taskapi/usersvc"
	"github.com/ichigozero/taskapi/validation"
)

// Machine readable failure codes carried in every error body.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeMissingToken       = "missing_token"
	CodeMalformedToken     = "malformed_token"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
	CodeUserNotFound       = "user_not_found"
	CodeValidationFailed   = "validation_failed"
	CodeStoreUnavailable   = "store_unavailable"
	CodeNotFound           = "not_found"
	CodeBadRequest         = "bad_request"
	CodeInternal           = "internal"
)

// ErrorResponse is the JSON body of every failed request. Store and internal
// failures carry a generic message; the detail only reaches the logs.
type ErrorResponse struct {
	Message string              `json:"message"`
	Code    string              `json:"code"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ErrorEncoder writes failures of the auth service and of the request
// authorizer. Other transports fall back to it for errors they don't own.
func ErrorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	status, resp := err2code(err)
	WriteError(w, status, resp)
}

// WriteError writes resp as a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func err2code(err error) (int, ErrorResponse) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Message: verrs.Error(),
			Code:    CodeValidationFailed,
			Errors:  verrs.Fields(),
		}
	}

	switch {
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return http.StatusUnauthorized, ErrorResponse{Message: "Invalid credentials", Code: CodeInvalidCredentials}
	case errors.Is(err, authsvc.ErrTokenMissing), errors.Is(err, authsvc.ErrUserIDContextMissing):
		return http.StatusUnauthorized, ErrorResponse{Message: "Missing token", Code: CodeMissingToken}
	case errors.Is(err, authsvc.ErrTokenMalformed):
		return http.StatusUnauthorized, ErrorResponse{Message: "Malformed token", Code: CodeMalformedToken}
	case errors.Is(err, authsvc.ErrTokenBadSignature):
		return http.StatusUnauthorized, ErrorResponse{Message: "Invalid token", Code: CodeInvalidToken}
	case errors.Is(err, authsvc.ErrTokenExpired):
		return http.StatusUnauthorized, ErrorResponse{Message: "Signature has expired", Code: CodeExpiredToken}
	case errors.Is(err, authsvc.ErrUserNotFound):
		return http.StatusUnauthorized, ErrorResponse{Message: "Invalid token", Code: CodeUserNotFound}
	case errors.Is(err, usersvc.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrorResponse{Message: "Service unavailable", Code: CodeStoreUnavailable}
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, ErrorResponse{Message: "Bad request", Code: CodeBadRequest}
	}
	return http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: CodeInternal}
}

// DecodeError reads an error body written by ErrorEncoder and maps its code
// back to the matching error. Server side failures (5xx) come back as err so
// load balancers and circuit breakers see them; anything else is returned as
// failed, the business error of an otherwise healthy call.
func DecodeError(r *http.Response) (failed error, err error) {
	var resp ErrorResponse
	if decodeErr := json.NewDecoder(r.Body).Decode(&resp); decodeErr != nil {
		resp = ErrorResponse{Message: r.Status}
	}

	e := code2err(resp)
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, e
	}
	return e, nil
}

func code2err(resp ErrorResponse) error {
	switch resp.Code {
	case CodeInvalidCredentials:
		return authsvc.ErrInvalidCredentials
	case CodeMissingToken:
		return authsvc.ErrTokenMissing
	case CodeMalformedToken:
		return authsvc.ErrTokenMalformed
	case CodeInvalidToken:
		return authsvc.ErrTokenBadSignature
	case CodeExpiredToken:
		return authsvc.ErrTokenExpired
	case CodeUserNotFound:
		return authsvc.ErrUserNotFound
	case CodeValidationFailed:
		return validation.FromFields(resp.Errors)
	case CodeStoreUnavailable:
		return usersvc.ErrStoreUnavailable
	case CodeBadRequest:
		return ErrBadRequest
	}
	return &RemoteError{Code: resp.Code, Message: resp.Message}
}

// RemoteError is a failure code this package doesn't know. Other transports
// translate their own codes from it.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
