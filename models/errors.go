package models

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidInput   = errors.New("invalid input")
)

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
}

func NewUnauthorizedError() ErrorResponse {
	return ErrorResponse{Error: "unauthorized"}
}

func NewInternalServerError() ErrorResponse {
	return ErrorResponse{Error: "internal server error"}
}
