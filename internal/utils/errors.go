package utils

import "fmt"

// AppError wraps an operation, the resource it touched, a human-facing
// message and the underlying error.
type AppError struct {
	Op   string
	Path string
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	prefix := e.Op
	if e.Path != "" {
		prefix = fmt.Sprintf("%s %s", e.Op, e.Path)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", prefix, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, path, msg string, err error) error {
	return &AppError{Op: op, Path: path, Msg: msg, Err: err}
}
