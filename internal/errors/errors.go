package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

type Code codes.Code

const (
	CodeInvalidArgument = Code(codes.InvalidArgument)
	CodeNotFound        = Code(codes.NotFound)
	CodeAlreadyExists   = Code(codes.AlreadyExists)
	CodeInternal        = Code(codes.Internal)
	CodeUnauthenticated = Code(codes.Unauthenticated)
	CodeUnavailable     = Code(codes.Unavailable)
)

var http2code = map[int]Code{
	http.StatusBadRequest:          CodeInvalidArgument,
	http.StatusUnauthorized:        CodeUnauthenticated,
	http.StatusForbidden:           CodeUnauthenticated,
	http.StatusNotFound:            CodeNotFound,
	http.StatusConflict:            CodeAlreadyExists,
	http.StatusInternalServerError: CodeInternal,
	http.StatusServiceUnavailable:  CodeUnavailable,
}

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: codes.Code(code).String(),
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

// FromHTTPStatus classifies a backend response status into an Error.
// Statuses without a mapping are treated as internal.
func FromHTTPStatus(status int, opts ...Option) *Error {
	c, ok := http2code[status]
	if !ok {
		c = CodeInternal
	}

	return New(c, opts...)
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}
