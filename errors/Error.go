// Package errors provides the coded error type used across minichain. Two errors match under
// Is when their codes are equal, anywhere in the wrapped chain, so callers compare against the
// Err* sentinels rather than messages.
package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

type Error struct {
	code       ERR
	message    string
	wrappedErr error
	data       ErrDataI
}

// Error renders "CODE (n): message[: wrapped][, data: ...]".
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "%s (%d): %s", e.code, int32(e.code), e.message)

	if e.wrappedErr != nil {
		fmt.Fprintf(&sb, ": %v", e.wrappedErr)
	}

	if e.data != nil {
		fmt.Fprintf(&sb, ", data:%s", e.data.Error())
	}

	return sb.String()
}

func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	var t *Error
	if ok := asError(target, &t); ok && t != nil && t.code == e.code {
		return true
	}

	if e.wrappedErr == nil {
		return false
	}

	return errors.Is(e.wrappedErr, target)
}

// asError is a non-recursive type check; errors.As would walk target's own chain.
func asError(err error, target **Error) bool {
	e, ok := err.(*Error)
	if ok {
		*target = e
	}

	return ok
}

// As assigns e to a **Error target, otherwise tries the attached data and then the wrapped
// error.
func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}

	if data, ok := e.data.(error); ok && errors.As(data, target) {
		return true
	}

	if e.wrappedErr == nil {
		return false
	}

	// a typed nil pointer stored as the wrapped error must not be dereferenced
	if v := reflect.ValueOf(e.wrappedErr); v.Kind() == reflect.Ptr && v.IsNil() {
		return false
	}

	return errors.As(e.wrappedErr, target)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Code() ERR {
	if e == nil {
		return ERR_UNKNOWN
	}

	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

func (e *Error) WrappedErr() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Data() ErrDataI {
	if e == nil {
		return nil
	}

	return e.data
}

// SetData attaches a key/value pair, for example the amounts behind an insufficient funds error.
func (e *Error) SetData(key string, value interface{}) {
	if e.data == nil {
		e.data = &ErrData{}
	}

	e.data.SetData(key, value)
}

func (e *Error) GetData(key string) interface{} {
	if e.data == nil {
		return nil
	}

	return e.data.GetData(key)
}

// New creates a coded error. The message is formatted with params; when the last param is an
// error it is not used for formatting but kept as the wrapped error.
func New(code ERR, message string, params ...interface{}) *Error {
	var wErr error

	if n := len(params); n > 0 {
		if err, ok := params[n-1].(error); ok {
			wErr = err
			params = params[:n-1]
		}
	}

	if _, known := ERR_name[int32(code)]; !known {
		return &Error{code: code, message: "invalid error code", wrappedErr: wErr}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	return &Error{code: code, message: message, wrappedErr: wErr}
}

func Join(errs ...error) error {
	return errors.Join(errs...)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// AsData reports whether any *Error in the chain carries data assignable to target.
func AsData(err error, target interface{}) bool {
	for {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}

		if e.data != nil && errors.As(e.data, target) {
			return true
		}

		if e.wrappedErr == nil {
			return false
		}

		err = e.wrappedErr
	}
}
