package usecase

import (
	"errors"
	"fmt"
)

type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// ValidationErrorは422で返すフィールド別メッセージの集まり。
// Messageは最初に追加されたメッセージ（レスポンスのトップレベルに出す）。
type ValidationError struct {
	Message string
	Errors  map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("422: %s", e.Message)
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// fieldErrorsはメッセージを追加順に集める（最初の1件をMessageに使う）
type fieldErrors struct {
	first string
	m     map[string][]string
}

func newFieldErrors() *fieldErrors {
	return &fieldErrors{m: map[string][]string{}}
}

func (f *fieldErrors) add(key string, msg string) {
	if f.first == "" {
		f.first = msg
	}
	f.m[key] = append(f.m[key], msg)
}

func (f *fieldErrors) any() bool {
	return len(f.m) > 0
}

func (f *fieldErrors) toError() error {
	return &ValidationError{
		Message: f.first,
		Errors:  f.m,
	}
}
