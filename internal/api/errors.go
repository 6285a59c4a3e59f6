package api

import (
	"errors"
	"fmt"
)

var (
	ErrWrongPassword    = errors.New("wrong password")
	ErrMutationRejected = errors.New("mutation rejected")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrInvalidServerURL = errors.New("invalid server URL")
)

// RejectedError описывает отказ сервера создать ссылку; Message показывается пользователю как есть
type RejectedError struct {
	Status  int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("rejected with status %d: %s", e.Status, e.Message)
}

// Is позволяет сравнивать с ErrMutationRejected через errors.Is
func (e *RejectedError) Is(target error) bool {
	return target == ErrMutationRejected
}

// StatusError описывает неуспешный ответ, текст которого не показывается пользователю
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// Is позволяет сравнивать с ErrUnexpectedStatus через errors.Is
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}
