package shared

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifica um erro da aplicação para a camada HTTP
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindForbidden
	KindConflict
)

// Status devolve o código HTTP correspondente ao tipo de erro
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// AppError carrega uma mensagem segura para o cliente e, opcionalmente, a causa interna
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(kind Kind, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation cria um erro de validação (400)
func Validation(format string, args ...any) error {
	return newAppError(KindValidation, format, args...)
}

// NotFound cria um erro de registro inexistente (404)
func NotFound(format string, args ...any) error {
	return newAppError(KindNotFound, format, args...)
}

// Forbidden cria um erro de permissão (403)
func Forbidden(format string, args ...any) error {
	return newAppError(KindForbidden, format, args...)
}

// Conflict cria um erro de conflito de estado (409)
func Conflict(format string, args ...any) error {
	return newAppError(KindConflict, format, args...)
}

// Internal cria um erro 500 cuja mensagem pode ser exibida ao cliente
func Internal(format string, args ...any) error {
	return newAppError(KindInternal, format, args...)
}

// KindOf devolve o tipo do primeiro AppError na cadeia, ou KindInternal
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}
