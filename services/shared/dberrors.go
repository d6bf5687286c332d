package shared

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Códigos SQLSTATE tratados como erro de validação
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeNotNullViolation    = "23502"
	codeInvalidText         = "22P02"
	codeNumericOutOfRange   = "22003"
)

// TranslateDBError converte violações de constraint (pgx ou lib/pq) em erros de validação legíveis.
// Outros erros são devolvidos sem alteração.
func TranslateDBError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}

	code, constraint := sqlState(err)
	var message string
	switch code {
	case codeUniqueViolation:
		message = "duplicate value violates a unique constraint"
	case codeForeignKeyViolation:
		message = "invalid reference or record has dependent records"
	case codeCheckViolation:
		message = "value violates a constraint"
	case codeNotNullViolation:
		message = "required field is missing"
	case codeInvalidText, codeNumericOutOfRange:
		message = "invalid value"
	default:
		return err
	}

	if constraint != "" {
		message += " (" + constraint + ")"
	}
	return &AppError{Kind: KindValidation, Message: message, Err: err}
}

// IsForeignKeyViolation informa se o erro é uma violação de chave estrangeira
func IsForeignKeyViolation(err error) bool {
	code, _ := sqlState(err)
	return code == codeForeignKeyViolation
}

// IsUniqueViolation informa se o erro é uma violação de unicidade
func IsUniqueViolation(err error) bool {
	code, _ := sqlState(err)
	return code == codeUniqueViolation
}

func sqlState(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}
