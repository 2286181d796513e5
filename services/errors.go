package services

import (
	"errors"
	"fmt"
)

// Erros sentinela compartilhados pelos serviços. Os handlers mapeiam cada
// classe para um status HTTP distinto (400, 404, 401, 409).
var (
	ErrValidation   = errors.New("dados inválidos")
	ErrNotFound     = errors.New("registro não encontrado")
	ErrUnauthorized = errors.New("não autorizado")
)

// ConflictError indica uma operação recusada por registros dependentes,
// carregando a contagem que bloqueou a operação.
type ConflictError struct {
	Count   int64
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewValidationError cria um erro de validação com mensagem própria
func NewValidationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError cria um erro de não-encontrado com mensagem própria
func NewNotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}
