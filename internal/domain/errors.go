package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrUnknownCategory  = errors.New("categoría desconocida")
	ErrIncompleteKey    = errors.New("clave de categoría incompleta")
	ErrNonNumeric       = errors.New("valor no numérico")
	ErrNegativeQuantity = errors.New("cantidad negativa no permitida")
	ErrImmutableField   = errors.New("el campo no es editable")
	ErrDuplicate        = errors.New("registro duplicado")
)
