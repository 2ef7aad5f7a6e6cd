package symexpr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the symexpr package.
// Use errors.Is to check: errors.Is(err, symexpr.ErrDivisionByZero)
var (
	ErrConstruction         = errors.New("symexpr: invalid term")
	ErrUnboundVariable      = errors.New("symexpr: unbound variable")
	ErrDivisionByZero       = errors.New("symexpr: division by zero")
	ErrDomain               = errors.New("symexpr: argument outside domain")
	ErrUnsupportedOperation = errors.New("symexpr: unsupported operation")
	ErrDepthExceeded        = errors.New("symexpr: expression too deep")
	ErrTooLarge             = errors.New("symexpr: expression too large")
	ErrInvalidDocument      = errors.New("symexpr: invalid expression document")
	ErrInvalidPrecision     = errors.New("symexpr: precision must be positive")
)

// UnboundVariableError names the variable that had no binding.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnboundVariable.Error(), e.Name)
}

func (e *UnboundVariableError) Is(target error) bool { return target == ErrUnboundVariable }
