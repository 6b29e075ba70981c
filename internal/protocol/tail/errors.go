package tail

import (
	"errors"
	"fmt"
)

var (
	ErrReserved           = errors.New("tail: reserved code")
	ErrEscape             = errors.New("tail: escape code")
	ErrUnsupported        = errors.New("tail: unsupported message")
	ErrRoleMismatch       = errors.New("tail: tail identification not valid for role")
	ErrTailIDMismatch     = errors.New("tail: tail identification does not match message")
	ErrInvalidCombination = errors.New("tail: invalid field combination")
	ErrNilMessage         = errors.New("tail: nil message")
)

// FieldError reports a value that does not fit its declared bit width or
// range.
type FieldError struct {
	Field string
	Value uint64
	Width uint
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("tail: field %s value %d out of range for %d bits", e.Field, e.Value, e.Width)
}

func reserved(what string, code uint64) error {
	return fmt.Errorf("%w: %s 0x%x", ErrReserved, what, code)
}

func unsupported(what string, code uint64) error {
	return fmt.Errorf("%w: %s 0x%x", ErrUnsupported, what, code)
}
