package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation        = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrExtractionEmpty   = errors.New("extraction returned no text")
	ErrStorage           = errors.New("blob store failure")
	ErrRPC               = errors.New("ledger rpc failure")
	ErrExternalModel     = errors.New("external model failure")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrTemporary         = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
