package pipeline

import (
	"context"
	"errors"

	"entitymatch/internal"
	"entitymatch/internal/config"
	"entitymatch/internal/document"
)

var (
	ErrContainerNotFound     = errors.New("container not found")
	ErrItemsNotFound         = errors.New("no candidate items found")
	ErrElementNotFound       = errors.New("element not found")
	ErrFieldExtraction       = errors.New("field extraction failed")
	ErrRequiredFieldMissing  = errors.New("required field missing")
	ErrActionElementNotFound = errors.New("action element not found")
	ErrActionExecution       = errors.New("action failed")
)

// kindOf maps an error onto the result taxonomy.
func kindOf(err error) internal.ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContainerNotFound):
		return internal.KindContainerNotFound
	case errors.Is(err, ErrItemsNotFound):
		return internal.KindItemsNotFound
	case errors.Is(err, ErrRequiredFieldMissing):
		return internal.KindRequiredFieldMissing
	case errors.Is(err, ErrFieldExtraction), errors.Is(err, ErrElementNotFound):
		return internal.KindFieldExtraction
	case errors.Is(err, ErrActionElementNotFound):
		return internal.KindActionElementNotFound
	case errors.Is(err, ErrActionExecution):
		return internal.KindActionExecution
	case errors.Is(err, config.ErrInvalidOptions), errors.Is(err, document.ErrInvalidSelector):
		return internal.KindInvalidOptions
	default:
		return internal.KindInternal
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
