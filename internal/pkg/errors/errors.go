package errors

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalid          = errors.New("invalid")
	ErrNotConfigured    = errors.New("not configured")
	ErrRetrieval        = errors.New("retrieval failed")
	ErrAnswerGeneration = errors.New("answer generation failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
