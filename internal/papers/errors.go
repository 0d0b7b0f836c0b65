package papers

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotFound         = errors.New("paper not found")
	ErrDuplicateTitle   = errors.New("paper with this title already exists")
	ErrAlreadyAdopted   = errors.New("paper already added")
	ErrProcessingFailed = errors.New("paper processing failed")
)
