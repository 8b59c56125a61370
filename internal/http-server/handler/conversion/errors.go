package conversion

import "errors"

var (
	ErrNoFiles       = errors.New("no files in request")
	ErrInvalidIndex  = errors.New("invalid history index")
	ErrBatchTooLarge = errors.New("upload batch too large")
)
