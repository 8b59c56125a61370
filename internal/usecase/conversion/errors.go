package conversion

import "errors"

var (
	ErrEmptyBatch     = errors.New("no files uploaded")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrEmptyHistory   = errors.New("history is empty")
	ErrCorruptPayload = errors.New("stored document is corrupt")
)
