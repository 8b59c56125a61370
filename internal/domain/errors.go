package domain

import "errors"

var (
	ErrUnknownQuality = errors.New("unknown quality mode")
	ErrHistoryIndex   = errors.New("history index out of range")
)
