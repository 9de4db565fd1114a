package entities

import "errors"

// Domain errors
var (
	// Input errors
	ErrEmptyAudioPath = errors.New("audio path is empty")
	ErrNoChunks       = errors.New("cannot build index from empty chunk list")
	ErrEmptyQuestion  = errors.New("question is empty")
	ErrInvalidTopK    = errors.New("top_k must be positive")
	ErrInvalidID      = errors.New("invalid meeting id")
)
