package main

import "github.com/pkg/errors"

// Error kinds. Callers match them with errors.Is; every returned error wraps
// exactly one of these with context.
var (
	// ErrFormat: malformed bank, record, or field value.
	ErrFormat = errors.New("format error")
	// ErrIndex: patch index outside the bank.
	ErrIndex = errors.New("index error")
	// ErrRange: MIDI note outside 0..127.
	ErrRange = errors.New("range error")
	// ErrConfig: invalid render or mapping settings.
	ErrConfig = errors.New("config error")
)
