package core

import "errors"

var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrUnknownSlot         = errors.New("unknown table slot")
	ErrSelectionIncomplete = errors.New("column selection incomplete")
	ErrMissingColumn       = errors.New("missing column")
	ErrEmptyTable          = errors.New("empty table")
	ErrNoResults           = errors.New("no results to export")
	ErrUnsupportedFormat   = errors.New("unsupported export format")
	ErrEmptyFile           = errors.New("empty file")
	ErrBadHeader           = errors.New("duplicate or blank header")
	ErrEmptyLookupValue    = errors.New("lookup value required")
	ErrNoMatch             = errors.New("no match found")
)
