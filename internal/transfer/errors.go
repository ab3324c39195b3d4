package transfer

import "errors"

var (
	ErrMissingColumn     = errors.New("required column is missing")
	ErrEmptyFile         = errors.New("file has no header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrTooManyRows       = errors.New("file exceeds the row limit")
	ErrInvalidFile       = errors.New("file could not be parsed")
	ErrUnknownEncoding   = errors.New("unsupported text encoding")
)
