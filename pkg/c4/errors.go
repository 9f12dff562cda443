package c4

import "errors"

var (
	// ErrInvalidID is returned when a string is not a canonical C4 ID.
	ErrInvalidID = errors.New("invalid c4 id")

	// ErrDigestLength is returned when raw digest bytes are not exactly DigestSize long.
	ErrDigestLength = errors.New("invalid digest length")
)

// ReadError is returned when a file cannot be opened or read while hashing.
type ReadError struct {
	Path string
	Err  error
}

func (e ReadError) Error() string {
	if e.Err == nil {
		return "read failure: " + e.Path
	}
	return "read failure: " + e.Path + ": " + e.Err.Error()
}

func (e ReadError) Unwrap() error {
	return e.Err
}
