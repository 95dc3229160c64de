package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCatalog means no poster is flagged for rotation. It selects the
	// guidance message rather than signalling a failure.
	ErrEmptyCatalog = errors.New("no posters in rotation")

	// ErrMalformedNotification marks push messages that could not be parsed
	ErrMalformedNotification = errors.New("malformed notification")
)

// FetchError wraps a network failure talking to the backend or Plex
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is or wraps a *FetchError
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
