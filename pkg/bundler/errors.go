package bundler

import (
	"errors"
	"fmt"
)

var (
	ErrPointerNotFound = errors.New("pointer does not resolve")
	ErrCircularRef     = errors.New("circular $ref")
	ErrInvalidRef      = errors.New("invalid $ref")
	ErrNoLoader        = errors.New("no loader configured")
)

// ResolutionError is returned when a $ref cannot be resolved.
// Path is the JSON Pointer of the object holding the $ref.
type ResolutionError struct {
	Ref  string
	Path string
	Err  error
}

func (e *ResolutionError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("resolving $ref %q at %s: %v", e.Ref, path, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// InputError is returned when a document cannot be loaded or decoded.
type InputError struct {
	Location string
	Err      error
}

func (e *InputError) Error() string {
	location := e.Location
	if location == "" {
		location = "<root>"
	}
	return fmt.Sprintf("loading %s: %v", location, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }
