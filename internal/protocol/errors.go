package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedInput is returned for an unrecognized discriminator
	ErrUnsupportedInput = errors.New("unsupported input")

	// ErrMalformedInput is returned for input that can be neither parsed nor treated as text
	ErrMalformedInput = errors.New("malformed input")
)

// UnsupportedInputError carries the unrecognized discriminator and the input that had it
type UnsupportedInputError struct {
	Discriminator string
	Input         string
}

func (e *UnsupportedInputError) Error() string {
	return fmt.Sprintf("unsupported discriminator type: %s (input: %s)", e.Discriminator, e.Input)
}

// Is matches ErrUnsupportedInput
func (e *UnsupportedInputError) Is(target error) bool {
	return target == ErrUnsupportedInput
}

// MalformedInputError describes structurally unusable input
type MalformedInputError struct {
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed input: %s: %v", e.Reason, e.Err)
	}
	return "malformed input: " + e.Reason
}

// Is matches ErrMalformedInput
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Message is the text placed in an ERROR envelope for err
func Message(err error) string {
	return "Error processing input: " + err.Error()
}
