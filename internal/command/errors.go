package command

import "errors"

var (
	// ErrMalformedInput is returned when a line cannot be tokenized, e.g. unbalanced quotes.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnparsableCommand is returned when a line matches no command template.
	ErrUnparsableCommand = errors.New("unparsable command")

	// ErrUnsupportedType is returned for an issue type outside the synonym table.
	ErrUnsupportedType = errors.New("unsupported issue type")

	// ErrUnsupportedStatus is returned for a target status outside the synonym table.
	ErrUnsupportedStatus = errors.New("unsupported status")
)
