package command

import "errors"

var (
	ErrMalformed      = errors.New("malformed record")
	ErrUnknownCommand = errors.New("could not parse command")
)
