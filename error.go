package schedex

import "errors"

var (
	ErrInvalidArg = errors.New("invalid argument")
)
