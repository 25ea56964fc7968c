package protocol

import "errors"

var (
	ErrInvalidMagic        = errors.New("protocol: invalid magic")
	ErrUnsupportedVersion  = errors.New("protocol: unsupported version")
	ErrMessageTypeMismatch = errors.New("protocol: message type mismatch")
	ErrBufferOverflow      = errors.New("protocol: output buffer full")
	ErrInvalidValue        = errors.New("protocol: invalid field value")
)
