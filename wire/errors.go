package wire

import "errors"

// Errors returned by generated dispatch code.
var (
	ErrInvalidOpcode   = errors.New("wire: invalid opcode")
	ErrInternal        = errors.New("wire: internal error")
	ErrMissingArgument = errors.New("wire: missing required argument")
)

// Errors returned by the reference buffer and framing.
var (
	ErrTruncated       = errors.New("wire: truncated data")
	ErrInvalidString   = errors.New("wire: invalid string")
	ErrInvalidSize     = errors.New("wire: invalid message size")
	ErrMessageTooLarge = errors.New("wire: message too large")
	ErrNoFd            = errors.New("wire: no file descriptor queued")
	ErrNoMessage       = errors.New("wire: no message started")
	ErrStaleKey        = errors.New("wire: stale message key")
	ErrFdUnsupported   = errors.New("wire: file descriptor passing unsupported")
	ErrObjectExists    = errors.New("wire: object id already in use")
	ErrUnknownObject   = errors.New("wire: unknown object")
)
