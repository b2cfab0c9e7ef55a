package wire

import "os"

// Cursor reads the arguments of one incoming message in declaration order.
type Cursor interface {
	ReadInt() (int32, error)
	ReadUint() (uint32, error)
	ReadFixed() (Fixed, error)
	// ReadOptionalString returns nil for a null string.
	ReadOptionalString() (*string, error)
	ReadArray() ([]byte, error)
	// ReadFile takes ownership of the next queued descriptor.
	ReadFile() (*os.File, error)
	// ReadOptionalObject returns nil for the null object.
	ReadOptionalObject() (*Id, error)
	ReadNewId() (NewId, error)
}

// MessageKey identifies the message under construction on a Stream.
type MessageKey uint64

// Stream builds outgoing messages. A message only becomes visible to the peer
// once Commit succeeds; a message that is abandoned or fails to commit leaves
// no trace on the transport.
type Stream interface {
	StartMessage(object Id, opcode uint16) MessageKey
	SendInt(v int32) error
	SendUint(v uint32) error
	SendFixed(v Fixed) error
	SendString(v string) error
	SendOptionalString(v *string) error
	SendArray(v []byte) error
	SendFd(v Fd) error
	SendObject(v Id) error
	SendOptionalObject(v *Id) error
	SendNewId(v NewId) error
	Commit(key MessageKey) error
}

// Message is one incoming request addressed to an object.
type Message struct {
	Object Id
	Opcode uint16
	Args   Cursor
}

// Required unwraps an optional decode result, failing with ErrMissingArgument
// when the value is absent.
func Required[V any](v *V, err error) (V, error) {
	var zero V
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, ErrMissingArgument
	}
	return *v, nil
}
