package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	HeaderLen = 8
	// MaxMessageSize is the largest 4-byte aligned size the 16-bit size field
	// can carry.
	MaxMessageSize = 0xfffc
)

var ErrShortHeader = errors.New("wire: short message header")

// Header is the fixed message header. Size counts the header itself.
type Header struct {
	Object Id
	Opcode uint16
	Size   uint16
}

// Frame is one complete message without its file descriptors.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: MaxMessageSize - HeaderLen}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if err := checkSize(h.Size); err != nil {
		return Frame{}, err
	}

	payloadLen := int(h.Size) - HeaderLen
	if payloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrMessageTooLarge
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return Frame{}, ErrTruncated
			}
			return Frame{}, err
		}
	}
	return Frame{Header: h, Payload: payload}, nil
}

func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	payloadLen := len(f.Payload)
	if payloadLen > limits.MaxPayloadBytes || payloadLen > MaxMessageSize-HeaderLen {
		return ErrMessageTooLarge
	}
	if payloadLen%4 != 0 {
		return ErrInvalidSize
	}

	h := f.Header
	h.Size = uint16(HeaderLen + payloadLen)

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if payloadLen > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	putHeader(buf, h)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderLen {
		return Header{}, fmt.Errorf("wire: invalid header length: %d", len(b))
	}
	word := binary.LittleEndian.Uint32(b[4:8])
	return Header{
		Object: Id(binary.LittleEndian.Uint32(b[0:4])),
		Opcode: uint16(word),
		Size:   uint16(word >> 16),
	}, nil
}

func putHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], uint32(h.Object))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(h.Size)<<16|uint32(h.Opcode))
}

func checkSize(size uint16) error {
	if int(size) < HeaderLen || size%4 != 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return nil
}
