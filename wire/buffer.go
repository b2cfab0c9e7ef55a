package wire

import (
	"encoding/binary"
	"io"
	"os"
	"strings"
)

// Buffer is an in-memory Stream with a loopback read side. Committed messages
// queue up as framed bytes plus a side queue of descriptors; Next decodes them
// back in order, and WriteTo drains the bytes to a transport.
//
// Descriptors travel in one queue shared by every message, as on a unix
// socket. After a message fails to decode the queue is out of step, so the
// connection must be closed with Close rather than read further.
//
// The zero value is ready to use. A Buffer is not safe for concurrent use.
type Buffer struct {
	data    []byte
	fds     []int
	pending *pendingMessage
	lastKey MessageKey
	limits  Limits
}

type pendingMessage struct {
	key    MessageKey
	header Header
	body   []byte
	fds    []int
}

var (
	_ Stream      = (*Buffer)(nil)
	_ io.WriterTo = (*Buffer)(nil)
	_ Cursor      = (*reader)(nil)
)

func NewBuffer(limits Limits) *Buffer {
	return &Buffer{limits: limits}
}

func (b *Buffer) maxPayload() int {
	if b.limits.MaxPayloadBytes <= 0 || b.limits.MaxPayloadBytes > MaxMessageSize-HeaderLen {
		return MaxMessageSize - HeaderLen
	}
	return b.limits.MaxPayloadBytes
}

// StartMessage begins a new message, discarding any message still in progress.
func (b *Buffer) StartMessage(object Id, opcode uint16) MessageKey {
	b.discard()
	b.lastKey++
	b.pending = &pendingMessage{
		key:    b.lastKey,
		header: Header{Object: object, Opcode: opcode},
	}
	return b.lastKey
}

func (b *Buffer) SendInt(v int32) error {
	return b.putWord(uint32(v))
}

func (b *Buffer) SendUint(v uint32) error {
	return b.putWord(v)
}

func (b *Buffer) SendFixed(v Fixed) error {
	return b.putWord(uint32(v))
}

func (b *Buffer) SendString(v string) error {
	if b.pending == nil {
		return ErrNoMessage
	}
	if strings.IndexByte(v, 0) >= 0 {
		return ErrInvalidString
	}
	p := b.pending
	p.body = binary.LittleEndian.AppendUint32(p.body, uint32(len(v)+1))
	p.body = append(p.body, v...)
	p.body = append(p.body, 0)
	p.body = pad(p.body)
	return nil
}

func (b *Buffer) SendOptionalString(v *string) error {
	if v == nil {
		return b.putWord(0)
	}
	return b.SendString(*v)
}

func (b *Buffer) SendArray(v []byte) error {
	if b.pending == nil {
		return ErrNoMessage
	}
	p := b.pending
	p.body = binary.LittleEndian.AppendUint32(p.body, uint32(len(v)))
	p.body = append(p.body, v...)
	p.body = pad(p.body)
	return nil
}

// SendFd queues a duplicate of v. The caller keeps ownership of v.
func (b *Buffer) SendFd(v Fd) error {
	if b.pending == nil {
		return ErrNoMessage
	}
	fd, err := dupFd(int(v))
	if err != nil {
		return err
	}
	b.pending.fds = append(b.pending.fds, fd)
	return nil
}

func (b *Buffer) SendObject(v Id) error {
	return b.putWord(uint32(v))
}

func (b *Buffer) SendOptionalObject(v *Id) error {
	if v == nil {
		return b.putWord(0)
	}
	return b.putWord(uint32(*v))
}

func (b *Buffer) SendNewId(v NewId) error {
	if err := b.SendString(v.Interface); err != nil {
		return err
	}
	if err := b.putWord(v.Version); err != nil {
		return err
	}
	return b.putWord(uint32(v.Id))
}

// Commit publishes the message identified by key. An oversized message is
// dropped along with its descriptors.
func (b *Buffer) Commit(key MessageKey) error {
	if b.pending == nil {
		return ErrNoMessage
	}
	if b.pending.key != key {
		return ErrStaleKey
	}
	p := b.pending
	if len(p.body) > b.maxPayload() {
		b.discard()
		return ErrMessageTooLarge
	}

	h := p.header
	h.Size = uint16(HeaderLen + len(p.body))
	var hdr [HeaderLen]byte
	putHeader(hdr[:], h)
	b.data = append(b.data, hdr[:]...)
	b.data = append(b.data, p.body...)
	b.fds = append(b.fds, p.fds...)
	b.pending = nil
	return nil
}

// Feed appends raw incoming bytes and takes ownership of fds.
func (b *Buffer) Feed(data []byte, fds []int) {
	b.data = append(b.data, data...)
	b.fds = append(b.fds, fds...)
}

// Next decodes the oldest committed message. It returns io.EOF when the
// buffer is drained.
func (b *Buffer) Next() (Message, error) {
	if len(b.data) == 0 {
		return Message{}, io.EOF
	}
	if len(b.data) < HeaderLen {
		return Message{}, ErrTruncated
	}
	h, err := DecodeHeader(b.data[:HeaderLen])
	if err != nil {
		return Message{}, err
	}
	if err := checkSize(h.Size); err != nil {
		return Message{}, err
	}
	if int(h.Size) > len(b.data) {
		return Message{}, ErrTruncated
	}

	payload := make([]byte, int(h.Size)-HeaderLen)
	copy(payload, b.data[HeaderLen:h.Size])
	b.data = b.data[h.Size:]
	return Message{
		Object: h.Object,
		Opcode: h.Opcode,
		Args:   &reader{buf: b, data: payload},
	}, nil
}

// Len reports the number of committed bytes not yet read or written.
func (b *Buffer) Len() int {
	return len(b.data)
}

// WriteTo drains committed bytes to w. Descriptors stay queued; see TakeFds.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	if len(b.data) == 0 {
		return 0, nil
	}
	n, err := w.Write(b.data)
	b.data = b.data[n:]
	if err == nil && len(b.data) > 0 {
		err = io.ErrShortWrite
	}
	return int64(n), err
}

// TakeFds hands every queued descriptor to the caller.
func (b *Buffer) TakeFds() []int {
	fds := b.fds
	b.fds = nil
	return fds
}

// Close drops the pending message and closes every queued descriptor.
func (b *Buffer) Close() error {
	b.discard()
	for _, fd := range b.fds {
		closeFd(fd)
	}
	b.fds = nil
	b.data = nil
	return nil
}

func (b *Buffer) takeFd() (int, bool) {
	if len(b.fds) == 0 {
		return -1, false
	}
	fd := b.fds[0]
	b.fds = b.fds[1:]
	return fd, true
}

func (b *Buffer) discard() {
	if b.pending == nil {
		return
	}
	for _, fd := range b.pending.fds {
		closeFd(fd)
	}
	b.pending = nil
}

func (b *Buffer) putWord(v uint32) error {
	if b.pending == nil {
		return ErrNoMessage
	}
	b.pending.body = binary.LittleEndian.AppendUint32(b.pending.body, v)
	return nil
}

func pad(p []byte) []byte {
	for len(p)%4 != 0 {
		p = append(p, 0)
	}
	return p
}

// reader decodes the argument payload of one message.
type reader struct {
	buf  *Buffer
	data []byte
	off  int
}

func (r *reader) word() (uint32, error) {
	if len(r.data)-r.off < 4 {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *reader) blob(n uint32) ([]byte, error) {
	remaining := len(r.data) - r.off
	if uint64(n) > uint64(remaining) {
		return nil, ErrTruncated
	}
	padded := (int(n) + 3) &^ 3
	if padded > remaining {
		return nil, ErrTruncated
	}
	p := r.data[r.off : r.off+int(n)]
	r.off += padded
	return p, nil
}

func (r *reader) ReadInt() (int32, error) {
	v, err := r.word()
	return int32(v), err
}

func (r *reader) ReadUint() (uint32, error) {
	return r.word()
}

func (r *reader) ReadFixed() (Fixed, error) {
	v, err := r.word()
	return Fixed(int32(v)), err
}

func (r *reader) ReadOptionalString() (*string, error) {
	n, err := r.word()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	p, err := r.blob(n)
	if err != nil {
		return nil, err
	}
	if p[n-1] != 0 {
		return nil, ErrInvalidString
	}
	s := string(p[:n-1])
	return &s, nil
}

func (r *reader) ReadArray() ([]byte, error) {
	n, err := r.word()
	if err != nil {
		return nil, err
	}
	p, err := r.blob(n)
	if err != nil {
		return nil, err
	}
	return append([]byte{}, p...), nil
}

func (r *reader) ReadFile() (*os.File, error) {
	fd, ok := r.buf.takeFd()
	if !ok {
		return nil, ErrNoFd
	}
	return os.NewFile(uintptr(fd), "wire-fd"), nil
}

func (r *reader) ReadOptionalObject() (*Id, error) {
	v, err := r.word()
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return nil, nil
	}
	id := Id(v)
	return &id, nil
}

func (r *reader) ReadNewId() (NewId, error) {
	iface, err := Required(r.ReadOptionalString())
	if err != nil {
		return NewId{}, err
	}
	version, err := r.word()
	if err != nil {
		return NewId{}, err
	}
	id, err := r.word()
	if err != nil {
		return NewId{}, err
	}
	return NewId{Interface: iface, Version: version, Id: Id(id)}, nil
}
