package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/danmuck/wlgen/internal/testutil/testlog"
)

func strPtr(s string) *string { return &s }
func idPtr(id Id) *Id         { return &id }

func TestBufferRoundTripAllArgumentKinds(t *testing.T) {
	testlog.Start(t)

	var b Buffer
	key := b.StartMessage(7, 3)
	steps := []error{
		b.SendInt(-42),
		b.SendUint(0xdeadbeef),
		b.SendFixed(FixedFromFloat(-1.5)),
		b.SendString("hello"),
		b.SendOptionalString(nil),
		b.SendOptionalString(strPtr("")),
		b.SendArray([]byte{1, 2, 3, 4, 5}),
		b.SendArray(nil),
		b.SendObject(9),
		b.SendOptionalObject(nil),
		b.SendOptionalObject(idPtr(11)),
		b.SendNewId(NewId{Interface: "wl_surface", Version: 4, Id: 12}),
	}
	for i, err := range steps {
		if err != nil {
			t.Fatalf("send step %d: %v", i, err)
		}
	}
	if err := b.Commit(key); err != nil {
		t.Fatalf("commit: %v", err)
	}

	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if msg.Object != 7 || msg.Opcode != 3 {
		t.Fatalf("header mismatch: object=%d opcode=%d", msg.Object, msg.Opcode)
	}
	c := msg.Args

	if v, err := c.ReadInt(); err != nil || v != -42 {
		t.Fatalf("int: got=%d err=%v", v, err)
	}
	if v, err := c.ReadUint(); err != nil || v != 0xdeadbeef {
		t.Fatalf("uint: got=%#x err=%v", v, err)
	}
	if v, err := c.ReadFixed(); err != nil || v.Float() != -1.5 {
		t.Fatalf("fixed: got=%v err=%v", v, err)
	}
	if v, err := Required(c.ReadOptionalString()); err != nil || v != "hello" {
		t.Fatalf("string: got=%q err=%v", v, err)
	}
	if v, err := c.ReadOptionalString(); err != nil || v != nil {
		t.Fatalf("null string: got=%v err=%v", v, err)
	}
	if v, err := c.ReadOptionalString(); err != nil || v == nil || *v != "" {
		t.Fatalf("empty string: got=%v err=%v", v, err)
	}
	if v, err := c.ReadArray(); err != nil || !bytes.Equal(v, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("array: got=%v err=%v", v, err)
	}
	if v, err := c.ReadArray(); err != nil || len(v) != 0 {
		t.Fatalf("empty array: got=%v err=%v", v, err)
	}
	if v, err := Required(c.ReadOptionalObject()); err != nil || v != 9 {
		t.Fatalf("object: got=%d err=%v", v, err)
	}
	if v, err := c.ReadOptionalObject(); err != nil || v != nil {
		t.Fatalf("null object: got=%v err=%v", v, err)
	}
	if v, err := c.ReadOptionalObject(); err != nil || v == nil || *v != 11 {
		t.Fatalf("optional object: got=%v err=%v", v, err)
	}
	want := NewId{Interface: "wl_surface", Version: 4, Id: 12}
	if v, err := c.ReadNewId(); err != nil || v != want {
		t.Fatalf("new_id: got=%+v err=%v", v, err)
	}

	if _, err := c.ReadUint(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated past end, got %v", err)
	}
	if _, err := b.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestBufferStringLayoutIsPaddedWithNul(t *testing.T) {
	var b Buffer
	key := b.StartMessage(1, 0)
	if err := b.SendString("abc"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := b.Commit(key); err != nil {
		t.Fatalf("commit: %v", err)
	}
	var out bytes.Buffer
	if _, err := b.WriteTo(&out); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := []byte{
		1, 0, 0, 0, // object
		0, 0, 16, 0, // opcode 0, size 16
		4, 0, 0, 0, // length with NUL
		'a', 'b', 'c', 0,
	}
	if !bytes.Equal(out.Bytes(), want) {
		t.Fatalf("layout mismatch:\n got=%v\nwant=%v", out.Bytes(), want)
	}
	if b.Len() != 0 {
		t.Fatalf("expected drained buffer, len=%d", b.Len())
	}
}

func TestBufferRequiredRejectsNull(t *testing.T) {
	var b Buffer
	key := b.StartMessage(1, 0)
	_ = b.SendOptionalString(nil)
	_ = b.SendOptionalObject(nil)
	if err := b.Commit(key); err != nil {
		t.Fatalf("commit: %v", err)
	}
	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := Required(msg.Args.ReadOptionalString()); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for string, got %v", err)
	}
	if _, err := Required(msg.Args.ReadOptionalObject()); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument for object, got %v", err)
	}
}

func TestBufferSendWithoutMessage(t *testing.T) {
	var b Buffer
	if err := b.SendUint(1); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage, got %v", err)
	}
	if err := b.Commit(1); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("expected ErrNoMessage on commit, got %v", err)
	}
}

func TestBufferStartMessageDiscardsPending(t *testing.T) {
	var b Buffer
	stale := b.StartMessage(1, 1)
	_ = b.SendUint(99)
	fresh := b.StartMessage(2, 5)
	if err := b.Commit(stale); !errors.Is(err, ErrStaleKey) {
		t.Fatalf("expected ErrStaleKey, got %v", err)
	}
	if err := b.Commit(fresh); err != nil {
		t.Fatalf("commit fresh: %v", err)
	}
	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if msg.Object != 2 || msg.Opcode != 5 {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if _, err := msg.Args.ReadUint(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("discarded argument leaked: %v", err)
	}
}

func TestBufferRejectsOversizedMessage(t *testing.T) {
	b := NewBuffer(Limits{MaxPayloadBytes: 8})
	key := b.StartMessage(1, 0)
	_ = b.SendArray(make([]byte, 16))
	if err := b.Commit(key); !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("oversized message must not be published")
	}
}

func TestBufferRejectsStringWithNul(t *testing.T) {
	var b Buffer
	b.StartMessage(1, 0)
	if err := b.SendString("a\x00b"); !errors.Is(err, ErrInvalidString) {
		t.Fatalf("expected ErrInvalidString, got %v", err)
	}
}

func TestBufferFeedDecodesExternalBytes(t *testing.T) {
	var out bytes.Buffer
	payload := []byte{5, 0, 0, 0, 'x', 'y', 'z', 'w', 0, 0, 0, 0}
	if err := WriteFrame(&out, Frame{Header: Header{Object: 3, Opcode: 1}, Payload: payload}, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	var b Buffer
	b.Feed(out.Bytes(), nil)
	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if v, err := Required(msg.Args.ReadOptionalString()); err != nil || v != "xyzw" {
		t.Fatalf("string: got=%q err=%v", v, err)
	}
}

func TestBufferMissingNulTerminator(t *testing.T) {
	var b Buffer
	raw := EncodeHeader(Header{Object: 1, Opcode: 0, Size: 16})
	raw = append(raw, 4, 0, 0, 0, 'a', 'b', 'c', 'd')
	b.Feed(raw, nil)
	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := msg.Args.ReadOptionalString(); !errors.Is(err, ErrInvalidString) {
		t.Fatalf("expected ErrInvalidString, got %v", err)
	}
}

func TestBufferTruncatedFrame(t *testing.T) {
	var b Buffer
	b.Feed(EncodeHeader(Header{Object: 1, Opcode: 0, Size: 12}), nil)
	if _, err := b.Next(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestBufferReadFileWithoutFd(t *testing.T) {
	var b Buffer
	key := b.StartMessage(1, 0)
	if err := b.Commit(key); err != nil {
		t.Fatalf("commit: %v", err)
	}
	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if _, err := msg.Args.ReadFile(); !errors.Is(err, ErrNoFd) {
		t.Fatalf("expected ErrNoFd, got %v", err)
	}
}
