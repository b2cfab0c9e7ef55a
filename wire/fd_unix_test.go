//go:build unix

package wire

import (
	"errors"
	"io"
	"os"
	"testing"
)

func TestBufferPassesDuplicatedFd(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	var b Buffer
	key := b.StartMessage(1, 0)
	if err := b.SendFd(Fd(w.Fd())); err != nil {
		t.Fatalf("send fd: %v", err)
	}
	if err := b.Commit(key); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// The stream owns a duplicate; closing the original must not affect it.
	if err := w.Close(); err != nil {
		t.Fatalf("close original: %v", err)
	}

	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	f, err := msg.Args.ReadFile()
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if _, err := f.Write([]byte("ping")); err != nil {
		t.Fatalf("write via received fd: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close received: %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	if string(got) != "ping" {
		t.Fatalf("unexpected pipe contents: %q", got)
	}
}

func TestBufferDiscardClosesPendingFds(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	var b Buffer
	b.StartMessage(1, 0)
	if err := b.SendFd(Fd(w.Fd())); err != nil {
		t.Fatalf("send fd: %v", err)
	}
	b.StartMessage(1, 1)
	if err := w.Close(); err != nil {
		t.Fatalf("close original: %v", err)
	}
	if fds := b.TakeFds(); len(fds) != 0 {
		t.Fatalf("discarded message leaked fds: %v", fds)
	}
	// Every write end is closed, so the reader sees EOF.
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unexpected data: %q", got)
	}
}

func TestCloseReleasesFdsLeftByFailedDecode(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	var b Buffer
	key := b.StartMessage(1, 0)
	if err := b.SendOptionalString(nil); err != nil {
		t.Fatalf("send string: %v", err)
	}
	if err := b.SendFd(Fd(w.Fd())); err != nil {
		t.Fatalf("send fd: %v", err)
	}
	if err := b.Commit(key); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close original: %v", err)
	}

	msg, err := b.Next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	// Decoding stops at the missing string, before the descriptor is taken.
	if _, err := Required(msg.Args.ReadOptionalString()); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected ErrMissingArgument, got %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("close buffer: %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read pipe: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("unexpected data: %q", got)
	}
}
