package compat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-test/deep"

	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/testutil/testlog"
)

func sample() *model.Protocol {
	return &model.Protocol{
		Name: "greeter",
		Interfaces: []model.Interface{{
			Name:     "greeter",
			Version:  1,
			Requests: []model.Request{{Name: "hello"}, {Name: "destroy"}},
			Events:   []model.Event{{Name: "greeting"}},
		}},
	}
}

func TestReadMissingIsEmpty(t *testing.T) {
	testlog.Start(t)
	lock, err := Read(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(lock.Protocols) != 0 {
		t.Fatalf("expected empty lock, got %v", lock.Protocols)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "wlgen.lock.json")
	lock := New()
	lock.Update(sample())
	if err := lock.Write(path); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if diff := deep.Equal(got, lock); diff != nil {
		t.Fatalf("round trip: %v", diff)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "lock.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := Read(path); !errors.Is(err, ErrLockFile) {
		t.Fatalf("expected ErrLockFile, got %v", err)
	}
}

func TestCheckAllowsAppend(t *testing.T) {
	testlog.Start(t)
	lock := New()
	lock.Update(sample())

	p := sample()
	p.Interfaces[0].Version = 2
	p.Interfaces[0].Requests = append(p.Interfaces[0].Requests, model.Request{Name: "wave"})
	p.Interfaces[0].Events = append(p.Interfaces[0].Events, model.Event{Name: "waved"})
	p.Interfaces = append(p.Interfaces, model.Interface{Name: "extra", Version: 1})
	if err := lock.Check(p); err != nil {
		t.Fatalf("append rejected: %v", err)
	}

	other := sample()
	other.Name = "unlocked"
	other.Interfaces[0].Requests = nil
	if err := lock.Check(other); err != nil {
		t.Fatalf("unknown protocol rejected: %v", err)
	}
}

func TestCheckRejectsBreakingChanges(t *testing.T) {
	testlog.Start(t)
	lock := New()
	lock.Update(sample())

	cases := []struct {
		name   string
		mutate func(p *model.Protocol)
		want   string
	}{
		{"reorder", func(p *model.Protocol) {
			r := p.Interfaces[0].Requests
			r[0], r[1] = r[1], r[0]
		}, "opcode 0 was hello, now destroy"},
		{"rename event", func(p *model.Protocol) {
			p.Interfaces[0].Events[0].Name = "salute"
		}, "event opcode 0 was greeting"},
		{"drop request", func(p *model.Protocol) {
			p.Interfaces[0].Requests = p.Interfaces[0].Requests[:1]
		}, "opcode 1 (destroy) removed"},
		{"remove interface", func(p *model.Protocol) {
			p.Interfaces = nil
		}, "interface greeter removed"},
		{"version regression", func(p *model.Protocol) {
			p.Interfaces[0].Version = 0
		}, "below locked"},
	}
	for _, tc := range cases {
		p := sample()
		tc.mutate(p)
		err := lock.Check(p)
		if !errors.Is(err, ErrOpcodeChanged) {
			t.Fatalf("%s: expected ErrOpcodeChanged, got %v", tc.name, err)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: error %q missing %q", tc.name, err, tc.want)
		}
	}
}
