// Package compat records the opcode layout of generated protocols and
// enforces append-only evolution against it.
//
// A lock file maps protocol -> interface -> ordered request and event names.
// Opcodes are declaration indices, so a released layout may only grow at the
// end: removing, renaming or reordering a message breaks deployed peers.
package compat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/wlgen/internal/model"
)

var (
	ErrOpcodeChanged = errors.New("compat: opcode layout changed")
	ErrLockFile      = errors.New("compat: invalid lock file")
)

type Lock struct {
	Protocols map[string]ProtocolLock `json:"protocols"`
}

type ProtocolLock struct {
	Interfaces map[string]InterfaceLock `json:"interfaces"`
}

type InterfaceLock struct {
	Version  uint32   `json:"version"`
	Requests []string `json:"requests"`
	Events   []string `json:"events"`
}

func New() *Lock {
	return &Lock{Protocols: make(map[string]ProtocolLock)}
}

// Read loads the lock at path. A missing file yields an empty lock.
func Read(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("compat: read %s: %w", path, err)
	}
	lock := New()
	if err := json.Unmarshal(data, lock); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLockFile, path, err)
	}
	if lock.Protocols == nil {
		lock.Protocols = make(map[string]ProtocolLock)
	}
	return lock, nil
}

// Write stores the lock at path through a temp file and rename.
func (l *Lock) Write(path string) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("compat: encode lock: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".wlgen-lock-*")
	if err != nil {
		return fmt.Errorf("compat: write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("compat: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("compat: write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("compat: write %s: %w", path, err)
	}
	return nil
}

// Snapshot captures the opcode layout of p.
func Snapshot(p *model.Protocol) ProtocolLock {
	out := ProtocolLock{Interfaces: make(map[string]InterfaceLock, len(p.Interfaces))}
	for _, iface := range p.Interfaces {
		il := InterfaceLock{
			Version:  iface.Version,
			Requests: make([]string, 0, len(iface.Requests)),
			Events:   make([]string, 0, len(iface.Events)),
		}
		for _, req := range iface.Requests {
			il.Requests = append(il.Requests, req.Name)
		}
		for _, evt := range iface.Events {
			il.Events = append(il.Events, evt.Name)
		}
		out.Interfaces[iface.Name] = il
	}
	return out
}

// Check verifies that p only extends the recorded layout. Protocols and
// interfaces the lock has never seen pass.
func (l *Lock) Check(p *model.Protocol) error {
	locked, ok := l.Protocols[p.Name]
	if !ok {
		return nil
	}
	current := Snapshot(p)
	for name, prev := range locked.Interfaces {
		now, ok := current.Interfaces[name]
		if !ok {
			return fmt.Errorf("%w: %s: interface %s removed", ErrOpcodeChanged, p.Name, name)
		}
		if now.Version < prev.Version {
			return fmt.Errorf("%w: %s: interface %s version %d below locked %d", ErrOpcodeChanged, p.Name, name, now.Version, prev.Version)
		}
		if err := checkPrefix(prev.Requests, now.Requests); err != nil {
			return fmt.Errorf("%w: %s.%s request %v", ErrOpcodeChanged, p.Name, name, err)
		}
		if err := checkPrefix(prev.Events, now.Events); err != nil {
			return fmt.Errorf("%w: %s.%s event %v", ErrOpcodeChanged, p.Name, name, err)
		}
	}
	log.Debug().Str("protocol", p.Name).Int("interfaces", len(locked.Interfaces)).Msg("compat.Check ok")
	return nil
}

// Update records the layout of p, replacing any previous entry.
func (l *Lock) Update(p *model.Protocol) {
	if l.Protocols == nil {
		l.Protocols = make(map[string]ProtocolLock)
	}
	l.Protocols[p.Name] = Snapshot(p)
}

func checkPrefix(prev, now []string) error {
	for i, name := range prev {
		if i >= len(now) {
			return fmt.Errorf("opcode %d (%s) removed", i, name)
		}
		if now[i] != name {
			return fmt.Errorf("opcode %d was %s, now %s", i, name, now[i])
		}
	}
	return nil
}
