// Package model is the in-memory form of a protocol schema.
//
// A Protocol is built once by the schema loader and never mutated afterwards;
// the emitter walks it in declaration order. Struct tags carry the schema key
// names, which are identical across TOML, YAML and JSON.
package model

import (
	"errors"
	"fmt"
)

// MaxOpcodes is the number of distinct opcodes a 16-bit opcode field can carry.
const MaxOpcodes = 1 << 16

var ErrOpcodeRange = errors.New("model: opcode out of range")

type Protocol struct {
	Name        string      `toml:"name" yaml:"name" json:"name"`
	Summary     string      `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string      `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Copyright   string      `toml:"copyright" yaml:"copyright,omitempty" json:"copyright,omitempty"`
	Interfaces  []Interface `toml:"interface" yaml:"interface,omitempty" json:"interface,omitempty"`
}

type Interface struct {
	Name        string    `toml:"name" yaml:"name" json:"name"`
	Summary     string    `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string    `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Version     uint32    `toml:"version" yaml:"version" json:"version"`
	Enums       []Enum    `toml:"enum" yaml:"enum,omitempty" json:"enum,omitempty"`
	Requests    []Request `toml:"request" yaml:"request,omitempty" json:"request,omitempty"`
	Events      []Event   `toml:"event" yaml:"event,omitempty" json:"event,omitempty"`
}

type Enum struct {
	Name        string  `toml:"name" yaml:"name" json:"name"`
	Summary     string  `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string  `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Since       uint32  `toml:"since" yaml:"since,omitempty" json:"since,omitempty"`
	Entries     []Entry `toml:"entry" yaml:"entry,omitempty" json:"entry,omitempty"`
}

// Entry is one named enum value. Values need not be unique within an enum.
type Entry struct {
	Name        string `toml:"name" yaml:"name" json:"name"`
	Since       uint32 `toml:"since" yaml:"since,omitempty" json:"since,omitempty"`
	Summary     string `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Value       uint32 `toml:"value" yaml:"value" json:"value"`
}

// Request is a client-to-server message. Its opcode is its index in
// Interface.Requests.
type Request struct {
	Name        string `toml:"name" yaml:"name" json:"name"`
	Since       uint32 `toml:"since" yaml:"since,omitempty" json:"since,omitempty"`
	Destructor  bool   `toml:"destructor" yaml:"destructor,omitempty" json:"destructor,omitempty"`
	Summary     string `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Args        []Arg  `toml:"arg" yaml:"arg,omitempty" json:"arg,omitempty"`
}

// Event is a server-to-client message. Its opcode is its index in
// Interface.Events.
type Event struct {
	Name        string `toml:"name" yaml:"name" json:"name"`
	Since       uint32 `toml:"since" yaml:"since,omitempty" json:"since,omitempty"`
	Summary     string `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string `toml:"description" yaml:"description,omitempty" json:"description,omitempty"`
	Args        []Arg  `toml:"arg" yaml:"arg,omitempty" json:"arg,omitempty"`
}

type Arg struct {
	Name      string   `toml:"name" yaml:"name" json:"name"`
	Nullable  bool     `toml:"allow-null" yaml:"allow-null,omitempty" json:"allow-null,omitempty"`
	Type      DataType `toml:"type" yaml:"type" json:"type"`
	Interface string   `toml:"interface" yaml:"interface,omitempty" json:"interface,omitempty"`
	Enum      string   `toml:"enum" yaml:"enum,omitempty" json:"enum,omitempty"`
	Summary   string   `toml:"summary" yaml:"summary,omitempty" json:"summary,omitempty"`
}

// Pinned reports whether the arg names a fixed interface.
func (a Arg) Pinned() bool {
	return a.Interface != ""
}

// IsNewIdDescriptor reports whether the arg carries an inline
// {interface, version, id} triple rather than a bare object id.
func (a Arg) IsNewIdDescriptor() bool {
	return a.Type == NewId && !a.Pinned()
}

// Opcode converts a declaration index into a wire opcode.
func Opcode(index int) (uint16, error) {
	if index < 0 || index >= MaxOpcodes {
		return 0, fmt.Errorf("%w: index %d", ErrOpcodeRange, index)
	}
	return uint16(index), nil
}

// Counts tallies declarations for reporting.
type Counts struct {
	Interfaces int `json:"interfaces"`
	Enums      int `json:"enums"`
	Requests   int `json:"requests"`
	Events     int `json:"events"`
}

func (c Counts) Add(o Counts) Counts {
	return Counts{
		Interfaces: c.Interfaces + o.Interfaces,
		Enums:      c.Enums + o.Enums,
		Requests:   c.Requests + o.Requests,
		Events:     c.Events + o.Events,
	}
}

func (i Interface) Counts() Counts {
	return Counts{
		Interfaces: 1,
		Enums:      len(i.Enums),
		Requests:   len(i.Requests),
		Events:     len(i.Events),
	}
}

func (p Protocol) Counts() Counts {
	var total Counts
	for _, iface := range p.Interfaces {
		total = total.Add(iface.Counts())
	}
	return total
}
