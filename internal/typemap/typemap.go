// Package typemap maps wire argument types to the Go types and expressions
// generated code uses.
//
// Each wire type is one Mapping implementation. A new wire type must provide
// all four emission sites before it compiles.
package typemap

import (
	"errors"
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/danmuck/wlgen/internal/model"
)

var ErrUnmapped = errors.New("typemap: unmapped data type")

// Mapping renders the Go side of one argument.
type Mapping interface {
	// Owned is the parameter type handed to request handlers.
	Owned() *jen.Statement
	// Transient is the parameter type accepted by event senders.
	Transient() *jen.Statement
	// Decode yields a (value, error) expression reading from cursor.
	Decode(cursor jen.Code) *jen.Statement
	// Encode yields an error expression writing value to stream.
	Encode(stream, value jen.Code) *jen.Statement
}

// Table resolves args against a runtime package import path.
type Table struct {
	wire string
}

func New(wireImport string) *Table {
	return &Table{wire: wireImport}
}

func (t *Table) WireImport() string {
	return t.wire
}

func (t *Table) Resolve(arg model.Arg) (Mapping, error) {
	switch arg.Type {
	case model.Int:
		return intMapping{}, nil
	case model.Uint:
		return uintMapping{}, nil
	case model.Fixed:
		return fixedMapping{wire: t.wire}, nil
	case model.String:
		return stringMapping{wire: t.wire, nullable: arg.Nullable}, nil
	case model.Array:
		return arrayMapping{}, nil
	case model.Fd:
		return fdMapping{wire: t.wire}, nil
	case model.Object:
		return objectMapping{wire: t.wire, nullable: arg.Nullable}, nil
	case model.NewId:
		if arg.Pinned() {
			return objectMapping{wire: t.wire}, nil
		}
		return newIDMapping{wire: t.wire}, nil
	}
	return nil, fmt.Errorf("%w: arg %q has type %s", ErrUnmapped, arg.Name, arg.Type)
}

func read(cursor jen.Code, method string) *jen.Statement {
	return jen.Add(cursor).Dot(method).Call()
}

func send(stream jen.Code, method string, value jen.Code) *jen.Statement {
	return jen.Add(stream).Dot(method).Call(value)
}

func required(wire string, inner *jen.Statement) *jen.Statement {
	return jen.Qual(wire, "Required").Call(inner)
}

type intMapping struct{}

func (intMapping) Owned() *jen.Statement               { return jen.Int32() }
func (intMapping) Transient() *jen.Statement           { return jen.Int32() }
func (intMapping) Decode(c jen.Code) *jen.Statement    { return read(c, "ReadInt") }
func (intMapping) Encode(s, v jen.Code) *jen.Statement { return send(s, "SendInt", v) }

type uintMapping struct{}

func (uintMapping) Owned() *jen.Statement               { return jen.Uint32() }
func (uintMapping) Transient() *jen.Statement           { return jen.Uint32() }
func (uintMapping) Decode(c jen.Code) *jen.Statement    { return read(c, "ReadUint") }
func (uintMapping) Encode(s, v jen.Code) *jen.Statement { return send(s, "SendUint", v) }

type fixedMapping struct{ wire string }

func (m fixedMapping) Owned() *jen.Statement             { return jen.Qual(m.wire, "Fixed") }
func (m fixedMapping) Transient() *jen.Statement         { return jen.Qual(m.wire, "Fixed") }
func (fixedMapping) Decode(c jen.Code) *jen.Statement    { return read(c, "ReadFixed") }
func (fixedMapping) Encode(s, v jen.Code) *jen.Statement { return send(s, "SendFixed", v) }

type stringMapping struct {
	wire     string
	nullable bool
}

func (m stringMapping) Owned() *jen.Statement {
	if m.nullable {
		return jen.Op("*").String()
	}
	return jen.String()
}

func (m stringMapping) Transient() *jen.Statement {
	return m.Owned()
}

func (m stringMapping) Decode(c jen.Code) *jen.Statement {
	if m.nullable {
		return read(c, "ReadOptionalString")
	}
	return required(m.wire, read(c, "ReadOptionalString"))
}

func (m stringMapping) Encode(s, v jen.Code) *jen.Statement {
	if m.nullable {
		return send(s, "SendOptionalString", v)
	}
	return send(s, "SendString", v)
}

type arrayMapping struct{}

func (arrayMapping) Owned() *jen.Statement               { return jen.Index().Byte() }
func (arrayMapping) Transient() *jen.Statement           { return jen.Index().Byte() }
func (arrayMapping) Decode(c jen.Code) *jen.Statement    { return read(c, "ReadArray") }
func (arrayMapping) Encode(s, v jen.Code) *jen.Statement { return send(s, "SendArray", v) }

// fdMapping hands handlers an owned *os.File; senders lend a raw descriptor
// that the stream duplicates.
type fdMapping struct{ wire string }

func (fdMapping) Owned() *jen.Statement               { return jen.Op("*").Qual("os", "File") }
func (m fdMapping) Transient() *jen.Statement         { return jen.Qual(m.wire, "Fd") }
func (fdMapping) Decode(c jen.Code) *jen.Statement    { return read(c, "ReadFile") }
func (fdMapping) Encode(s, v jen.Code) *jen.Statement { return send(s, "SendFd", v) }

type objectMapping struct {
	wire     string
	nullable bool
}

func (m objectMapping) Owned() *jen.Statement {
	if m.nullable {
		return jen.Op("*").Qual(m.wire, "Id")
	}
	return jen.Qual(m.wire, "Id")
}

func (m objectMapping) Transient() *jen.Statement {
	return m.Owned()
}

func (m objectMapping) Decode(c jen.Code) *jen.Statement {
	if m.nullable {
		return read(c, "ReadOptionalObject")
	}
	return required(m.wire, read(c, "ReadOptionalObject"))
}

func (m objectMapping) Encode(s, v jen.Code) *jen.Statement {
	if m.nullable {
		return send(s, "SendOptionalObject", v)
	}
	return send(s, "SendObject", v)
}

type newIDMapping struct{ wire string }

func (m newIDMapping) Owned() *jen.Statement             { return jen.Qual(m.wire, "NewId") }
func (m newIDMapping) Transient() *jen.Statement         { return jen.Qual(m.wire, "NewId") }
func (newIDMapping) Decode(c jen.Code) *jen.Statement    { return read(c, "ReadNewId") }
func (newIDMapping) Encode(s, v jen.Code) *jen.Statement { return send(s, "SendNewId", v) }
