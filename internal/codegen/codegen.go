// Package codegen emits Go bindings for a protocol model.
//
// One protocol becomes one source file: per interface a handler interface, a
// base type with default event senders, a dispatch function and
// constructors; per enum a named uint32 with constants and a String method.
// An enum whose type name would repeat one of its interface's identifiers
// (an enum named version, base or interface) is suffixed with Enum.
// Output is rendered with jennifer, formatted, and returned whole or not at
// all.
package codegen

import (
	"bytes"
	"errors"
	"fmt"
	"go/token"
	"path/filepath"

	"github.com/dave/jennifer/jen"
	"github.com/rs/zerolog/log"
	"golang.org/x/tools/imports"

	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/naming"
	"github.com/danmuck/wlgen/internal/typemap"
)

// DefaultWireImport is the runtime package generated code calls into.
const DefaultWireImport = "github.com/danmuck/wlgen/wire"

var (
	ErrNameCollision  = errors.New("codegen: name collision")
	ErrOpcodeOverflow = errors.New("codegen: too many messages for a 16-bit opcode")
	ErrInvalidName    = errors.New("codegen: invalid identifier")
	ErrRender         = errors.New("codegen: render failed")
)

type Options struct {
	// Package is the package clause. Defaults to the protocol name in
	// package style.
	Package string
	// WireImport is the import path of the runtime package. The package
	// name at that path must be wire.
	WireImport string
	// Source is recorded in the file header when set.
	Source string
	// Version is the generator version recorded in the file header.
	Version string
}

func (o Options) withDefaults(p *model.Protocol) Options {
	if o.Package == "" {
		o.Package = naming.Package(p.Name)
	}
	if o.WireImport == "" {
		o.WireImport = DefaultWireImport
	}
	return o
}

// FileName is the conventional output file name for a protocol.
func FileName(protocol string) string {
	return naming.Module(protocol) + ".gen.go"
}

// Generate renders p as a single Go source file.
func Generate(p *model.Protocol, opts Options) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil protocol", ErrRender)
	}
	opts = opts.withDefaults(p)
	if !token.IsIdentifier(opts.Package) {
		return nil, fmt.Errorf("%w: package %q", ErrInvalidName, opts.Package)
	}

	g := newGenerator(p, opts)
	if err := g.emit(); err != nil {
		return nil, err
	}
	out, err := render(g.file, FileName(p.Name))
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("protocol", p.Name).
		Str("package", opts.Package).
		Int("interfaces", len(p.Interfaces)).
		Int("bytes", len(out)).
		Msg("codegen rendered protocol")
	return out, nil
}

func render(f *jen.File, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	out, err := imports.Process(name, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return out, nil
}

type generator struct {
	proto *model.Protocol
	opts  Options
	types *typemap.Table
	file  *jen.File
	// top-level identifier -> what claimed it
	names map[string]string
}

func newGenerator(p *model.Protocol, opts Options) *generator {
	f := jen.NewFile(opts.Package)
	f.ImportName(opts.WireImport, "wire")
	return &generator{
		proto: p,
		opts:  opts,
		types: typemap.New(opts.WireImport),
		file:  f,
		names: make(map[string]string),
	}
}

func (g *generator) emit() error {
	g.header()
	for _, iface := range g.proto.Interfaces {
		if err := g.emitInterface(iface); err != nil {
			return fmt.Errorf("interface %q: %w", iface.Name, err)
		}
	}
	return nil
}

func (g *generator) header() {
	f := g.file
	if g.opts.Version != "" {
		f.HeaderComment(fmt.Sprintf("Code generated by wlgen %s. DO NOT EDIT.", g.opts.Version))
	} else {
		f.HeaderComment("Code generated by wlgen. DO NOT EDIT.")
	}
	if g.opts.Source != "" {
		f.HeaderComment("source: " + filepath.ToSlash(g.opts.Source))
	}
	lines := []string{"# " + naming.Title(g.proto.Name)}
	lines = appendParagraphs(lines, g.proto.Summary, g.proto.Description)
	if g.proto.Copyright != "" {
		lines = appendParagraphs(lines, "# Copyright", g.proto.Copyright)
	}
	f.HeaderComment("//")
	for _, c := range commentLines(lines) {
		f.HeaderComment(c)
	}
}

// claim reserves a top-level identifier.
func (g *generator) claim(ident, owner string) error {
	if !token.IsIdentifier(ident) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidName, ident, owner)
	}
	if prev, ok := g.names[ident]; ok {
		return fmt.Errorf("%w: %s used by %s and %s", ErrNameCollision, ident, prev, owner)
	}
	g.names[ident] = owner
	return nil
}

// doc writes lines as a doc comment on the next top-level declaration.
func (g *generator) doc(lines []string) {
	for _, c := range commentLines(lines) {
		g.file.Comment(c)
	}
}

func (g *generator) wire(name string) *jen.Statement {
	return jen.Qual(g.opts.WireImport, name)
}
