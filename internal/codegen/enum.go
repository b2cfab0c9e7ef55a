package codegen

import (
	"fmt"

	"github.com/dave/jennifer/jen"

	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/naming"
)

// emitEnum renders enum as a named uint32. String reports NAME(value) for
// known values, taking the first declared entry when values repeat, and
// UNKNOWN(value) otherwise. A type name already taken gets an Enum suffix.
func (g *generator) emitEnum(iface model.Interface, enum model.Enum) error {
	f := g.file
	typ := naming.Type(iface.Name) + naming.Type(enum.Name)
	if _, taken := g.names[typ]; taken {
		// Enums named version, base or interface meet the interface's own
		// identifiers.
		typ += "Enum"
	}
	if err := g.claim(typ, "enum "+enum.Name); err != nil {
		return err
	}

	var defs, cases []jen.Code
	seen := make(map[uint32]bool)
	for _, entry := range enum.Entries {
		constant := naming.EntryConstant(enum.Name, entry.Name)
		ident := typ + "_" + constant
		if err := g.claim(ident, "entry "+entry.Name); err != nil {
			return err
		}
		defs = append(defs, commentCode(appendParagraphs(nil, entry.Summary, entry.Description, sinceLine(entry.Since)))...)
		defs = append(defs, jen.Id(ident).Id(typ).Op("=").Lit(int(entry.Value)))

		if seen[entry.Value] {
			continue
		}
		seen[entry.Value] = true
		cases = append(cases, jen.Case(jen.Id(ident)).Block(
			jen.Return(jen.Lit(fmt.Sprintf("%s(%d)", constant, entry.Value))),
		))
	}
	cases = append(cases, jen.Default().Block(
		jen.Return(jen.Qual("fmt", "Sprintf").Call(jen.Lit("UNKNOWN(%d)"), jen.Uint32().Call(jen.Id("v")))),
	))

	lines := []string{fmt.Sprintf("%s is the %s enum of %s.", typ, enum.Name, iface.Name)}
	lines = appendParagraphs(lines, enum.Summary, enum.Description, sinceLine(enum.Since))

	f.Line()
	g.doc(lines)
	f.Type().Id(typ).Uint32()

	if len(defs) > 0 {
		f.Line()
		f.Const().Defs(defs...)
	}

	f.Line()
	g.doc([]string{"String renders the entry name and value."})
	f.Func().Params(jen.Id("v").Id(typ)).Id("String").Params().String().Block(
		jen.Switch(jen.Id("v")).Block(cases...),
	)
	return nil
}
