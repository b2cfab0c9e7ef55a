package codegen

import (
	"fmt"
	"go/token"

	"github.com/dave/jennifer/jen"

	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/naming"
	"github.com/danmuck/wlgen/internal/typemap"
)

// message is a request or event reduced to what emission needs.
type message struct {
	name   string
	method string
	opcode uint16
	args   []param
}

type param struct {
	name    string
	mapping typemap.Mapping
}

type ifaceNames struct {
	typ, base, ifaceConst, versionConst, dispatch, ctor, versionedCtor string
}

func (g *generator) emitInterface(iface model.Interface) error {
	if len(iface.Requests) > model.MaxOpcodes || len(iface.Events) > model.MaxOpcodes {
		return fmt.Errorf("%w: %d requests, %d events", ErrOpcodeOverflow, len(iface.Requests), len(iface.Events))
	}

	typ := naming.Type(iface.Name)
	n := ifaceNames{
		typ:           typ,
		base:          typ + "Base",
		ifaceConst:    typ + "Interface",
		versionConst:  typ + "Version",
		dispatch:      "dispatch" + typ,
		ctor:          "New" + typ + "Object",
		versionedCtor: "New" + typ + "VersionedObject",
	}
	for _, ident := range []string{n.typ, n.base, n.ifaceConst, n.versionConst, n.dispatch, n.ctor, n.versionedCtor} {
		if err := g.claim(ident, "interface "+iface.Name); err != nil {
			return err
		}
	}

	requests, events, err := g.messages(iface)
	if err != nil {
		return err
	}

	g.emitConstants(iface, n)
	g.emitHandler(iface, n, requests, events)
	g.emitBase(n, events)
	g.emitDispatch(n, requests)
	g.emitConstructors(iface, n)

	for _, enum := range iface.Enums {
		if err := g.emitEnum(iface, enum); err != nil {
			return fmt.Errorf("enum %q: %w", enum.Name, err)
		}
	}
	return nil
}

// messages resolves method names, opcodes and arg mappings, rejecting
// collisions among methods and among one method's params.
func (g *generator) messages(iface model.Interface) ([]message, []message, error) {
	methods := make(map[string]string)
	build := func(kind, name string, index int, args []model.Arg) (message, error) {
		owner := kind + " " + name
		method := naming.Type(name)
		if err := checkIdent(method, owner); err != nil {
			return message{}, err
		}
		if prev, ok := methods[method]; ok {
			return message{}, fmt.Errorf("%w: method %s used by %s and %s", ErrNameCollision, method, prev, owner)
		}
		methods[method] = owner

		opcode, err := model.Opcode(index)
		if err != nil {
			return message{}, fmt.Errorf("%w: %v", ErrOpcodeOverflow, err)
		}
		msg := message{name: name, method: method, opcode: opcode}
		seen := make(map[string]string)
		for _, arg := range args {
			p := naming.Param(arg.Name)
			if err := checkIdent(p, owner+" arg "+arg.Name); err != nil {
				return message{}, err
			}
			if prev, ok := seen[p]; ok {
				return message{}, fmt.Errorf("%w: %s args %q and %q both map to %s", ErrNameCollision, owner, prev, arg.Name, p)
			}
			seen[p] = arg.Name
			m, err := g.types.Resolve(arg)
			if err != nil {
				return message{}, fmt.Errorf("%s: %w", owner, err)
			}
			msg.args = append(msg.args, param{name: p, mapping: m})
		}
		return msg, nil
	}

	requests := make([]message, 0, len(iface.Requests))
	for i, req := range iface.Requests {
		msg, err := build("request", req.Name, i, req.Args)
		if err != nil {
			return nil, nil, err
		}
		requests = append(requests, msg)
	}
	events := make([]message, 0, len(iface.Events))
	for i, evt := range iface.Events {
		msg, err := build("event", evt.Name, i, evt.Args)
		if err != nil {
			return nil, nil, err
		}
		events = append(events, msg)
	}
	return requests, events, nil
}

func checkIdent(ident, owner string) error {
	if !token.IsIdentifier(ident) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidName, ident, owner)
	}
	return nil
}

func (g *generator) emitConstants(iface model.Interface, n ifaceNames) {
	f := g.file
	f.Line()
	g.doc([]string{fmt.Sprintf("Wire name and highest supported version of %s.", iface.Name)})
	f.Const().Defs(
		jen.Id(n.ifaceConst).Op("=").Lit(iface.Name),
		jen.Id(n.versionConst).Uint32().Op("=").Lit(int(iface.Version)),
	)
}

// requestParams is the leading parameter list of every request handler.
func (g *generator) requestParams() []jen.Code {
	return []jen.Code{
		jen.Id("this").Add(g.wire("Lease")),
		jen.Id("loop").Add(g.wire("EventLoop")).Types(jen.Id("T")),
		jen.Id("client").Add(g.wire("Client")).Types(jen.Id("T")),
	}
}

// eventParams is the leading parameter list of every event sender.
func (g *generator) eventParams() []jen.Code {
	return []jen.Code{
		jen.Id("this").Add(g.wire("Lease")),
		jen.Id("client").Add(g.wire("Client")).Types(jen.Id("T")),
	}
}

func (g *generator) emitHandler(iface model.Interface, n ifaceNames, requests, events []message) {
	f := g.file
	lines := []string{fmt.Sprintf("%s is the %s interface, version %d.", n.typ, iface.Name, iface.Version)}
	lines = appendParagraphs(lines, iface.Summary, iface.Description)
	lines = appendParagraphs(lines, fmt.Sprintf("Implementations embed %s for the event senders.", n.base))

	var methods []jen.Code
	for i, req := range requests {
		methods = append(methods, commentCode(requestDoc(req.method, iface.Requests[i], req.opcode))...)
		params := g.requestParams()
		for _, p := range req.args {
			params = append(params, jen.Id(p.name).Add(p.mapping.Owned()))
		}
		methods = append(methods, jen.Id(req.method).Params(params...).Error())
	}
	for i, evt := range events {
		methods = append(methods, commentCode(eventDoc(evt.method, iface.Events[i], evt.opcode))...)
		params := g.eventParams()
		for _, p := range evt.args {
			params = append(params, jen.Id(p.name).Add(p.mapping.Transient()))
		}
		methods = append(methods, jen.Id(evt.method).Params(params...).Error())
	}

	f.Line()
	g.doc(lines)
	f.Type().Id(n.typ).Types(jen.Id("T").Any()).Interface(methods...)
}

func (g *generator) emitBase(n ifaceNames, events []message) {
	f := g.file
	f.Line()
	g.doc([]string{fmt.Sprintf("%s implements the event senders of %s.", n.base, n.typ)})
	f.Type().Id(n.base).Types(jen.Id("T").Any()).Struct()

	for _, evt := range events {
		params := g.eventParams()
		body := []jen.Code{
			jen.Id("s").Op(":=").Id("client").Dot("Stream").Call(),
			jen.Id("key").Op(":=").Id("s").Dot("StartMessage").Call(jen.Id("this").Dot("ID").Call(), jen.Lit(int(evt.opcode))),
		}
		for _, p := range evt.args {
			params = append(params, jen.Id(p.name).Add(p.mapping.Transient()))
			body = append(body, jen.If(
				jen.Err().Op(":=").Add(p.mapping.Encode(jen.Id("s"), jen.Id(p.name))),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Err())))
		}
		body = append(body, jen.Return(jen.Id("s").Dot("Commit").Call(jen.Id("key"))))

		f.Line()
		g.doc([]string{fmt.Sprintf("%s sends the %s event.", evt.method, evt.name)})
		f.Func().Params(jen.Id(n.base).Types(jen.Id("T"))).Id(evt.method).Params(params...).Error().Block(body...)
	}
}

func (g *generator) emitDispatch(n ifaceNames, requests []message) {
	f := g.file
	params := append(g.requestParams(), jen.Id("msg").Add(g.wire("Message")))
	downcast := g.wire("Downcast").Types(jen.Id(n.typ).Types(jen.Id("T"))).Call(jen.Id("this"))

	var body []jen.Code
	if len(requests) == 0 {
		body = []jen.Code{
			jen.If(jen.List(jen.Id("_"), jen.Id("ok")).Op(":=").Add(downcast), jen.Op("!").Id("ok")).Block(
				jen.Return(g.wire("ErrInternal")),
			),
			jen.Return(g.wire("ErrInvalidOpcode")),
		}
	} else {
		var cases []jen.Code
		for _, req := range requests {
			var stmts []jen.Code
			call := []jen.Code{jen.Id("this"), jen.Id("loop"), jen.Id("client")}
			for _, p := range req.args {
				stmts = append(stmts,
					jen.List(jen.Id(p.name), jen.Err()).Op(":=").Add(p.mapping.Decode(jen.Id("msg").Dot("Args"))),
					jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Err())),
				)
				call = append(call, jen.Id(p.name))
			}
			stmts = append(stmts, jen.Return(jen.Id("obj").Dot(req.method).Call(call...)))
			cases = append(cases, jen.Case(jen.Lit(int(req.opcode))).Block(stmts...))
		}
		cases = append(cases, jen.Default().Block(jen.Return(g.wire("ErrInvalidOpcode"))))
		body = []jen.Code{
			jen.List(jen.Id("obj"), jen.Id("ok")).Op(":=").Add(downcast),
			jen.If(jen.Op("!").Id("ok")).Block(jen.Return(g.wire("ErrInternal"))),
			jen.Switch(jen.Id("msg").Dot("Opcode")).Block(cases...),
		}
	}

	f.Line()
	g.doc([]string{fmt.Sprintf("%s routes a request to the %s behind this.", n.dispatch, n.typ)})
	f.Func().Id(n.dispatch).Types(jen.Id("T").Any()).Params(params...).Error().Block(body...)
}

func (g *generator) emitConstructors(iface model.Interface, n ifaceNames) {
	f := g.file
	resident := jen.Op("*").Add(g.wire("Resident")).Types(jen.Id("T"))
	newResident := func(version jen.Code) *jen.Statement {
		return g.wire("NewResident").Types(jen.Id("T")).Call(
			jen.Id("id"),
			jen.Id(n.dispatch).Types(jen.Id("T")),
			jen.Id(n.ifaceConst),
			version,
			jen.Id("obj"),
		)
	}

	f.Line()
	g.doc([]string{fmt.Sprintf("%s wraps obj for registration under id at %s.", n.ctor, n.versionConst)})
	f.Func().Id(n.ctor).Types(jen.Id("T").Any()).Params(
		jen.Id("obj").Id(n.typ).Types(jen.Id("T")),
		jen.Id("id").Add(g.wire("Id")),
	).Add(resident.Clone()).Block(
		jen.Return(newResident(jen.Id(n.versionConst))),
	)

	f.Line()
	g.doc([]string{fmt.Sprintf("%s wraps obj for registration under id at a negotiated version of %s.", n.versionedCtor, iface.Name)})
	f.Func().Id(n.versionedCtor).Types(jen.Id("T").Any()).Params(
		jen.Id("obj").Id(n.typ).Types(jen.Id("T")),
		jen.Id("id").Add(g.wire("Id")),
		jen.Id("version").Uint32(),
	).Add(resident.Clone()).Block(
		jen.Return(newResident(jen.Id("version"))),
	)
}
