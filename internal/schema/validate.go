package schema

import (
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/wlgen/internal/model"
)

// Validate checks p. Names must be non-empty, interface versions at least 1,
// every arg must carry a known type and every doc string must be valid UTF-8.
// Strict mode adds duplicate detection and metadata consistency checks.
func Validate(p *model.Protocol, opts Options) error {
	if p == nil {
		return ValidationError{Reason: "nil protocol"}
	}
	if p.Name == "" {
		return ValidationError{Reason: "protocol name is empty"}
	}
	if err := checkDocs("", "", p.Summary, p.Description, p.Copyright); err != nil {
		return err
	}

	names := make(map[string]bool, len(p.Interfaces))
	for i, iface := range p.Interfaces {
		if iface.Name == "" {
			return ValidationError{Reason: fmt.Sprintf("interface %d has no name", i)}
		}
		if opts.Strict {
			if names[iface.Name] {
				return strictError(iface.Name, "", "duplicate interface")
			}
			names[iface.Name] = true
		}
		if err := validateInterface(iface, opts); err != nil {
			log.Debug().Err(err).Str("interface", iface.Name).Msg("schema.Validate")
			return err
		}
	}
	return nil
}

func validateInterface(iface model.Interface, opts Options) error {
	if iface.Version < 1 {
		return ValidationError{Interface: iface.Name, Reason: "version must be at least 1"}
	}
	if err := checkDocs(iface.Name, "", iface.Summary, iface.Description); err != nil {
		return err
	}

	enums := make(map[string]bool)
	for _, enum := range iface.Enums {
		if enum.Name == "" {
			return ValidationError{Interface: iface.Name, Reason: "enum has no name"}
		}
		if err := checkDocs(iface.Name, enum.Name, enum.Summary, enum.Description); err != nil {
			return err
		}
		if opts.Strict {
			if enums[enum.Name] {
				return strictError(iface.Name, enum.Name, "duplicate enum")
			}
			enums[enum.Name] = true
			if err := checkSince(iface, enum.Name, enum.Since); err != nil {
				return err
			}
		}
		if err := validateEntries(iface, enum, opts); err != nil {
			return err
		}
	}

	requests := make(map[string]bool)
	for _, req := range iface.Requests {
		if err := validateMessage(iface, "request", req.Name, req.Since, req.Summary, req.Description, req.Args, requests, opts); err != nil {
			return err
		}
	}
	events := make(map[string]bool)
	for _, evt := range iface.Events {
		if err := validateMessage(iface, "event", evt.Name, evt.Since, evt.Summary, evt.Description, evt.Args, events, opts); err != nil {
			return err
		}
	}
	return nil
}

func validateEntries(iface model.Interface, enum model.Enum, opts Options) error {
	names := make(map[string]bool)
	values := make(map[uint32]string)
	for _, entry := range enum.Entries {
		member := enum.Name + "." + entry.Name
		if entry.Name == "" {
			return ValidationError{Interface: iface.Name, Member: enum.Name, Reason: "entry has no name"}
		}
		if err := checkDocs(iface.Name, member, entry.Summary, entry.Description); err != nil {
			return err
		}
		if !opts.Strict {
			continue
		}
		if names[entry.Name] {
			return strictError(iface.Name, member, "duplicate entry name")
		}
		names[entry.Name] = true
		if prev, ok := values[entry.Value]; ok {
			return strictError(iface.Name, member, fmt.Sprintf("value %d already used by %s", entry.Value, prev))
		}
		values[entry.Value] = entry.Name
		if err := checkSince(iface, member, entry.Since); err != nil {
			return err
		}
	}
	return nil
}

func validateMessage(iface model.Interface, kind, name string, since uint32, summary, description string, args []model.Arg, seen map[string]bool, opts Options) error {
	if name == "" {
		return ValidationError{Interface: iface.Name, Reason: kind + " has no name"}
	}
	if err := checkDocs(iface.Name, name, summary, description); err != nil {
		return err
	}
	if opts.Strict {
		if seen[name] {
			return strictError(iface.Name, name, "duplicate "+kind)
		}
		seen[name] = true
		if err := checkSince(iface, name, since); err != nil {
			return err
		}
	}

	for i, arg := range args {
		member := name + "." + arg.Name
		if arg.Name == "" {
			return ValidationError{Interface: iface.Name, Member: name, Reason: fmt.Sprintf("arg %d has no name", i)}
		}
		if !arg.Type.Valid() {
			return ValidationError{Interface: iface.Name, Member: member, Reason: "arg has no valid type"}
		}
		if err := checkDocs(iface.Name, member, arg.Summary); err != nil {
			return err
		}
		if !opts.Strict {
			continue
		}
		if arg.Pinned() && !arg.Type.Pinnable() {
			return strictError(iface.Name, member, fmt.Sprintf("interface set on %s arg", arg.Type))
		}
		if arg.Nullable && !arg.Type.Nullable() {
			return strictError(iface.Name, member, fmt.Sprintf("allow-null set on %s arg", arg.Type))
		}
	}
	return nil
}

func checkSince(iface model.Interface, member string, since uint32) error {
	if since > iface.Version {
		return strictError(iface.Name, member, fmt.Sprintf("since %d exceeds interface version %d", since, iface.Version))
	}
	return nil
}

func checkDocs(iface, member string, docs ...string) error {
	for _, doc := range docs {
		if !utf8.ValidString(doc) {
			return ValidationError{Interface: iface, Member: member, Reason: "documentation is not valid utf-8", kind: encoding}
		}
	}
	return nil
}

func strictError(iface, member, reason string) error {
	return ValidationError{Interface: iface, Member: member, Reason: reason, kind: strict}
}
