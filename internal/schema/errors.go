package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedSchema = errors.New("schema: malformed schema")
	ErrIO              = errors.New("schema: read failed")
	ErrEncoding        = errors.New("schema: invalid utf-8")
	ErrStrict          = errors.New("schema: strict check failed")
	ErrUnknownFormat   = errors.New("schema: unknown format")
)

type violation uint8

const (
	malformed violation = iota
	encoding
	strict
)

// ValidationError locates a schema problem. Interface and Member are empty
// when the problem is at protocol level.
type ValidationError struct {
	Interface string
	Member    string
	Reason    string
	kind      violation
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("schema:")
	if e.kind == strict {
		b.WriteString(" strict:")
	}
	if e.Interface != "" {
		fmt.Fprintf(&b, " interface=%s", e.Interface)
	}
	if e.Member != "" {
		fmt.Fprintf(&b, " member=%s", e.Member)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	return b.String()
}

// Unwrap lets errors.Is match ErrMalformedSchema, ErrEncoding or ErrStrict.
func (e ValidationError) Unwrap() []error {
	switch e.kind {
	case encoding:
		return []error{ErrEncoding}
	case strict:
		return []error{ErrMalformedSchema, ErrStrict}
	default:
		return []error{ErrMalformedSchema}
	}
}

// IsStrict reports whether only strict mode would reject the schema.
func (e ValidationError) IsStrict() bool {
	return e.kind == strict
}
