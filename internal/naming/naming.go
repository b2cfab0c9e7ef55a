// Package naming converts schema identifiers into Go identifier styles.
//
// Every function is pure. Words are split on non-alphanumeric runes, at
// lower-to-upper transitions and where an upper-case run meets a lower-case
// rune ("HTTPServer" is "HTTP", "Server"). Digits stay with the preceding word.
package naming

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.Und)

// Words splits s into lower-cased words.
func Words(s string) []string {
	runes := []rune(s)
	words := make([]string, 0, 4)
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Type renders PascalCase: wl_output -> WlOutput.
func Type(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		b.WriteString(upperFirst(w))
	}
	return b.String()
}

// Member renders lowerCamelCase: set_title -> setTitle.
func Member(s string) string {
	var b strings.Builder
	for i, w := range Words(s) {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(upperFirst(w))
	}
	return b.String()
}

// Param renders a parameter name that cannot shadow anything generated code
// refers to.
func Param(s string) string {
	name := Member(s)
	if name == "" {
		return "arg_"
	}
	if _, ok := reserved[name]; ok {
		return name + "_"
	}
	return name
}

// Constant renders SCREAMING_SNAKE_CASE.
func Constant(s string) string {
	return strings.ToUpper(strings.Join(Words(s), "_"))
}

// Module renders snake_case for file names.
func Module(s string) string {
	return strings.Join(Words(s), "_")
}

// Package renders a Go package name: xdg_shell -> xdgshell.
func Package(s string) string {
	return strings.Join(Words(s), "")
}

// Title renders title-cased prose: xdg_shell -> Xdg Shell.
func Title(s string) string {
	return titler.String(strings.Join(Words(s), " "))
}

// EntryConstant names an enum entry. Entries that start with a digit are
// prefixed with the enum name: (transform, 180) -> TRANSFORM_180.
func EntryConstant(enum, entry string) string {
	if startsWithDigit(entry) {
		return Constant(enum + "_" + entry)
	}
	return Constant(entry)
}

func startsWithDigit(s string) bool {
	for _, r := range s {
		return unicode.IsDigit(r)
	}
	return false
}

func upperFirst(w string) string {
	r := []rune(w)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

var reserved = map[string]struct{}{}

func init() {
	for _, group := range [][]string{
		// keywords
		{"break", "case", "chan", "const", "continue", "default", "defer", "else",
			"fallthrough", "for", "func", "go", "goto", "if", "import", "interface",
			"map", "package", "range", "return", "select", "struct", "switch", "type", "var"},
		// predeclared
		{"any", "bool", "byte", "comparable", "complex64", "complex128", "error",
			"float32", "float64", "int", "int8", "int16", "int32", "int64", "rune",
			"string", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr",
			"true", "false", "iota", "nil", "append", "cap", "clear", "close",
			"complex", "copy", "delete", "imag", "len", "make", "max", "min", "new",
			"panic", "print", "println", "real", "recover"},
		// generated locals and imports
		{"this", "loop", "client", "msg", "obj", "ok", "err", "s", "key", "wire", "os", "fmt"},
	} {
		for _, name := range group {
			reserved[name] = struct{}{}
		}
	}
}

// Reserved reports whether Param would escape name.
func Reserved(name string) bool {
	_, ok := reserved[name]
	return ok
}
