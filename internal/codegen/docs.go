package codegen

import (
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"

	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/naming"
)

// appendParagraphs adds each non-empty text as its own paragraph.
func appendParagraphs(lines []string, texts ...string) []string {
	for _, text := range texts {
		body := textLines(text)
		if len(body) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, body...)
	}
	return lines
}

// textLines splits free text into trimmed, dedented lines without leading or
// trailing blank lines.
func textLines(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	raw := strings.Split(text, "\n")
	for len(raw) > 0 && strings.TrimSpace(raw[0]) == "" {
		raw = raw[1:]
	}
	for len(raw) > 0 && strings.TrimSpace(raw[len(raw)-1]) == "" {
		raw = raw[:len(raw)-1]
	}
	indent := -1
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimRight(line, " \t")
		if len(line) >= indent && indent > 0 {
			line = line[indent:]
		}
		out = append(out, line)
	}
	return out
}

// commentLines renders lines as raw // comments so jennifer never reformats
// them.
func commentLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			out = append(out, "//")
			continue
		}
		out = append(out, "// "+line)
	}
	return out
}

func commentCode(lines []string) []jen.Code {
	var out []jen.Code
	for _, c := range commentLines(lines) {
		out = append(out, jen.Comment(c))
	}
	return out
}

func sinceLine(since uint32) string {
	if since == 0 {
		return ""
	}
	return fmt.Sprintf("Available since version %d.", since)
}

func argLines(args []model.Arg) []string {
	if len(args) == 0 {
		return nil
	}
	lines := []string{"Arguments:"}
	for _, arg := range args {
		line := "  - " + naming.Param(arg.Name)
		if arg.Summary != "" {
			line += ": " + strings.Join(textLines(arg.Summary), " ")
		}
		var notes []string
		if arg.Enum != "" {
			notes = append(notes, "enum "+arg.Enum)
		}
		if arg.Interface != "" {
			notes = append(notes, "interface "+arg.Interface)
		}
		if arg.Nullable && arg.Type.Nullable() {
			notes = append(notes, "nullable")
		}
		if len(notes) > 0 {
			line += " (" + strings.Join(notes, ", ") + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func requestDoc(method string, req model.Request, opcode uint16) []string {
	lines := []string{fmt.Sprintf("%s handles the %s request (opcode %d).", method, req.Name, opcode)}
	lines = appendParagraphs(lines, req.Summary, req.Description, sinceLine(req.Since))
	if req.Destructor {
		lines = appendParagraphs(lines, "This request is a destructor.")
	}
	if args := argLines(req.Args); args != nil {
		lines = append(append(lines, ""), args...)
	}
	return lines
}

func eventDoc(method string, evt model.Event, opcode uint16) []string {
	lines := []string{fmt.Sprintf("%s sends the %s event (opcode %d).", method, evt.Name, opcode)}
	lines = appendParagraphs(lines, evt.Summary, evt.Description, sinceLine(evt.Since))
	if args := argLines(evt.Args); args != nil {
		lines = append(append(lines, ""), args...)
	}
	return lines
}
