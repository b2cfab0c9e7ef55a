package codegen

import (
	"fmt"
	"go/token"

	"github.com/dave/jennifer/jen"
)

// DocEntry is one protocol listed in a package doc file.
type DocEntry struct {
	Protocol string
	File     string
	Summary  string
}

// PackageDoc renders doc.go for a package of generated protocols, in the
// order given.
func PackageDoc(pkg string, entries []DocEntry, version string) ([]byte, error) {
	if !token.IsIdentifier(pkg) {
		return nil, fmt.Errorf("%w: package %q", ErrInvalidName, pkg)
	}
	f := jen.NewFile(pkg)
	if version != "" {
		f.HeaderComment(fmt.Sprintf("Code generated by wlgen %s. DO NOT EDIT.", version))
	} else {
		f.HeaderComment("Code generated by wlgen. DO NOT EDIT.")
	}

	f.PackageComment(fmt.Sprintf("Package %s holds generated protocol bindings:", pkg))
	f.PackageComment("//")
	for _, e := range entries {
		line := fmt.Sprintf("  - %s (%s)", e.Protocol, e.File)
		if e.Summary != "" {
			line += ": " + firstLine(e.Summary)
		}
		f.PackageComment("// " + line)
	}
	return render(f, "doc.go")
}

func firstLine(text string) string {
	lines := textLines(text)
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
