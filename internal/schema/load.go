// Package schema loads protocol schemas into the model.
//
// TOML is the primary format; YAML and JSON carry the same keys. Permissive
// mode (the default) checks syntactic well-formedness only. Strict mode also
// rejects unknown keys, duplicates and inconsistent metadata.
package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/danmuck/wlgen/internal/model"
)

type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

type Options struct {
	Strict bool
}

// ParseFormat accepts a format name; empty means TOML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "toml":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath picks a format by extension, defaulting to TOML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	return FormatTOML
}

// Load reads and parses the schema at path, picking the format by extension.
func Load(path string, opts Options) (*model.Protocol, error) {
	return LoadAs(path, FormatFromPath(path), opts)
}

func LoadAs(path string, format Format, opts Options) (*model.Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	p, err := Parse(data, format, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates one schema document.
func Parse(data []byte, format Format, opts Options) (*model.Protocol, error) {
	log.Debug().Str("format", string(format)).Int("bytes", len(data)).Bool("strict", opts.Strict).Msg("schema.Parse")
	if !utf8.Valid(data) {
		return nil, ValidationError{Reason: "document is not valid utf-8", kind: encoding}
	}

	var (
		p   *model.Protocol
		err error
	)
	switch format {
	case FormatTOML, "":
		p, err = decodeTOML(data, opts.Strict)
	case FormatYAML:
		p, err = decodeYAML(data, opts.Strict)
	case FormatJSON:
		p, err = decodeJSON(data, opts.Strict)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(p, opts); err != nil {
		log.Debug().Err(err).Str("protocol", p.Name).Msg("schema rejected")
		return nil, err
	}
	return p, nil
}

func decodeTOML(data []byte, strict bool) (*model.Protocol, error) {
	var p model.Protocol
	md, err := toml.Decode(string(data), &p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if strict {
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, unknownKey(undecoded[0].String())
		}
	}
	return &p, nil
}

func decodeYAML(data []byte, strict bool) (*model.Protocol, error) {
	var p model.Protocol
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if strict {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var check model.Protocol
		if err := dec.Decode(&check); err != nil && !errors.Is(err, io.EOF) {
			return nil, unknownKey(err.Error())
		}
	}
	return &p, nil
}

func decodeJSON(data []byte, strict bool) (*model.Protocol, error) {
	var p model.Protocol
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSchema, err)
	}
	if strict {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		var check model.Protocol
		if err := dec.Decode(&check); err != nil {
			return nil, unknownKey(err.Error())
		}
	}
	return &p, nil
}

func unknownKey(detail string) error {
	return ValidationError{Reason: "unknown key: " + detail, kind: strict}
}
