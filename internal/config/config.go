// Package config loads wlgen.toml, the project file that lists the schemas
// to compile and where their bindings go.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/wlgen/internal/codegen"
	"github.com/danmuck/wlgen/internal/schema"
)

const DefaultPath = "wlgen.toml"

var ErrInvalidConfig = errors.New("config: invalid config")

type Config struct {
	Package         string           `toml:"package"`
	Output          string           `toml:"output"`
	WireImport      string           `toml:"wire_import"`
	Strict          bool             `toml:"strict"`
	Lock            string           `toml:"lock"`
	MetricsTextfile string           `toml:"metrics_textfile"`
	Serve           ServeConfig      `toml:"serve"`
	Protocols       []ProtocolConfig `toml:"protocol"`
}

type ServeConfig struct {
	Addr           string   `toml:"addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	MaxSchemaBytes int64    `toml:"max_schema_bytes"`
}

type ProtocolConfig struct {
	Schema string `toml:"schema"`
	// File overrides the output file name, default <module>.gen.go.
	File string `toml:"file"`
	// Format overrides the extension-based schema format.
	Format string `toml:"format,omitempty"`
}

func Default() Config {
	return Config{
		Output:     ".",
		WireImport: codegen.DefaultWireImport,
		Serve: ServeConfig{
			Addr:           ":8086",
			CorsOrigins:    []string{"http://localhost:3000"},
			MaxSchemaBytes: 1 << 20,
		},
	}
}

// Load reads path over Default. Relative paths in the file resolve against
// the directory holding it.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("package") {
		cfg.Package = strings.TrimSpace(raw.Package)
	}
	if meta.IsDefined("output") {
		cfg.Output = strings.TrimSpace(raw.Output)
	}
	if meta.IsDefined("wire_import") {
		cfg.WireImport = strings.TrimSpace(raw.WireImport)
	}
	if meta.IsDefined("strict") {
		cfg.Strict = raw.Strict
	}
	if meta.IsDefined("lock") {
		cfg.Lock = strings.TrimSpace(raw.Lock)
	}
	if meta.IsDefined("metrics_textfile") {
		cfg.MetricsTextfile = strings.TrimSpace(raw.MetricsTextfile)
	}
	if meta.IsDefined("serve", "addr") {
		cfg.Serve.Addr = strings.TrimSpace(raw.Serve.Addr)
	}
	if meta.IsDefined("serve", "cors_origins") {
		cfg.Serve.CorsOrigins = normalizeOrigins(raw.Serve.CorsOrigins)
	}
	if meta.IsDefined("serve", "max_schema_bytes") {
		cfg.Serve.MaxSchemaBytes = raw.Serve.MaxSchemaBytes
	}
	cfg.Protocols = raw.Protocols

	cfg.resolve(filepath.Dir(path))
	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Package != "" && !token.IsIdentifier(cfg.Package) {
		return fmt.Errorf("%w: package %q is not a Go identifier", ErrInvalidConfig, cfg.Package)
	}
	if strings.TrimSpace(cfg.Output) == "" {
		return fmt.Errorf("%w: missing output", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.WireImport) == "" {
		return fmt.Errorf("%w: missing wire_import", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Serve.Addr) == "" {
		return fmt.Errorf("%w: missing serve.addr", ErrInvalidConfig)
	}
	if cfg.Serve.MaxSchemaBytes <= 0 {
		return fmt.Errorf("%w: serve.max_schema_bytes must be positive", ErrInvalidConfig)
	}
	files := make(map[string]int, len(cfg.Protocols))
	for i, pc := range cfg.Protocols {
		if err := ValidateProtocol(pc); err != nil {
			return fmt.Errorf("%w: protocol[%d]: %v", ErrInvalidConfig, i, err)
		}
		if pc.File == "" {
			continue
		}
		if prev, ok := files[pc.File]; ok {
			return fmt.Errorf("%w: protocol[%d] and protocol[%d] both write %s", ErrInvalidConfig, prev, i, pc.File)
		}
		files[pc.File] = i
	}
	return nil
}

func ValidateProtocol(pc ProtocolConfig) error {
	if strings.TrimSpace(pc.Schema) == "" {
		return fmt.Errorf("schema is required")
	}
	if pc.File != "" && (filepath.Base(pc.File) != pc.File || !strings.HasSuffix(pc.File, ".go")) {
		return fmt.Errorf("file %q must be a bare .go file name", pc.File)
	}
	if pc.File == "doc.go" {
		return fmt.Errorf("file doc.go is reserved")
	}
	if _, err := schema.ParseFormat(pc.Format); err != nil {
		return err
	}
	return nil
}

// SchemaFormat is the format to parse pc with.
func (pc ProtocolConfig) SchemaFormat() schema.Format {
	if pc.Format == "" {
		return schema.FormatFromPath(pc.Schema)
	}
	f, err := schema.ParseFormat(pc.Format)
	if err != nil {
		return schema.FormatFromPath(pc.Schema)
	}
	return f
}

func (c Config) SchemaOptions() schema.Options {
	return schema.Options{Strict: c.Strict}
}

func (c *Config) resolve(dir string) {
	c.Output = resolvePath(dir, c.Output)
	c.Lock = resolvePath(dir, c.Lock)
	c.MetricsTextfile = resolvePath(dir, c.MetricsTextfile)
	for i := range c.Protocols {
		c.Protocols[i].Schema = resolvePath(dir, strings.TrimSpace(c.Protocols[i].Schema))
		c.Protocols[i].File = strings.TrimSpace(c.Protocols[i].File)
	}
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
