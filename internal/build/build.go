// Package build runs a whole project: it loads every configured schema,
// enforces the opcode lock, emits every file in memory and only then writes
// them out.
package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/wlgen/internal/codegen"
	"github.com/danmuck/wlgen/internal/compat"
	"github.com/danmuck/wlgen/internal/config"
	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/naming"
	"github.com/danmuck/wlgen/internal/observability"
	"github.com/danmuck/wlgen/internal/schema"
)

const DocFile = "doc.go"

var (
	ErrNoProtocols     = errors.New("build: no protocols configured")
	ErrDuplicateOutput = errors.New("build: duplicate output file")
	ErrWrite           = errors.New("build: write failed")
)

type ProtocolReport struct {
	Name   string       `json:"name"`
	Schema string       `json:"schema"`
	File   string       `json:"file"`
	Counts model.Counts `json:"counts"`
}

type Report struct {
	Package   string           `json:"package"`
	Output    string           `json:"output"`
	Files     []string         `json:"files"`
	Protocols []ProtocolReport `json:"protocols"`
	Counts    model.Counts     `json:"counts"`
	Duration  time.Duration    `json:"duration"`
}

// Runner carries the per-process pieces of a run. The zero value works.
type Runner struct {
	Version string
	Metrics *observability.Metrics
}

type unit struct {
	name   string
	source []byte
}

// Run builds cfg with a zero Runner.
func Run(ctx context.Context, cfg config.Config) (Report, error) {
	var r Runner
	return r.Run(ctx, cfg)
}

// Run compiles every protocol in cfg. On error nothing is written.
func (r *Runner) Run(ctx context.Context, cfg config.Config) (Report, error) {
	start := time.Now()
	report, err := r.run(ctx, cfg)
	report.Duration = time.Since(start)

	if r.Metrics != nil {
		if err != nil {
			r.Metrics.RecordFailure(FailureKind(err), report.Duration)
		} else {
			r.Metrics.RecordGeneration(len(report.Protocols), report.Counts, report.Duration)
		}
		if cfg.MetricsTextfile != "" {
			if werr := r.Metrics.WriteTextfile(cfg.MetricsTextfile); werr != nil {
				log.Warn().Err(werr).Msg("metrics textfile not written")
			}
		}
	}
	if err != nil {
		log.Error().Err(err).Str("kind", FailureKind(err)).Msg("build failed")
		return Report{}, err
	}
	log.Info().
		Str("package", report.Package).
		Int("protocols", len(report.Protocols)).
		Int("files", len(report.Files)).
		Dur("duration", report.Duration).
		Msg("build complete")
	return report, nil
}

func (r *Runner) run(ctx context.Context, cfg config.Config) (Report, error) {
	if len(cfg.Protocols) == 0 {
		return Report{}, ErrNoProtocols
	}
	if err := config.Validate(cfg); err != nil {
		return Report{}, err
	}

	var lock *compat.Lock
	if cfg.Lock != "" {
		var err error
		if lock, err = compat.Read(cfg.Lock); err != nil {
			return Report{}, err
		}
	}

	report := Report{Package: cfg.Package, Output: cfg.Output}
	var (
		units   []unit
		docs    []codegen.DocEntry
		loaded  []*model.Protocol
		claimed = map[string]string{DocFile: "package doc"}
	)
	for _, pc := range cfg.Protocols {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		p, err := schema.LoadAs(pc.Schema, pc.SchemaFormat(), cfg.SchemaOptions())
		if err != nil {
			return Report{}, err
		}
		if cfg.Strict && lock != nil {
			if err := lock.Check(p); err != nil {
				return Report{}, err
			}
		}
		if report.Package == "" {
			report.Package = naming.Package(p.Name)
		}

		file := pc.File
		if file == "" {
			file = codegen.FileName(p.Name)
		}
		if owner, ok := claimed[file]; ok {
			return Report{}, fmt.Errorf("%w: %s for %s and %s", ErrDuplicateOutput, file, owner, p.Name)
		}
		claimed[file] = p.Name

		src, err := codegen.Generate(p, codegen.Options{
			Package:    report.Package,
			WireImport: cfg.WireImport,
			Source:     sourcePath(cfg.Output, pc.Schema),
			Version:    r.Version,
		})
		if err != nil {
			return Report{}, fmt.Errorf("%s: %w", pc.Schema, err)
		}
		units = append(units, unit{name: file, source: src})
		docs = append(docs, codegen.DocEntry{Protocol: p.Name, File: file, Summary: p.Summary})
		loaded = append(loaded, p)

		counts := p.Counts()
		report.Protocols = append(report.Protocols, ProtocolReport{
			Name:   p.Name,
			Schema: pc.Schema,
			File:   file,
			Counts: counts,
		})
		report.Counts = report.Counts.Add(counts)
		log.Debug().Str("protocol", p.Name).Str("file", file).Int("bytes", len(src)).Msg("protocol emitted")
	}

	doc, err := codegen.PackageDoc(report.Package, docs, r.Version)
	if err != nil {
		return Report{}, err
	}
	units = append(units, unit{name: DocFile, source: doc})

	if err := ctx.Err(); err != nil {
		return Report{}, err
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	for _, u := range units {
		path := filepath.Join(cfg.Output, u.name)
		if err := writeFileAtomic(path, u.source); err != nil {
			return Report{}, err
		}
		report.Files = append(report.Files, path)
	}

	if lock != nil {
		for _, p := range loaded {
			lock.Update(p)
		}
		if err := lock.Write(cfg.Lock); err != nil {
			return Report{}, fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}
	return report, nil
}

// sourcePath records the schema relative to the output directory so
// headers do not depend on where the build ran.
func sourcePath(output, schemaPath string) string {
	rel, err := filepath.Rel(output, schemaPath)
	if err != nil {
		return filepath.ToSlash(filepath.Base(schemaPath))
	}
	return filepath.ToSlash(rel)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".wlgen-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWrite, path, err)
	}
	return nil
}

// FailureKind classifies err for the failures metric.
func FailureKind(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, schema.ErrIO):
		return "io"
	case errors.Is(err, schema.ErrStrict):
		return "strict"
	case errors.Is(err, schema.ErrMalformedSchema), errors.Is(err, schema.ErrEncoding), errors.Is(err, schema.ErrUnknownFormat):
		return "schema"
	case errors.Is(err, compat.ErrOpcodeChanged), errors.Is(err, compat.ErrLockFile):
		return "compat"
	case errors.Is(err, codegen.ErrNameCollision), errors.Is(err, codegen.ErrOpcodeOverflow),
		errors.Is(err, codegen.ErrInvalidName), errors.Is(err, codegen.ErrRender):
		return "codegen"
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, ErrNoProtocols), errors.Is(err, ErrDuplicateOutput):
		return "config"
	case errors.Is(err, ErrWrite):
		return "write"
	}
	return "other"
}
