package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/wlgen/internal/build"
	"github.com/danmuck/wlgen/internal/config"
	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/observability"
	"github.com/danmuck/wlgen/internal/schema"
	"github.com/danmuck/wlgen/internal/server"
)

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("wlgen "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func runGenerate(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("generate", stderr)
	configPath := fs.String("config", "", "project file (default wlgen.toml when no schemas are given)")
	output := fs.String("o", "", "output directory")
	pkg := fs.String("package", "", "package name (default: first protocol name)")
	strict := fs.Bool("strict", false, "enable strict schema checks")
	lock := fs.String("lock", "", "opcode lock file")
	wireImport := fs.String("wire", "", "import path of the wire runtime")
	textfile := fs.String("textfile", "", "write metrics in node-exporter textfile format")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var cfg config.Config
	if fs.NArg() > 0 {
		if *configPath != "" {
			return usageError{"-config and schema arguments are exclusive"}
		}
		cfg = config.Default()
		for _, path := range fs.Args() {
			cfg.Protocols = append(cfg.Protocols, config.ProtocolConfig{Schema: path})
		}
	} else {
		path := *configPath
		if path == "" {
			path = config.DefaultPath
		}
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}

	// Flags override the project file.
	if *output != "" {
		cfg.Output = *output
	}
	if *pkg != "" {
		cfg.Package = *pkg
	}
	if *strict {
		cfg.Strict = true
	}
	if *lock != "" {
		cfg.Lock = *lock
	}
	if *wireImport != "" {
		cfg.WireImport = *wireImport
	}
	if *textfile != "" {
		cfg.MetricsTextfile = *textfile
	}

	observability.InitLogger("wlgen")
	runner := build.Runner{Version: version, Metrics: observability.NewMetrics()}
	report, err := runner.Run(ctx, cfg)
	if err != nil {
		return err
	}
	for _, pr := range report.Protocols {
		fmt.Fprintf(stdout, "%s -> %s (%d interfaces, %d requests, %d events, %d enums)\n",
			pr.Name, filepath.Join(report.Output, pr.File),
			pr.Counts.Interfaces, pr.Counts.Requests, pr.Counts.Events, pr.Counts.Enums)
	}
	fmt.Fprintf(stdout, "wrote %d files to %s in %s\n", len(report.Files), report.Output, report.Duration)
	return nil
}

func runValidate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("validate", stderr)
	strict := fs.Bool("strict", false, "enable strict schema checks")
	format := fs.String("format", "", "schema format (default: by extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return usageError{"at least one schema is required"}
	}
	observability.InitLogger("wlgen")

	var failed int
	for _, path := range fs.Args() {
		p, err := loadSchema(path, *format, *strict)
		if err != nil {
			failed++
			fmt.Fprintf(stdout, "FAIL %s: %v\n", path, err)
			continue
		}
		c := p.Counts()
		fmt.Fprintf(stdout, "ok   %s: %s (%d interfaces, %d requests, %d events, %d enums)\n",
			path, p.Name, c.Interfaces, c.Requests, c.Events, c.Enums)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d schemas invalid", failed, fs.NArg())
	}
	return nil
}

func runDump(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("dump", stderr)
	indent := fs.Bool("indent", false, "indent the JSON output")
	strict := fs.Bool("strict", false, "enable strict schema checks")
	format := fs.String("format", "", "schema format (default: by extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageError{"exactly one schema is required"}
	}
	observability.InitLogger("wlgen")

	p, err := loadSchema(fs.Arg(0), *format, *strict)
	if err != nil {
		return err
	}
	var data []byte
	if *indent {
		data, err = json.MarshalIndent(p, "", "  ")
	} else {
		data, err = json.Marshal(p)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", data)
	return err
}

func runInit(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("init", stderr)
	output := fs.String("output", config.DefaultPath, "output path for the project file")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote project template to %s\n", *output)
	return nil
}

func runServe(ctx context.Context, args []string, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	configPath := fs.String("config", config.DefaultPath, "project file; defaults apply when it is absent")
	addr := fs.String("addr", "", "listen address (overrides serve.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Default()
	if _, err := os.Stat(*configPath); err == nil {
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if *addr != "" {
		cfg.Serve.Addr = *addr
	}

	logger := observability.InitLogger("wlgen-serve")
	logger.Info().Str("addr", cfg.Serve.Addr).Strs("cors", cfg.Serve.CorsOrigins).Msg("starting")
	return server.New(cfg, version, nil).Serve(ctx)
}

func loadSchema(path, format string, strict bool) (*model.Protocol, error) {
	f := schema.FormatFromPath(path)
	if format != "" {
		var err error
		if f, err = schema.ParseFormat(format); err != nil {
			return nil, usageError{err.Error()}
		}
	}
	log.Debug().Str("path", path).Str("format", string(f)).Msg("loading schema")
	return schema.LoadAs(path, f, schema.Options{Strict: strict})
}
