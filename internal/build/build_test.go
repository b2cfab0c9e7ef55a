package build

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/danmuck/wlgen/internal/codegen"
	"github.com/danmuck/wlgen/internal/compat"
	"github.com/danmuck/wlgen/internal/config"
	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/observability"
	"github.com/danmuck/wlgen/internal/schema"
	"github.com/danmuck/wlgen/internal/testutil/testlog"
)

const greeterSchema = `name = "greeter"
summary = "Toy greeting protocol"

[[interface]]
name = "greeter"
version = 1

[[interface.request]]
name = "hello"

[[interface.request.arg]]
name = "name"
type = "string"

[[interface.request]]
name = "destroy"
destructor = true

[[interface.event]]
name = "greeting"

[[interface.event.arg]]
name = "text"
type = "string"
`

const farewellSchema = `name = "farewell"

[[interface]]
name = "farewell"
version = 1

[[interface.event]]
name = "bye"
`

func writeSchema(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return path
}

func project(t *testing.T) (config.Config, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Output = filepath.Join(dir, "out")
	cfg.Protocols = []config.ProtocolConfig{
		{Schema: writeSchema(t, dir, "greeter.toml", greeterSchema)},
		{Schema: writeSchema(t, dir, "farewell.toml", farewellSchema)},
	}
	return cfg, dir
}

func counterValue(t *testing.T, m *observability.Metrics, name string, labels ...string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if matchLabels(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(pairs []*dto.LabelPair, values []string) bool {
	for _, v := range values {
		found := false
		for _, pair := range pairs {
			if pair.GetValue() == v {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func TestRunWritesAllFiles(t *testing.T) {
	testlog.Start(t)
	cfg, _ := project(t)
	metrics := observability.NewMetrics()
	runner := Runner{Version: "v0.1.0", Metrics: metrics}

	report, err := runner.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Package != "greeter" {
		t.Fatalf("unexpected package: %q", report.Package)
	}
	wantFiles := []string{"greeter.gen.go", "farewell.gen.go", DocFile}
	if len(report.Files) != len(wantFiles) {
		t.Fatalf("unexpected files: %v", report.Files)
	}
	want := model.Counts{Interfaces: 2, Requests: 2, Events: 2}
	if report.Counts != want {
		t.Fatalf("unexpected counts: %+v", report.Counts)
	}

	fset := token.NewFileSet()
	for i, name := range wantFiles {
		path := filepath.Join(cfg.Output, name)
		if report.Files[i] != path {
			t.Fatalf("file %d: got %s want %s", i, report.Files[i], path)
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			t.Fatalf("parse %s: %v", name, err)
		}
		if f.Name.Name != "greeter" {
			t.Fatalf("%s: package %s", name, f.Name.Name)
		}
	}

	src, err := os.ReadFile(filepath.Join(cfg.Output, "greeter.gen.go"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Contains(src, []byte("// source: ../greeter.toml")) {
		t.Fatalf("missing relative source header:\n%s", src)
	}
	if !bytes.Contains(src, []byte("Code generated by wlgen v0.1.0. DO NOT EDIT.")) {
		t.Fatalf("missing version header")
	}

	if got := counterValue(t, metrics, "wlgen_generate_protocols_total"); got != 2 {
		t.Fatalf("protocols metric: got %v", got)
	}
	if got := counterValue(t, metrics, "wlgen_generate_requests_total"); got != 2 {
		t.Fatalf("requests metric: got %v", got)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	testlog.Start(t)
	cfg, _ := project(t)
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(cfg.Output, "greeter.gen.go"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(cfg.Output, "greeter.gen.go"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("output changed between runs")
	}
}

func TestRunWritesNothingOnFailure(t *testing.T) {
	testlog.Start(t)
	cfg, dir := project(t)
	cfg.Protocols = append(cfg.Protocols, config.ProtocolConfig{
		Schema: writeSchema(t, dir, "broken.toml", "name = \n"),
	})
	metrics := observability.NewMetrics()
	runner := Runner{Metrics: metrics}

	_, err := runner.Run(context.Background(), cfg)
	if !errors.Is(err, schema.ErrMalformedSchema) {
		t.Fatalf("expected ErrMalformedSchema, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Output); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("output directory created on failure: %v", statErr)
	}
	if got := counterValue(t, metrics, "wlgen_generate_failures_total", "schema"); got != 1 {
		t.Fatalf("failure metric: got %v", got)
	}
}

func TestRunRejectsDuplicateOutput(t *testing.T) {
	testlog.Start(t)
	cfg, _ := project(t)
	cfg.Protocols[0].File = "farewell.gen.go"
	_, err := Run(context.Background(), cfg)
	if !errors.Is(err, ErrDuplicateOutput) {
		t.Fatalf("expected ErrDuplicateOutput, got %v", err)
	}
}

func TestRunRequiresProtocols(t *testing.T) {
	testlog.Start(t)
	cfg := config.Default()
	cfg.Output = t.TempDir()
	if _, err := Run(context.Background(), cfg); !errors.Is(err, ErrNoProtocols) {
		t.Fatalf("expected ErrNoProtocols, got %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	testlog.Start(t)
	cfg, _ := project(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if FailureKind(err) != "canceled" {
		t.Fatalf("unexpected kind: %s", FailureKind(err))
	}
}

func TestRunEnforcesLockInStrictMode(t *testing.T) {
	testlog.Start(t)
	cfg, dir := project(t)
	cfg.Strict = true
	cfg.Lock = filepath.Join(cfg.Output, "wlgen.lock.json")

	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("first run: %v", err)
	}
	lock, err := compat.Read(cfg.Lock)
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}
	if got := lock.Protocols["greeter"].Interfaces["greeter"].Requests; len(got) != 2 || got[0] != "hello" {
		t.Fatalf("unexpected lock: %v", got)
	}
	before, err := os.ReadFile(filepath.Join(cfg.Output, "greeter.gen.go"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Swap hello and destroy.
	reordered := strings.Replace(greeterSchema, `name = "hello"

[[interface.request.arg]]
name = "name"
type = "string"

[[interface.request]]
name = "destroy"
destructor = true`, `name = "destroy"
destructor = true

[[interface.request]]
name = "hello"

[[interface.request.arg]]
name = "name"
type = "string"`, 1)
	writeSchema(t, dir, "greeter.toml", reordered)

	_, err = Run(context.Background(), cfg)
	if !errors.Is(err, compat.ErrOpcodeChanged) {
		t.Fatalf("expected ErrOpcodeChanged, got %v", err)
	}
	after, err := os.ReadFile(filepath.Join(cfg.Output, "greeter.gen.go"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("generated file rewritten after lock failure")
	}

	cfg.Strict = false
	if _, err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("permissive run: %v", err)
	}
}

func TestFailureKind(t *testing.T) {
	testlog.Start(t)
	cases := map[error]string{
		schema.ErrIO:                 "io",
		schema.ErrMalformedSchema:    "schema",
		schema.ValidationError{}:     "schema",
		compat.ErrOpcodeChanged:      "compat",
		codegen.ErrNameCollision:     "codegen",
		config.ErrInvalidConfig:      "config",
		ErrWrite:                     "write",
		context.DeadlineExceeded:     "canceled",
		errors.New("something else"): "other",
	}
	for err, want := range cases {
		if got := FailureKind(fmt.Errorf("wrapped: %w", err)); got != want {
			t.Fatalf("%v: got %s want %s", err, got, want)
		}
	}
}
