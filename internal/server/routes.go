package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"

	"github.com/danmuck/wlgen/internal/build"
	"github.com/danmuck/wlgen/internal/codegen"
	"github.com/danmuck/wlgen/internal/model"
	"github.com/danmuck/wlgen/internal/observability"
	"github.com/danmuck/wlgen/internal/schema"
)

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": "wlgen",
			"version": s.Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(s.metricsHandler()))

	v1 := s.router.Group("/v1")
	v1.POST("/generate", s.handleGenerate)
	v1.POST("/validate", s.handleValidate)
	v1.POST("/dump", s.handleDump)
}

func (s *Server) handleGenerate(c *gin.Context) {
	start := time.Now()
	p, ok := s.loadSchema(c, start)
	if !ok {
		return
	}
	src, err := codegen.Generate(p, codegen.Options{
		Package:    c.Query("package"),
		WireImport: s.wireImport,
		Version:    s.Version,
	})
	if err != nil {
		s.fail(c, http.StatusBadRequest, err, start)
		return
	}
	s.metrics.RecordGeneration(1, p.Counts(), time.Since(start))
	c.Header("Content-Disposition", `attachment; filename="`+codegen.FileName(p.Name)+`"`)
	c.Data(http.StatusOK, "text/x-go; charset=utf-8", src)
}

func (s *Server) handleValidate(c *gin.Context) {
	p, ok := s.loadSchema(c, time.Now())
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"protocol": p.Name,
		"counts":   p.Counts(),
	})
}

func (s *Server) handleDump(c *gin.Context) {
	start := time.Now()
	p, ok := s.loadSchema(c, start)
	if !ok {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		s.fail(c, http.StatusInternalServerError, err, start)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// loadSchema reads and parses the request body. On failure the response is
// already written.
func (s *Server) loadSchema(c *gin.Context, start time.Time) (*model.Protocol, bool) {
	format, err := schema.ParseFormat(c.Query("format"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, err, start)
		return nil, false
	}
	c.Set(observability.KeyFormat, string(format))
	strict := false
	if raw := c.Query("strict"); raw != "" {
		if strict, err = strconv.ParseBool(raw); err != nil {
			s.fail(c, http.StatusBadRequest, errors.New("strict must be a boolean"), start)
			return nil, false
		}
	}
	c.Set(observability.KeyStrict, strict)

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxSchemaBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(c, http.StatusRequestEntityTooLarge, err, start)
			return nil, false
		}
		s.fail(c, http.StatusBadRequest, err, start)
		return nil, false
	}

	p, err := schema.Parse(data, format, schema.Options{Strict: strict})
	if err != nil {
		s.fail(c, http.StatusBadRequest, err, start)
		return nil, false
	}
	c.Set(observability.KeyProtocol, p.Name)
	return p, true
}

func (s *Server) fail(c *gin.Context, status int, err error, start time.Time) {
	kind := build.FailureKind(err)
	s.metrics.RecordFailure(kind, time.Since(start))
	c.Set(observability.KeyFailure, kind)

	body := gin.H{"error": err.Error(), "kind": kind}
	var ve schema.ValidationError
	if errors.As(err, &ve) {
		body["interface"] = ve.Interface
		body["member"] = ve.Member
	}
	c.JSON(status, body)
}
