// Package httpapi exposes the resolver over HTTP, generalized from the
// donor's webserver package: gin.New() plus LoggerWithWriter(LogWriter) and
// Recovery for routing and access logging, but serving resolve endpoints instead of a
// scan-and-render page, and without the donor's embedded static asset
// (which this repository never retrieved).
package httpapi

import (
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"
	"github.com/shurcooL/sanitized_anchor_name"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/licenseview"
	"github.com/oss-review-toolkit/ort-sub000/report"
	"github.com/oss-review-toolkit/ort-sub000/resolver"
)

// LogWriter adapts a Logf-style function to io.Writer, so gin's access-log
// middleware can be pointed at the same logging sink as the rest of the
// program, matching the donor webserver's logging wiring.
type LogWriter struct {
	Logf func(format string, v ...interface{})
}

// Write implements io.Writer.
func (w LogWriter) Write(p []byte) (int, error) {
	w.Logf("%s", string(p))
	return len(p), nil
}

// Server serves the license resolver over HTTP.
type Server struct {
	Program  string
	Debug    bool
	Logf     func(format string, v ...interface{})
	Resolver *resolver.Resolver

	// Addr is the listen address, eg ":8080".
	Addr string
}

const indexTemplate = `<!DOCTYPE html>
<html><head><title>{{.Program}}</title></head>
<body><h1>{{.Program}}</h1>
<p>POST /resolve/ with a JSON body {"type","namespace","name","version"} to resolve a package's license info.</p>
</body></html>`

// Router builds the gin engine serving this server's routes.
func (s *Server) Router() *gin.Engine {
	gin.DefaultWriter = LogWriter{Logf: s.Logf}

	r := gin.New()
	r.Use(gin.LoggerWithWriter(LogWriter{Logf: s.Logf}))
	r.Use(gin.Recovery())

	renderer := multitemplate.NewRenderer()
	tmpl := template.Must(template.New("index").Parse(indexTemplate))
	renderer.Add("index", tmpl)
	r.HTMLRender = renderer

	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index", gin.H{"Program": s.Program})
	})

	r.POST("/resolve/", s.handleResolve)
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	return r
}

type resolveRequest struct {
	Type      string `json:"type" binding:"required"`
	Namespace string `json:"namespace"`
	Name      string `json:"name" binding:"required"`
	Version   string `json:"version"`
	View      string `json:"view"`
}

func (s *Server) handleResolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := licenseinfo.Identifier{
		Type:      req.Type,
		Namespace: req.Namespace,
		Name:      req.Name,
		Version:   req.Version,
	}

	info, err := s.Resolver.ResolveLicenseInfo(id)
	if err != nil {
		if _, ok := err.(*licenseinfo.ErrUnknownPackage); ok {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	view := viewFromName(req.View)
	effective, err := licenseview.EffectiveLicense(info, view)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	plain := report.Render(info, report.StylePlain)

	c.JSON(http.StatusOK, gin.H{
		"id":                sanitized_anchor_name.Create(id.String()),
		"effective_license": exprString(effective),
		"report":            plain,
	})
}

func exprString(e interface{ String() string }) string {
	if e == nil {
		return ""
	}
	return e.String()
}

func viewFromName(name string) licenseview.View {
	switch name {
	case "CONCLUDED_OR_REST":
		return licenseview.CONCLUDED_OR_REST
	case "CONCLUDED_OR_DECLARED_OR_DETECTED":
		return licenseview.CONCLUDED_OR_DECLARED_OR_DETECTED
	case "CONCLUDED_OR_DETECTED":
		return licenseview.CONCLUDED_OR_DETECTED
	case "ONLY_CONCLUDED":
		return licenseview.ONLY_CONCLUDED
	case "ONLY_DECLARED":
		return licenseview.ONLY_DECLARED
	case "ONLY_DETECTED":
		return licenseview.ONLY_DETECTED
	default:
		return licenseview.ALL
	}
}

// Run starts the HTTP server and blocks until it exits or errors.
func (s *Server) Run() error {
	addr := s.Addr
	if addr == "" {
		addr = ":8080"
	}
	s.Logf("listening on %s", addr)
	if err := s.Router().Run(addr); err != nil {
		return fmt.Errorf("httpapi: server exited: %w", err)
	}
	return nil
}

var _ io.Writer = LogWriter{}
