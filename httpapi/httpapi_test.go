package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oss-review-toolkit/ort-sub000/licenseinfo"
	"github.com/oss-review-toolkit/ort-sub000/licenseview"
	"github.com/oss-review-toolkit/ort-sub000/provenance"
	"github.com/oss-review-toolkit/ort-sub000/resolver"
	"github.com/oss-review-toolkit/ort-sub000/spdxexpr"
)

type fakeProvider struct {
	byID map[string]*licenseinfo.LicenseInfo
}

func (p *fakeProvider) Get(id licenseinfo.Identifier) (*licenseinfo.LicenseInfo, error) {
	info, ok := p.byID[id.String()]
	if !ok {
		return nil, &licenseinfo.ErrUnknownPackage{ID: id}
	}
	return info, nil
}

func newTestServer(t *testing.T) *Server {
	gin.SetMode(gin.TestMode)

	id := licenseinfo.Identifier{Type: "npm", Name: "example", Version: "1.0.0"}
	mit := spdxexpr.Leaf("MIT")
	provider := &fakeProvider{byID: map[string]*licenseinfo.LicenseInfo{
		id.String(): {
			ID:         id,
			Provenance: provenance.Unknown(),
			Declared: licenseinfo.DeclaredLicenseInfo{
				Licenses:        []*spdxexpr.Expression{mit},
				OriginalStrings: []string{"MIT"},
				Processed:       mit,
			},
		},
	}}

	configProvider, err := licenseinfo.NewStaticConfigurationProvider(nil, nil)
	if err != nil {
		t.Fatalf("NewStaticConfigurationProvider: %v", err)
	}
	res, err := resolver.New(provider, configProvider, resolver.Config{})
	if err != nil {
		t.Fatalf("resolver.New: %v", err)
	}

	return &Server{Program: "licenseresolve", Logf: func(string, ...interface{}) {}, Resolver: res}
}

func TestHandleResolveSuccess(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"type": "npm", "name": "example", "version": "1.0.0"})

	req := httptest.NewRequest("POST", "/resolve/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["effective_license"] != "MIT" {
		t.Errorf("expected effective_license MIT, got %v", out["effective_license"])
	}
}

func TestHandleResolveNotFound(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"type": "npm", "name": "missing"})

	req := httptest.NewRequest("POST", "/resolve/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleResolveBadRequest(t *testing.T) {
	s := newTestServer(t)
	body, _ := json.Marshal(map[string]string{"version": "1.0.0"})

	req := httptest.NewRequest("POST", "/resolve/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Errorf("expected 400 for a request missing required fields, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != 200 || rec.Body.String() != "ok" {
		t.Errorf("expected 200 \"ok\", got %d %q", rec.Code, rec.Body.String())
	}
}

func TestViewFromName(t *testing.T) {
	cases := map[string]licenseview.View{
		"ONLY_CONCLUDED":    licenseview.ONLY_CONCLUDED,
		"ONLY_DECLARED":     licenseview.ONLY_DECLARED,
		"unknown-view-name": licenseview.ALL,
		"":                  licenseview.ALL,
	}
	for name, want := range cases {
		if got := viewFromName(name); got.Name != want.Name {
			t.Errorf("viewFromName(%q) = %q, want %q", name, got.Name, want.Name)
		}
	}
}
