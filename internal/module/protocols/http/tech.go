package http

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/model"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
)

// techSignature matches a response header to a technology name, optionally
// extracting a version from the header's value.
type techSignature struct {
	header     string
	name       string
	versionRe  *regexp.Regexp
	detectedBy string
}

var techSignatures = []techSignature{
	{header: "Server", name: "nginx", versionRe: regexp.MustCompile(`nginx/([0-9.]+)`), detectedBy: "header"},
	{header: "Server", name: "Apache", versionRe: regexp.MustCompile(`Apache/([0-9.]+)`), detectedBy: "header"},
	{header: "X-Powered-By", name: "PHP", versionRe: regexp.MustCompile(`PHP/([0-9.]+)`), detectedBy: "header"},
	{header: "X-Powered-By", name: "Express", versionRe: regexp.MustCompile(`Express(?:/([0-9.]+))?`), detectedBy: "header"},
	{header: "X-AspNet-Version", name: "ASP.NET", versionRe: regexp.MustCompile(`([0-9.]+)`), detectedBy: "header"},
}

// Tech fingerprints a target's technology stack from its HTTP response
// headers, persisting every match as a model.Technology.
type Tech struct {
	timeout time.Duration
}

func (m *Tech) Name() string { return "tech" }

func (m *Tech) Options() []module.OptionSpec { return nil }

func (m *Tech) ConfigKey() string { return "fuzzer" }

func (m *Tech) Configure(cfg *config.Config) {
	m.timeout = time.Duration(cfg.GetInt("fuzzer.timeout", 10)) * time.Second
}

// Run fetches target:port's root page and matches its headers against
// techSignatures.
func (m *Tech) Run(ctx context.Context, target string, port int, _ map[string]any) (module.Result, error) {
	url := fmt.Sprintf("http://%s:%d/", target, port)

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(url)

	timeout := m.timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	if err := fasthttp.DoTimeout(req, resp, timeout); err != nil {
		return nil, &nherrors.TransientIOError{Attempts: 1, Err: err}
	}

	var found []model.Technology
	for _, sig := range techSignatures {
		value := string(resp.Header.Peek(sig.header))
		if value == "" {
			continue
		}
		match := sig.versionRe.FindStringSubmatch(value)
		if match == nil {
			continue
		}
		version := ""
		if len(match) > 1 {
			version = match[1]
		}
		found = append(found, model.Technology{Name: sig.name, Version: version, DetectedBy: sig.detectedBy})
	}

	vhost, err := module.Store.GetOrCreateVirtualHost(ctx, target, target, port)
	if err != nil {
		return found, &nherrors.StoreError{Op: "GetOrCreateVirtualHost", Err: err}
	}
	for _, t := range found {
		if _, err := module.Store.GetOrCreateTechnology(ctx, vhost.ID, t.Name, t.Version); err != nil {
			return found, &nherrors.StoreError{Op: "GetOrCreateTechnology", Err: err}
		}
	}
	return found, nil
}

var _ registry.Module = (*Tech)(nil)

func init() {
	registry.Default.Modules.Register(registry.ModuleDescriptor{
		Name:    "tech",
		Path:    "http.tech",
		Service: "http",
		Factory: func() registry.Module { return &Tech{} },
	})
}
