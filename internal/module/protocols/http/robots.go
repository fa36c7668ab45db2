package http

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/model"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
)

// Robots fetches and parses robots.txt, persisting each Allow/Disallow/
// Sitemap directive as a model.RobotsEntry.
type Robots struct {
	timeout time.Duration
}

func (m *Robots) Name() string { return "robots" }

func (m *Robots) Options() []module.OptionSpec { return nil }

func (m *Robots) ConfigKey() string { return "fuzzer" }

func (m *Robots) Configure(cfg *config.Config) {
	m.timeout = time.Duration(cfg.GetInt("fuzzer.timeout", 10)) * time.Second
}

// Run fetches http://target:port/robots.txt and persists its directives.
func (m *Robots) Run(ctx context.Context, target string, port int, _ map[string]any) (module.Result, error) {
	url := fmt.Sprintf("http://%s:%d/robots.txt", target, port)

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
	if resp.StatusCode() != 200 {
		return nil, nil
	}

	entries := parseRobots(string(resp.Body()))

	vhost, err := module.Store.GetOrCreateVirtualHost(ctx, target, target, port)
	if err != nil {
		return entries, &nherrors.StoreError{Op: "GetOrCreateVirtualHost", Err: err}
	}
	for _, e := range entries {
		if _, err := module.Store.GetOrCreateRobotsEntry(ctx, vhost.ID, e.Path); err != nil {
			return entries, &nherrors.StoreError{Op: "GetOrCreateRobotsEntry", Err: err}
		}
	}
	return entries, nil
}

// parseRobots extracts Allow/Disallow/Sitemap directives from robots.txt
// body text.
func parseRobots(body string) []model.RobotsEntry {
	var entries []model.RobotsEntry
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		switch {
		case hasDirective(line, "disallow:"):
			entries = append(entries, model.RobotsEntry{Path: directiveValue(line, "disallow:"), Kind: model.RobotsDisallowed})
		case hasDirective(line, "allow:"):
			entries = append(entries, model.RobotsEntry{Path: directiveValue(line, "allow:"), Kind: model.RobotsAllowed})
		case hasDirective(line, "sitemap:"):
			entries = append(entries, model.RobotsEntry{Path: directiveValue(line, "sitemap:"), Kind: model.RobotsSitemap})
		}
	}
	return entries
}

func hasDirective(line, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(line), prefix)
}

func directiveValue(line, prefix string) string {
	return strings.TrimSpace(line[len(prefix):])
}

var _ registry.Module = (*Robots)(nil)

func init() {
	registry.Default.Modules.Register(registry.ModuleDescriptor{
		Name:    "robots",
		Path:    "http.robots",
		Service: "http",
		Factory: func() registry.Module { return &Robots{} },
	})
}
