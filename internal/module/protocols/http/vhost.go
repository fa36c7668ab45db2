package http

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/fuzzer"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
)

// VHost enumerates virtual hosts on a target IP by brute-forcing the Host
// header, using the fuzzer's VHost mode, and registering confirmed hits
// against /etc/hosts via module.Hosts so they resolve on later requests.
type VHost struct {
	raw *config.Config
}

func (m *VHost) Name() string { return "vhost" }

func (m *VHost) Options() []module.OptionSpec {
	return []module.OptionSpec{
		{Name: "domain", Type: "string", Default: "", Help: "base domain candidate hostnames are built under"},
	}
}

func (m *VHost) ConfigKey() string { return "fuzzer" }

func (m *VHost) Configure(cfg *config.Config) { m.raw = cfg }

// Run fuzzes Host headers against target:port and persists each confirmed
// virtual host.
func (m *VHost) Run(ctx context.Context, target string, port int, args map[string]any) (module.Result, error) {
	domain, _ := args["domain"].(string)
	if domain == "" {
		domain = target
	}

	fcfg, err := fuzzerConfig(m.raw, nil)
	if err != nil {
		return nil, fmt.Errorf("vhost module: %w", err)
	}

	targetURL := fmt.Sprintf("http://%s:%d/", target, port)
	engine := fuzzer.NewVHostEngine(fcfg, targetURL, target, domain, module.Hosts)
	if module.Verbose {
		engine.SetProgress(progressbar.Default(int64(len(fcfg.Wordlist)), fmt.Sprintf("vhost %s", domain)))
	}
	results := engine.Run(ctx, targetURL)

	for _, r := range results {
		if module.Hosts != nil {
			_ = module.Hosts.Register(target, r.Path)
		}
		if _, err := module.Store.GetOrCreateVirtualHost(ctx, target, r.Path, port); err != nil {
			return results, &nherrors.StoreError{Op: "GetOrCreateVirtualHost", Err: err}
		}
	}
	return results, nil
}

var _ registry.Module = (*VHost)(nil)

func init() {
	registry.Default.Modules.Register(registry.ModuleDescriptor{
		Name:    "vhost",
		Path:    "http.vhost",
		Service: "http",
		Factory: func() registry.Module { return &VHost{} },
	})
}
