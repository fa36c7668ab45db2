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

// Dir enumerates directories/files under a base URL using the fuzzer's
// Directory mode, persisting every confirmed hit as a model.PathEntry.
type Dir struct {
	raw *config.Config
}

func (m *Dir) Name() string { return "dir" }

func (m *Dir) Options() []module.OptionSpec {
	return []module.OptionSpec{
		{Name: "extensions", Type: "string", Default: "", Help: "comma-separated extensions to append (e.g. php,bak)"},
		{Name: "recursive", Type: "bool", Default: false, Help: "recurse into discovered directories"},
	}
}

func (m *Dir) ConfigKey() string { return "fuzzer" }

func (m *Dir) Configure(cfg *config.Config) { m.raw = cfg }

// Run fuzzes target:port for directories/files and persists each hit under
// the virtual host (target, port).
func (m *Dir) Run(ctx context.Context, target string, port int, args map[string]any) (module.Result, error) {
	var extensions []string
	if raw, _ := args["extensions"].(string); raw != "" {
		extensions = splitCommaList(raw)
	}

	fcfg, err := fuzzerConfig(m.raw, extensions)
	if err != nil {
		return nil, fmt.Errorf("dir module: %w", err)
	}
	if recursive, _ := args["recursive"].(bool); recursive {
		fcfg.Recursion = true
		fcfg.MaxDepth = 3
	}

	base := fmt.Sprintf("http://%s:%d/", target, port)
	engine := fuzzer.NewDirectoryEngine(fcfg)
	if module.Verbose {
		engine.SetProgress(progressbar.Default(int64(len(fcfg.Wordlist)), fmt.Sprintf("dir %s", base)))
	}
	results := engine.Run(ctx, base)

	vhost, err := module.Store.GetOrCreateVirtualHost(ctx, target, target, port)
	if err != nil {
		return results, &nherrors.StoreError{Op: "GetOrCreateVirtualHost", Err: err}
	}
	for _, r := range results {
		if _, err := module.Store.GetOrCreatePathEntry(ctx, vhost.ID, r.Path); err != nil {
			return results, &nherrors.StoreError{Op: "GetOrCreatePathEntry", Err: err}
		}
	}
	return results, nil
}

func splitCommaList(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

var _ registry.Module = (*Dir)(nil)

func init() {
	registry.Default.Modules.Register(registry.ModuleDescriptor{
		Name:    "dir",
		Path:    "http.dir",
		Service: "http",
		Factory: func() registry.Module { return &Dir{} },
	})
}
