package service

import (
	"go.uber.org/zap"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/registry"
)

// httpListenerConfigKey is the dotted config path HTTP reads its listener
// list from, e.g. "http.listeners: [dir, vhost, robots, tech]".
const httpListenerConfigKey = "http.listeners"

// defaultHTTPListeners is used when the config file declares none.
var defaultHTTPListeners = []string{"dir", "vhost", "robots", "tech"}

// NewHTTPHandler builds the "http" service handler, reading its listener
// list from cfg when present and falling back to defaultHTTPListeners.
func NewHTTPHandler(cfg *config.Config, log *zap.Logger) *Handler {
	listeners := defaultHTTPListeners
	if cfg != nil {
		if raw, ok := cfg.Get(httpListenerConfigKey); ok {
			if parsed, ok := toStringSlice(raw); ok && len(parsed) > 0 {
				listeners = parsed
			}
		}
	}
	return &Handler{
		ServiceName: "http",
		Aliases:     []string{"https", "www"},
		DefaultPort: 80,
		Listeners:   listeners,
		Modules:     registry.Default.Modules,
		Config:      cfg,
		Log:         log,
	}
}

func toStringSlice(raw any) ([]string, bool) {
	list, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			return strs, true
		}
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func init() {
	registry.Default.Services.Register(registry.ServiceDescriptor{
		Name:    "http",
		Aliases: []string{"https", "www"},
		Ports:   []int{80, 443, 8080, 8443},
		New: func() registry.Service {
			return NewHTTPHandler(nil, nil)
		},
	})
}
