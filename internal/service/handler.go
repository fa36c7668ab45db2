// Package service implements the service-handler layer: given a discovered
// or named service, it resolves the listener modules configured for it and
// runs them against a target, following the same
// should_run_module/before_run/after_run hook sequence the source system's
// ServiceHandler base class exposes to its subclasses.
package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
)

// Hooks lets a concrete service override the handler's pre/post-module
// behavior; every field is optional and no-ops when nil.
type Hooks struct {
	ShouldRunModule func(md *registry.ModuleDescriptor) bool
	BeforeRun       func(md *registry.ModuleDescriptor)
	AfterRun        func(md *registry.ModuleDescriptor, result module.Result, runErr error)
}

// Handler is the shared run_listeners/run_modules implementation every
// concrete service embeds.
type Handler struct {
	ServiceName string
	Aliases     []string
	DefaultPort int
	Listeners   []string

	Modules *registry.ModuleRegistry
	Config  *config.Config
	Log     *zap.Logger
	Hooks   Hooks

	// ModuleArgs overrides a module's declared-option defaults with values
	// already parsed from the CLI's argv (see internal/module.FilterModuleArgs),
	// keyed by module name. Nil or a missing key means "use the module's own
	// defaults".
	ModuleArgs map[string]map[string]any
}

// Name satisfies registry.Service.
func (h *Handler) Name() string { return h.ServiceName }

// RunListeners loads every configured listener module and runs each against
// target at port, falling back to DefaultPort when port is nil.
func (h *Handler) RunListeners(ctx context.Context, target string, port *int) ([]module.Result, error) {
	resolved, ok := h.resolvePort(port)
	if !ok {
		h.warn("no port available for service %q, skipping listeners", h.ServiceName)
		return nil, nil
	}

	if len(h.Listeners) == 0 {
		h.warn("no listeners configured for service %q", h.ServiceName)
		return nil, nil
	}

	var results []module.Result
	for _, name := range h.Listeners {
		result, err := h.runNamed(ctx, name, target, resolved)
		if err != nil {
			return results, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// RunModules runs exactly the named modules against target at port, falling
// back to DefaultPort when port is nil.
func (h *Handler) RunModules(ctx context.Context, target string, port *int, names []string) ([]module.Result, error) {
	resolved, ok := h.resolvePort(port)
	if !ok {
		h.warn("no port available for service %q, skipping modules", h.ServiceName)
		return nil, nil
	}

	var results []module.Result
	for _, name := range names {
		result, err := h.runNamed(ctx, name, target, resolved)
		if err != nil {
			return results, err
		}
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

func (h *Handler) resolvePort(port *int) (int, bool) {
	if port != nil {
		return *port, true
	}
	if h.DefaultPort != 0 {
		return h.DefaultPort, true
	}
	return 0, false
}

func (h *Handler) runNamed(ctx context.Context, name, target string, port int) (module.Result, error) {
	md, err := h.Modules.Find(name)
	if err != nil {
		var notFound *nherrors.ModuleNotFound
		if errors.As(err, &notFound) {
			h.warn("no module %q found on service %q, skipping", name, h.ServiceName)
			return nil, nil
		}
		return nil, err
	}

	if h.Hooks.ShouldRunModule != nil && !h.Hooks.ShouldRunModule(md) {
		return nil, nil
	}
	if h.Hooks.BeforeRun != nil {
		h.Hooks.BeforeRun(md)
	}

	instance := md.Factory()
	m, ok := instance.(module.Module)
	if !ok {
		return nil, fmt.Errorf("module %q does not implement module.Module", name)
	}
	if configured, ok := m.(module.Configured); ok && h.Config != nil {
		configured.Configure(h.Config)
	}

	args, err := module.ParseOptions(nil, m.Options())
	if err != nil {
		return nil, fmt.Errorf("default options for module %q: %w", name, err)
	}
	for k, v := range h.ModuleArgs[name] {
		args[k] = v
	}

	result, runErr := m.Run(ctx, target, port, args)
	if h.Hooks.AfterRun != nil {
		h.Hooks.AfterRun(md, result, runErr)
	}
	return result, runErr
}

func (h *Handler) warn(format string, args ...any) {
	if h.Log != nil {
		h.Log.Sugar().Warnf(format, args...)
	}
}

