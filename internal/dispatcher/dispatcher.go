// Package dispatcher selects and runs one of NetHawk's three dispatch
// strategies from a (service, modules) input tuple: full service discovery
// via the port-scan driver, a named service's configured listeners, or an
// explicit list of modules.
package dispatcher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
	"github.com/nethawk-io/nethawk/internal/resolver"
	"github.com/nethawk-io/nethawk/internal/scanner"
	"github.com/nethawk-io/nethawk/internal/service"
	"github.com/nethawk-io/nethawk/internal/store"
)

// Request is the dispatcher's input tuple.
type Request struct {
	Target  string
	Service string   // "" means unset
	Modules []string // nil/empty means unset
	Ports   []int    // nil means "use default port"
}

// Strategy names the selected dispatch mode, exported for logging/tests.
type Strategy string

const (
	ServiceDiscovery Strategy = "service_discovery"
	ServiceListeners Strategy = "service_listeners"
	ServiceModules   Strategy = "service_modules"
)

// Select returns the strategy implied by req's (service, modules) tuple, or
// an *nherrors.InvalidDispatch error when service is unset but modules is
// not — the one combination the table excludes (§8 P1).
func Select(req Request) (Strategy, error) {
	switch {
	case req.Service == "" && len(req.Modules) == 0:
		return ServiceDiscovery, nil
	case req.Service == "" && len(req.Modules) > 0:
		return "", &nherrors.InvalidDispatch{Service: req.Service, Modules: req.Modules}
	case req.Service != "" && len(req.Modules) == 0:
		return ServiceListeners, nil
	default:
		return ServiceModules, nil
	}
}

// Dispatcher wires together the components every strategy needs.
type Dispatcher struct {
	Resolver     *resolver.Resolver
	Services     *registry.ServiceRegistry
	Modules      *registry.ModuleRegistry
	Store        store.Store
	Config       *config.Config
	Log          *zap.Logger
	NmapScanType string
	NmapConfig   scanner.Config

	// ModuleArgs carries CLI-parsed per-module flag overrides (see
	// internal/module.FilterModuleArgs) through to whichever handler ends up
	// running the named module.
	ModuleArgs map[string]map[string]any
}

// Run resolves req.Target, selects a strategy, and executes it. A fatal
// resolver error (DNS failure) logs and returns nil — the orchestrator never
// aborts the whole process on one bad target. A TCP-phase error (the probed
// port didn't accept a connection) is recoverable and never aborts dispatch:
// the scanner may still find the host reachable even when our own probe did
// not, so it is distinguished from a DNS failure by whether ep.IP was ever
// populated, not by the error's presence.
func (d *Dispatcher) Run(ctx context.Context, req Request) error {
	strategy, err := Select(req)
	if err != nil {
		return err
	}

	var portOverride *int
	if len(req.Ports) == 1 {
		portOverride = &req.Ports[0]
	}

	ep, err := d.Resolver.Resolve(ctx, req.Target, portOverride)
	if err != nil {
		d.Log.Sugar().Warnw("resolver reported a fatal error, skipping target", "target", req.Target, "error", err)
		return nil
	}
	if ep.IP == "" {
		d.Log.Sugar().Warnw("resolver could not determine an IP for target, skipping", "target", req.Target, "error", ep.Error)
		return nil
	}

	ports := req.Ports
	if len(ports) == 0 {
		ports = []int{0} // sentinel: "use default port", resolved per-strategy
	}

	switch strategy {
	case ServiceDiscovery:
		return d.runServiceDiscovery(ctx, ep, ports)
	case ServiceListeners:
		return d.runServiceListeners(ctx, ep, req.Service, ports)
	case ServiceModules:
		return d.runServiceModules(ctx, ep, req.Service, req.Modules, ports)
	default:
		return fmt.Errorf("unreachable strategy %q", strategy)
	}
}

func (d *Dispatcher) runServiceDiscovery(ctx context.Context, ep *resolver.Endpoint, ports []int) error {
	for _, p := range ports {
		var portPtr *int
		if p != 0 {
			portPtr = &p
		}
		if err := d.runNmap(ctx, ep, portPtr); err != nil {
			d.Log.Sugar().Errorw("nmap module failed", "target", ep.IP, "error", err)
		}
	}

	services, err := d.Store.ServicesByTargetIP(ctx, ep.IP)
	if err != nil {
		return &nherrors.StoreError{Op: "ServicesByTargetIP", Err: err}
	}

	for _, svc := range services {
		if svc.Name == "" {
			continue
		}
		sd, err := d.Services.Find(svc.Name)
		if err != nil {
			d.Log.Sugar().Warnw("no service handler found, skipping", "service", svc.Name, "port", svc.Port, "error", err)
			continue
		}
		handler := sd.New()
		h, ok := handler.(*service.Handler)
		if !ok {
			continue
		}
		h.Config = d.Config
		h.Log = d.Log
		port := svc.Port
		if _, err := h.RunListeners(ctx, ep.IP, &port); err != nil {
			d.Log.Sugar().Warnw("service handler listener run failed, skipping", "service", sd.Name, "error", err)
		}
	}
	return nil
}

func (d *Dispatcher) runServiceListeners(ctx context.Context, ep *resolver.Endpoint, serviceName string, ports []int) error {
	handler, err := d.resolveHandler(serviceName)
	if err != nil {
		d.Log.Sugar().Warnw("no service handler found, skipping", "service", serviceName, "error", err)
		return nil
	}

	for _, p := range ports {
		var portPtr *int
		if p != 0 {
			portPtr = &p
		}
		if _, err := handler.RunListeners(ctx, ep.IP, portPtr); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) runServiceModules(ctx context.Context, ep *resolver.Endpoint, serviceName string, modules []string, ports []int) error {
	handler, err := d.resolveHandler(serviceName)
	if err != nil {
		d.Log.Sugar().Warnw("no service handler found, skipping", "service", serviceName, "error", err)
		return nil
	}

	for _, p := range ports {
		var portPtr *int
		if p != 0 {
			portPtr = &p
		}
		if _, err := handler.RunModules(ctx, ep.IP, portPtr, modules); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) resolveHandler(serviceName string) (*service.Handler, error) {
	sd, err := d.Services.Find(serviceName)
	if err != nil {
		return nil, err
	}
	instance := sd.New()
	h, ok := instance.(*service.Handler)
	if !ok {
		return nil, fmt.Errorf("service %q is not backed by a *service.Handler", serviceName)
	}
	h.Config = d.Config
	h.Log = d.Log
	h.ModuleArgs = d.ModuleArgs
	return h, nil
}

func (d *Dispatcher) runNmap(ctx context.Context, ep *resolver.Endpoint, port *int) error {
	md, err := d.Modules.Find("nmap")
	if err != nil {
		return err
	}
	m, ok := md.Factory().(module.Module)
	if !ok {
		return fmt.Errorf("nmap module descriptor does not implement module.Module")
	}
	if configured, ok := m.(module.Configured); ok && d.Config != nil {
		configured.Configure(d.Config)
	}
	args, err := module.ParseOptions(nil, m.Options())
	if err != nil {
		return err
	}
	if d.NmapScanType != "" {
		args["profile"] = d.NmapScanType
	}

	resolvedPort := 0
	if port != nil {
		resolvedPort = *port
	}
	_, err = m.Run(ctx, ep.IP, resolvedPort, args)
	return err
}
