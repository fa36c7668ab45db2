// Package discovery holds service-discovery modules — currently just nmap,
// the port-scan driver module that ServiceDiscovery dispatch always runs
// first against a target.
package discovery

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
	"github.com/nethawk-io/nethawk/internal/scanner"
)

// Nmap wraps internal/scanner, persisting the discovered ports as Service
// records in module.Store.
type Nmap struct {
	cfg scanner.Config
}

// Configure reads the `nmap` config section into the scanner.Config the
// module builds its command line from.
func (m *Nmap) Configure(cfg *config.Config) {
	profiles := map[string]scanner.Profile{}
	for _, name := range []string{"default", "full"} {
		key := "nmap.profiles." + name
		if _, ok := cfg.Get(key); !ok {
			continue
		}
		profiles[name] = scanner.Profile{
			Ports:     cfg.GetString(key+".ports", ""),
			Arguments: cfg.GetString(key+".arguments", ""),
		}
	}
	m.cfg = scanner.Config{
		Profiles:   profiles,
		TCPPorts:   cfg.GetString("nmap.ports.tcp", "1-1000"),
		MaxRetries: cfg.GetInt("nmap.max_retries", 2),
		MinRate:    cfg.GetInt("nmap.min_rate", 1000),
	}
}

func (m *Nmap) Name() string { return "nmap" }

func (m *Nmap) Options() []module.OptionSpec {
	return []module.OptionSpec{
		{Name: "profile", Type: "string", Default: "default", Help: "nmap profile to run"},
	}
}

func (m *Nmap) ConfigKey() string { return "nmap" }

// Run scans target, parses the nmap XML report, and persists every port the
// report lists for target as a Service record with the state nmap reported
// (closed and filtered ports included).
func (m *Nmap) Run(ctx context.Context, target string, port int, args map[string]any) (module.Result, error) {
	profile, _ := args["profile"].(string)
	if profile == "" {
		profile = "default"
	}

	s, err := scanner.New(target, m.cfg, profile)
	if err != nil {
		return nil, fmt.Errorf("nmap module: %w", err)
	}
	defer s.Close()

	ports := ""
	if port != 0 {
		ports = strconv.Itoa(port)
	}
	if err := s.Scan(ctx, ports); err != nil {
		return nil, &nherrors.TransientIOError{Attempts: 1, Err: err}
	}

	results, err := s.ParseResults()
	if err != nil {
		return nil, fmt.Errorf("nmap module: %w", err)
	}

	if _, err := module.Store.GetOrCreateTarget(ctx, target); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateTarget", Err: err}
	}

	fingerprints := make(map[int]scanner.ServiceInfo, len(results.Services))
	for _, si := range results.Services {
		fingerprints[si.Port] = si
	}

	for _, p := range results.PortsByHost[target] {
		svc, err := module.Store.GetOrCreateService(ctx, target, p.Port, p.Protocol)
		if err != nil {
			return results, &nherrors.StoreError{Op: "GetOrCreateService", Err: err}
		}

		svc.State = p.State
		svc.Reason = p.Reason
		svc.Name = p.Service
		if si, ok := fingerprints[p.Port]; ok {
			svc.Product = si.Product
			svc.Version = si.Version
			svc.CPE = si.CPE
		}
		if err := module.Store.SaveService(ctx, svc); err != nil {
			return results, &nherrors.StoreError{Op: "SaveService", Err: err}
		}
	}

	return results, nil
}

var _ registry.Module = (*Nmap)(nil)

func init() {
	registry.Default.Modules.Register(registry.ModuleDescriptor{
		Name:    "nmap",
		Path:    "discovery.nmap",
		Service: "",
		Factory: func() registry.Module { return &Nmap{} },
	})
}
