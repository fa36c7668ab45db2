// Package cli builds NetHawk's cobra.Command tree: the positional
// [service] [target] arguments, the global flag set the module-argument
// filter also consults, and the --list-modules/--show-module introspection
// commands.
package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/dispatcher"
	"github.com/nethawk-io/nethawk/internal/hosts"
	"github.com/nethawk-io/nethawk/internal/logging"
	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/nherrors"
	"github.com/nethawk-io/nethawk/internal/registry"
	"github.com/nethawk-io/nethawk/internal/resolver"
	"github.com/nethawk-io/nethawk/internal/scanner"
	"github.com/nethawk-io/nethawk/internal/store"
)

// globalLong and globalShort list the CLI's own flags (long and short form, without
// dashes) so internal/module.FilterModuleArgs can subtract them from a
// module's view of argv.
var (
	globalLong = map[string]bool{
		"ports": true, "module": true, "config": true, "publish": true,
		"nmap": true, "verbose": true, "debug": true,
		"list-modules": true, "show-module": true, "help": true,
	}
	globalShort = map[string]bool{"p": true, "M": true, "c": true, "v": true, "h": true}
)

// Options holds the parsed global flag values.
type Options struct {
	Ports       []int
	Modules     []string
	ConfigPath  string
	Publish     bool
	NmapProfile string
	Verbose     bool
	Debug       bool
	ListModules bool
	ShowModule  string
}

// NewRootCommand builds the top-level cobra.Command.
func NewRootCommand() *cobra.Command {
	opts := &Options{}
	var rawPorts string

	cmd := &cobra.Command{
		Use:   "nethawk [service] [target]",
		Short: "Network reconnaissance orchestrator",
		// Module flags aren't registered on this command's FlagSet, so
		// disable cobra's own arity check here; run() validates the
		// positional [service] [target] split itself once module flag
		// tokens have been separated out.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if rawPorts != "" {
				ports, err := parsePorts(rawPorts)
				if err != nil {
					return &nherrors.UserInputError{Reason: err.Error()}
				}
				opts.Ports = ports
			}
			return run(cmd.Context(), opts, args)
		},
		SilenceUsage: true,
	}
	cmd.FParseErrWhitelist.UnknownFlags = true

	cmd.Flags().StringVarP(&rawPorts, "ports", "p", "", "comma-separated port list")
	cmd.Flags().StringSliceVarP(&opts.Modules, "module", "M", nil, "explicit module name(s) to run")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a custom config file")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "merge the packaged template into the user config")
	cmd.Flags().StringVar(&opts.NmapProfile, "nmap", "default", "nmap profile to run during discovery")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose console output")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "JSON debug logging")
	cmd.Flags().BoolVar(&opts.ListModules, "list-modules", false, "list every registered module and exit")
	cmd.Flags().StringVar(&opts.ShowModule, "show-module", "", "show one module's declared options and exit")

	return cmd
}

func parsePorts(raw string) ([]int, error) {
	var ports []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", part, err)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

// splitPositional takes the leading run of non-flag tokens (at most two:
// [service] [target]) as positionals; everything from the first flag-shaped
// token onward is the module-argument remainder.
func splitPositional(args []string) (positional, moduleArgv []string) {
	for i, tok := range args {
		if strings.HasPrefix(tok, "-") || len(positional) == 2 {
			return positional, args[i:]
		}
		positional = append(positional, tok)
	}
	return positional, nil
}

func run(ctx context.Context, opts *Options, rawArgs []string) error {
	positional, moduleArgv := splitPositional(rawArgs)
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.ConfigPath != "" {
		if err := cfg.Use(opts.ConfigPath); err != nil {
			return err
		}
	}
	if opts.Publish {
		return cfg.Republish()
	}

	log, err := logging.New(opts.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logging.Sync(log)

	if opts.ListModules {
		return listModules(log)
	}
	if opts.ShowModule != "" {
		return showModule(opts.ShowModule, log)
	}

	var serviceName, target string
	switch len(positional) {
	case 0:
		return &nherrors.UserInputError{Reason: "target is required"}
	case 1:
		target = positional[0]
	case 2:
		serviceName, target = positional[0], positional[1]
	}
	if serviceName == "" && len(opts.Modules) > 0 {
		return &nherrors.UserInputError{Reason: "modules require a service"}
	}

	st := store.Store(store.NewMemStore())
	if host, ok := cfg.Get("mongodb.host"); ok && host != "" {
		uri := fmt.Sprintf("mongodb://%s:%d", cfg.GetString("mongodb.host", "localhost"), cfg.GetInt("mongodb.port", 27017))
		mongo, err := store.NewMongoStore(ctx, uri, cfg.GetString("mongodb.database", "nethawk"))
		if err != nil {
			log.Sugar().Warnw("failed to connect to mongodb, falling back to in-memory store", "error", err)
		} else {
			st = mongo
		}
	}
	module.SetStore(st)
	module.SetVerbose(opts.Verbose)
	hostsWriter := hosts.NewWriter(log)
	hostsWriter.Auto = true
	module.SetHosts(hostsWriter)

	moduleArgs, err := resolveModuleArgs(opts.Modules, moduleArgv)
	if err != nil {
		return err
	}

	d := &dispatcher.Dispatcher{
		Resolver: resolver.New(),
		Services: registry.Default.Services,
		Modules:  registry.Default.Modules,
		Store:    st,
		Config:   cfg,
		Log:      log,
		NmapConfig: scanner.Config{
			TCPPorts: cfg.GetString("nmap.ports.tcp", "1-1000"),
		},
		NmapScanType: opts.NmapProfile,
		ModuleArgs:   moduleArgs,
	}

	req := dispatcher.Request{
		Target:  target,
		Service: serviceName,
		Modules: opts.Modules,
		Ports:   opts.Ports,
	}
	return d.Run(ctx, req)
}

// resolveModuleArgs filters moduleArgv down to each requested module's own
// declared flags (see internal/module.FilterModuleArgs) and parses the
// result into that module's args map. Only meaningful when exactly one
// module is requested; with several, per-module flags would be ambiguous,
// so moduleArgv is ignored and every module runs with its own defaults.
func resolveModuleArgs(names []string, moduleArgv []string) (map[string]map[string]any, error) {
	if len(names) != 1 || len(moduleArgv) == 0 {
		return nil, nil
	}
	md, err := registry.Default.Modules.Find(names[0])
	if err != nil {
		return nil, nil // unknown module name is reported later at dispatch time
	}
	m, ok := md.Factory().(module.Module)
	if !ok {
		return nil, nil
	}

	filtered := module.FilterModuleArgs(moduleArgv, globalLong, globalShort, m.Options())
	parsed, err := module.ParseOptions(filtered, m.Options())
	if err != nil {
		return nil, &nherrors.UserInputError{Reason: err.Error()}
	}
	return map[string]map[string]any{names[0]: parsed}, nil
}

func listModules(log *zap.Logger) error {
	for _, md := range registry.Default.Modules.List() {
		fmt.Printf("%-24s %s\n", md.Name, md.Path)
	}
	return nil
}

func showModule(name string, log *zap.Logger) error {
	md, err := registry.Default.Modules.Find(name)
	if err != nil {
		return err
	}
	m, ok := md.Factory().(module.Module)
	if !ok {
		return fmt.Errorf("module %q does not implement module.Module", name)
	}
	fmt.Printf("%s (%s)\n", m.Name(), md.Path)
	for _, opt := range m.Options() {
		fmt.Printf("  --%-16s %-8s default=%v  %s\n", opt.Name, opt.Type, opt.Default, opt.Help)
	}
	return nil
}

