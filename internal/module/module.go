// Package module defines NetHawk's enumeration-module runtime: the Module
// instance/Run split that replaces the source tool's awaitable-as-instance
// pattern, declarative option schemas, and the bit-exact argument filtering
// that lets a module's own flags coexist with NetHawk's global flag set.
package module

import (
	"context"

	"github.com/nethawk-io/nethawk/internal/config"
	"github.com/nethawk-io/nethawk/internal/fuzzer"
	"github.com/nethawk-io/nethawk/internal/store"
)

// Store is the process-wide persistence adapter concrete modules read from
// their init()-registered factories. internal/cli sets it once, after the store
// is constructed from config, before any dispatch runs — module factories
// only read it lazily when a dispatch actually invokes them.
var Store store.Store

// SetStore installs the shared Store instance every module factory closes
// over.
func SetStore(s store.Store) { Store = s }

// Hosts is the process-wide /etc/hosts writer the vhost module registers
// discovered hostnames against. Nil disables registration.
var Hosts fuzzer.HostRegistrar

// SetHosts installs the shared HostRegistrar every module factory closes
// over.
func SetHosts(h fuzzer.HostRegistrar) { Hosts = h }

// Verbose mirrors the CLI's --verbose flag; the dir/vhost modules consult it
// to decide whether to attach a live progress bar to their fuzzer.Engine.
var Verbose bool

// SetVerbose installs the shared --verbose flag value.
func SetVerbose(v bool) { Verbose = v }

// OptionSpec declares one flag a module accepts.
type OptionSpec struct {
	Name    string
	Type    string // "string", "int", "bool"
	Default any
	Help    string
}

// Result is whatever a module produces; concrete modules define their own
// richer result types and type-assert this in their ServiceHandler hooks.
type Result any

// Module is implemented by every concrete enumeration module.
type Module interface {
	// Name is the module's short name, used for registry lookup and CLI
	// display.
	Name() string
	// Options declares the module's own flag schema, consulted by the
	// argument filter in args.go.
	Options() []OptionSpec
	// ConfigKey is the dotted config path the module reads its own
	// defaults from, or "" if it has none.
	ConfigKey() string
	// Run executes the module against (target, port) with args already
	// parsed and config already merged in.
	Run(ctx context.Context, target string, port int, args map[string]any) (Result, error)
}

// Configured is implemented by modules that need a handle to the global
// config to resolve ConfigKey defaults before Run.
type Configured interface {
	Configure(cfg *config.Config)
}
