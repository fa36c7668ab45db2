// Package nherrors defines the error taxonomy shared across NetHawk's
// orchestration layers: resolver, registry, dispatcher, module runtime, store,
// and fuzzer.
//
// Each error type wraps an underlying cause (when one exists) and is checked
// by callers with errors.As/errors.Is rather than string comparison, so that
// the propagation policy — leaves retry, modules propagate, strategies log and
// continue — can be implemented without parsing messages.
package nherrors

import "fmt"

// UserInputError signals an invalid flag combination or missing argument at
// the CLI boundary. The caller should print the message and exit non-zero.
type UserInputError struct {
	Reason string
}

func (e *UserInputError) Error() string { return "invalid input: " + e.Reason }

// ResolverError signals a fatal DNS failure: the resolver could not turn the
// raw input into an IP address at all. It is distinct from a reachability
// failure (see ReachabilityWarning), which still yields a usable Endpoint.
type ResolverError struct {
	Input string
	Err   error
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolve %q: %v", e.Input, e.Err)
}

func (e *ResolverError) Unwrap() error { return e.Err }

// ReachabilityWarning records a recoverable ICMP/TCP probing failure. Dispatch
// continues — the port-scanner may still find the host reachable even when
// our own probe did not.
type ReachabilityWarning struct {
	Reason string
}

func (e *ReachabilityWarning) Error() string { return e.Reason }

// ServiceNotFound is returned by the service registry when no descriptor
// matches the requested name or alias. Callers log and skip; it never aborts
// a dispatch.
type ServiceNotFound struct {
	Name string
}

func (e *ServiceNotFound) Error() string {
	return fmt.Sprintf("no registered service handler found for service: %q", e.Name)
}

// ModuleNotFound is returned by the module registry when no descriptor
// matches the requested name, alias, or fully-qualified path.
type ModuleNotFound struct {
	Name string
}

func (e *ModuleNotFound) Error() string {
	return fmt.Sprintf("no registered module found for: %q", e.Name)
}

// StoreError wraps a persistence failure. The module run that triggered it
// aborts, but the orchestrator continues with the next work unit.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

// TransientIOError wraps a per-request HTTP/ICMP failure that the caller has
// already retried up to its configured max_tries. It carries the number of
// attempts made so callers can report it in the errors counter.
type TransientIOError struct {
	Attempts int
	Err      error
}

func (e *TransientIOError) Error() string {
	return fmt.Sprintf("transient I/O error after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *TransientIOError) Unwrap() error { return e.Err }

// InvalidDispatch is returned when the dispatcher is given a tuple that maps
// to none of the three strategies (service unset, modules non-empty).
type InvalidDispatch struct {
	Service string
	Modules []string
}

func (e *InvalidDispatch) Error() string {
	return fmt.Sprintf("invalid dispatcher selection: service=%q modules=%v", e.Service, e.Modules)
}
