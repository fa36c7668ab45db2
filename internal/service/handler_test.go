package service

import (
	"context"
	"testing"

	"github.com/nethawk-io/nethawk/internal/module"
	"github.com/nethawk-io/nethawk/internal/registry"
)

type fakeModule struct {
	name string
	ran  []string
}

func (m *fakeModule) Name() string                 { return m.name }
func (m *fakeModule) Options() []module.OptionSpec  { return nil }
func (m *fakeModule) ConfigKey() string             { return "" }
func (m *fakeModule) Run(_ context.Context, target string, port int, _ map[string]any) (module.Result, error) {
	m.ran = append(m.ran, target)
	return port, nil
}

func newTestHandler(t *testing.T, listeners []string) (*Handler, *fakeModule) {
	t.Helper()
	modules := registry.NewModuleRegistry()
	fm := &fakeModule{name: "probe"}
	modules.Register(registry.ModuleDescriptor{
		Name:    "probe",
		Service: "test",
		Factory: func() registry.Module { return fm },
	})
	return &Handler{
		ServiceName: "test",
		DefaultPort: 80,
		Listeners:   listeners,
		Modules:     modules,
	}, fm
}

func TestHandler_RunListeners_UsesDefaultPort(t *testing.T) {
	h, fm := newTestHandler(t, []string{"probe"})
	results, err := h.RunListeners(context.Background(), "example.com", nil)
	if err != nil {
		t.Fatalf("RunListeners() error = %v", err)
	}
	if len(results) != 1 || results[0] != 80 {
		t.Errorf("RunListeners() results = %v, want [80]", results)
	}
	if len(fm.ran) != 1 || fm.ran[0] != "example.com" {
		t.Errorf("module ran against %v, want [example.com]", fm.ran)
	}
}

func TestHandler_RunListeners_ExplicitPortOverridesDefault(t *testing.T) {
	h, _ := newTestHandler(t, []string{"probe"})
	port := 8080
	results, err := h.RunListeners(context.Background(), "example.com", &port)
	if err != nil {
		t.Fatalf("RunListeners() error = %v", err)
	}
	if len(results) != 1 || results[0] != 8080 {
		t.Errorf("RunListeners() results = %v, want [8080]", results)
	}
}

func TestHandler_RunListeners_NoPortAvailable_Skips(t *testing.T) {
	h, fm := newTestHandler(t, []string{"probe"})
	h.DefaultPort = 0
	results, err := h.RunListeners(context.Background(), "example.com", nil)
	if err != nil {
		t.Fatalf("RunListeners() error = %v", err)
	}
	if results != nil {
		t.Errorf("RunListeners() results = %v, want nil", results)
	}
	if len(fm.ran) != 0 {
		t.Errorf("module ran %d times, want 0", len(fm.ran))
	}
}

func TestHandler_RunModules_UnknownModuleIsSkippedNotFatal(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	results, err := h.RunModules(context.Background(), "example.com", nil, []string{"bogus"})
	if err != nil {
		t.Fatalf("RunModules() error = %v, want nil (unknown module is skipped)", err)
	}
	if results != nil {
		t.Errorf("RunModules() results = %v, want nil", results)
	}
}

func TestHandler_RunModules_HooksCalledInOrder(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	var order []string
	h.Hooks = Hooks{
		ShouldRunModule: func(md *registry.ModuleDescriptor) bool {
			order = append(order, "should_run")
			return true
		},
		BeforeRun: func(md *registry.ModuleDescriptor) {
			order = append(order, "before_run")
		},
		AfterRun: func(md *registry.ModuleDescriptor, result module.Result, err error) {
			order = append(order, "after_run")
		},
	}
	_, err := h.RunModules(context.Background(), "example.com", nil, []string{"probe"})
	if err != nil {
		t.Fatalf("RunModules() error = %v", err)
	}
	want := []string{"should_run", "before_run", "after_run"}
	if len(order) != len(want) {
		t.Fatalf("hook order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("hook order = %v, want %v", order, want)
			break
		}
	}
}

func TestHandler_RunModules_ShouldRunModuleFalse_SkipsExecution(t *testing.T) {
	h, fm := newTestHandler(t, nil)
	h.Hooks = Hooks{ShouldRunModule: func(*registry.ModuleDescriptor) bool { return false }}
	_, err := h.RunModules(context.Background(), "example.com", nil, []string{"probe"})
	if err != nil {
		t.Fatalf("RunModules() error = %v", err)
	}
	if len(fm.ran) != 0 {
		t.Errorf("module ran %d times, want 0 (should_run_module returned false)", len(fm.ran))
	}
}
