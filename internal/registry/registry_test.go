package registry

import (
	"errors"
	"sync"
	"testing"

	"github.com/nethawk-io/nethawk/internal/nherrors"
)

type fakeService struct{ name string }

func (f *fakeService) Name() string { return f.name }

type fakeModule struct{ name string }

func (f *fakeModule) Name() string { return f.name }

func TestServiceRegistry_RegisterAndFind(t *testing.T) {
	r := NewServiceRegistry()
	r.Register(ServiceDescriptor{
		Name:    "http",
		Aliases: []string{"web"},
		Ports:   []int{80, 8080},
		New:     func() Service { return &fakeService{name: "http"} },
	})

	d, err := r.Find("http")
	if err != nil {
		t.Fatalf("Find(http) error = %v, want nil", err)
	}
	if d.Name != "http" {
		t.Errorf("Find(http).Name = %q, want http", d.Name)
	}

	d, err = r.Find("web")
	if err != nil {
		t.Fatalf("Find(web) error = %v, want nil (alias lookup)", err)
	}
	if d.Name != "http" {
		t.Errorf("Find(web).Name = %q, want http", d.Name)
	}

	if _, err := r.Find("WEB"); err == nil {
		t.Error("Find(WEB) = nil error, want ServiceNotFound (lookups are case-sensitive)")
	}
}

func TestServiceRegistry_Find_NotFound(t *testing.T) {
	r := NewServiceRegistry()
	_, err := r.Find("ftp")
	var snf *nherrors.ServiceNotFound
	if !errors.As(err, &snf) {
		t.Fatalf("Find(ftp) error = %v, want *nherrors.ServiceNotFound", err)
	}
}

// TestServiceRegistry_LastRegistrationWins verifies that a later Register
// call under a colliding key silently replaces the earlier entry rather than
// erroring — NetHawk never treats re-registration as a startup failure.
func TestServiceRegistry_LastRegistrationWins(t *testing.T) {
	r := NewServiceRegistry()
	r.Register(ServiceDescriptor{Name: "http", Ports: []int{80}})
	r.Register(ServiceDescriptor{Name: "http", Ports: []int{8080}})

	d, err := r.Find("http")
	if err != nil {
		t.Fatalf("Find(http) error = %v, want nil", err)
	}
	if len(d.Ports) != 1 || d.Ports[0] != 8080 {
		t.Errorf("Find(http).Ports = %v, want [8080] (second registration should win)", d.Ports)
	}
	if len(r.List()) != 1 {
		t.Errorf("List() count = %d, want 1 (re-registration must not duplicate)", len(r.List()))
	}
}

func TestServiceRegistry_FindByPort(t *testing.T) {
	r := NewServiceRegistry()
	r.Register(ServiceDescriptor{Name: "http", Ports: []int{80, 8080}})
	r.Register(ServiceDescriptor{Name: "https", Ports: []int{443}})

	found := r.FindByPort(8080)
	if len(found) != 1 || found[0].Name != "http" {
		t.Errorf("FindByPort(8080) = %v, want [http]", found)
	}

	found = r.FindByPort(9999)
	if len(found) != 0 {
		t.Errorf("FindByPort(9999) = %v, want empty", found)
	}
}

func TestServiceRegistry_List_SortedAndDeduplicated(t *testing.T) {
	r := NewServiceRegistry()
	r.Register(ServiceDescriptor{Name: "ssh", Aliases: []string{"secure-shell"}})
	r.Register(ServiceDescriptor{Name: "ftp"})

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("List() count = %d, want 2", len(list))
	}
	if list[0].Name != "ftp" || list[1].Name != "ssh" {
		t.Errorf("List() = [%s %s], want sorted [ftp ssh]", list[0].Name, list[1].Name)
	}
}

func TestServiceRegistry_Concurrent(t *testing.T) {
	r := NewServiceRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register(ServiceDescriptor{Name: "svc"})
			r.Find("svc")
			r.List()
		}(i)
	}
	wg.Wait()
}

func TestModuleRegistry_RegisterAndFind(t *testing.T) {
	r := NewModuleRegistry()
	r.Register(ModuleDescriptor{
		Name:    "dir",
		Aliases: []string{"directory"},
		Path:    "http.dir",
		Service: "http",
		Factory: func() Module { return &fakeModule{name: "dir"} },
	})

	for _, key := range []string{"dir", "directory", "http.dir"} {
		d, err := r.Find(key)
		if err != nil {
			t.Fatalf("Find(%q) error = %v, want nil", key, err)
		}
		if d.Name != "dir" {
			t.Errorf("Find(%q).Name = %q, want dir", key, d.Name)
		}
	}
}

func TestModuleRegistry_Find_NotFound(t *testing.T) {
	r := NewModuleRegistry()
	_, err := r.Find("missing")
	var mnf *nherrors.ModuleNotFound
	if !errors.As(err, &mnf) {
		t.Fatalf("Find(missing) error = %v, want *nherrors.ModuleNotFound", err)
	}
}

func TestModuleRegistry_ForService(t *testing.T) {
	r := NewModuleRegistry()
	r.Register(ModuleDescriptor{Name: "dir", Service: "http"})
	r.Register(ModuleDescriptor{Name: "vhost", Service: "http"})
	r.Register(ModuleDescriptor{Name: "nmap", Service: ""})

	mods := r.ForService("http")
	if len(mods) != 2 {
		t.Fatalf("ForService(http) count = %d, want 2", len(mods))
	}
	if mods[0].Name != "dir" || mods[1].Name != "vhost" {
		t.Errorf("ForService(http) = %v, want sorted [dir vhost]", mods)
	}
}

func TestModuleRegistry_Factory_ReturnsFreshInstance(t *testing.T) {
	r := NewModuleRegistry()
	r.Register(ModuleDescriptor{
		Name:    "dir",
		Factory: func() Module { return &fakeModule{name: "dir"} },
	})

	d, err := r.Find("dir")
	if err != nil {
		t.Fatalf("Find(dir) error = %v", err)
	}
	a := d.Factory()
	b := d.Factory()
	if a == b {
		t.Error("Factory() returned the same instance twice, want a fresh Module per call")
	}
}
