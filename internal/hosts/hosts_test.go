package hosts

import "testing"

func TestWriter_Register_SkipsWhenAlreadyPresent(t *testing.T) {
	// readHostsFile reads the real /etc/hosts; rather than stub it out (which
	// would require an interface seam this package doesn't otherwise need),
	// this test only exercises the in-memory "already present" branch via a
	// hostname guaranteed to appear: localhost.
	w := &Writer{Auto: false}
	called := false
	w.Confirm = func(string, string) bool { called = true; return true }

	if err := w.Register("127.0.0.1", "localhost"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if called {
		t.Error("Confirm() was called, want short-circuit on already-present hostname")
	}
}
