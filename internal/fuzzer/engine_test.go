package fuzzer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fasthttp"
)

// fakeProber drives the Engine without a network: fetch() looks up a
// scripted response table by candidate target, and the first call for any
// given base is treated as the calibration call by the engine itself.
type fakeProber struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	initial   []candidate
	onDirHits int
}

type fakeResponse struct {
	status   int
	body     string
	location string
}

func (f *fakeProber) entries(_ string) []candidate { return f.initial }

func (f *fakeProber) fetch(_ context.Context, _ *fasthttp.Client, c candidate) (int, []byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[c.target]
	if !ok {
		return 404, []byte("not found"), "", nil
	}
	return r.status, []byte(r.body), r.location, nil
}

func (f *fakeProber) onDirectory(_ *Engine, _ candidate, _ Result) {
	f.mu.Lock()
	f.onDirHits++
	f.mu.Unlock()
}

func TestEngine_FirstCandidateBecomesBaseline(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib": {status: 200, body: "default vhost page"},
		},
		initial: []candidate{{target: "calib"}},
	}
	cfg := Config{Threads: 2, Status: []int{200}, MaxTries: 1}
	e := newEngine(cfg, p)

	results := e.Run(context.Background(), "base")
	if len(results) != 0 {
		t.Errorf("Run() results = %v, want empty (calibration call must never be reported as a hit)", results)
	}
}

func TestEngine_MatchingStatusAndDistinctHashIsReported(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib": {status: 200, body: "default vhost page"},
			"admin": {status: 200, body: "admin panel"},
		},
		initial: []candidate{{target: "calib"}, {target: "admin"}},
	}
	cfg := Config{Threads: 2, Status: []int{200}, MaxTries: 1}
	e := newEngine(cfg, p)

	results := e.Run(context.Background(), "base")
	if len(results) != 1 || results[0].Path != "admin" {
		t.Fatalf("Run() results = %v, want [admin]", results)
	}
}

func TestEngine_SameHashAsBaselineIsFiltered(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib": {status: 200, body: "default vhost page"},
			"bogus": {status: 200, body: "default vhost page"}, // wildcard: identical to baseline
		},
		initial: []candidate{{target: "calib"}, {target: "bogus"}},
	}
	cfg := Config{Threads: 2, Status: []int{200}, MaxTries: 1}
	e := newEngine(cfg, p)

	results := e.Run(context.Background(), "base")
	if len(results) != 0 {
		t.Errorf("Run() results = %v, want empty (identical content hash must be filtered as soft-404)", results)
	}
}

func TestEngine_StatusNotInMatchSetIsFiltered(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib": {status: 200, body: "default vhost page"},
			"forbidden": {status: 403, body: "forbidden page"},
		},
		initial: []candidate{{target: "calib"}, {target: "forbidden"}},
	}
	cfg := Config{Threads: 2, Status: []int{200, 301}, MaxTries: 1}
	e := newEngine(cfg, p)

	results := e.Run(context.Background(), "base")
	if len(results) != 0 {
		t.Errorf("Run() results = %v, want empty (403 not in match set)", results)
	}
}

func TestEngine_VisitedDeduplicatesCandidates(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib": {status: 200, body: "baseline"},
			"admin": {status: 200, body: "admin panel"},
		},
		initial: []candidate{{target: "calib"}, {target: "admin"}, {target: "admin"}},
	}
	cfg := Config{Threads: 4, Status: []int{200}, MaxTries: 1}
	e := newEngine(cfg, p)

	results := e.Run(context.Background(), "base")
	if len(results) != 1 {
		t.Errorf("Run() results count = %d, want 1 (duplicate candidate must be deduplicated)", len(results))
	}
}

func TestEngine_DirectoryRecursionInvokesOnDirectory(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib":  {status: 200, body: "baseline"},
			"files/": {status: 200, body: "Index of /files"},
		},
		initial: []candidate{{target: "calib"}, {target: "files/"}},
	}
	cfg := Config{Threads: 2, Status: []int{200}, MaxTries: 1, Recursion: true, MaxDepth: 3}
	e := newEngine(cfg, p)

	e.Run(context.Background(), "base")

	p.mu.Lock()
	hits := p.onDirHits
	p.mu.Unlock()
	if hits != 1 {
		t.Errorf("onDirectory() invocation count = %d, want 1", hits)
	}
}

func TestEngine_RecursionDisabledSkipsOnDirectory(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{
			"calib":  {status: 200, body: "baseline"},
			"files/": {status: 200, body: "Index of /files"},
		},
		initial: []candidate{{target: "calib"}, {target: "files/"}},
	}
	cfg := Config{Threads: 2, Status: []int{200}, MaxTries: 1, Recursion: false}
	e := newEngine(cfg, p)

	e.Run(context.Background(), "base")

	p.mu.Lock()
	hits := p.onDirHits
	p.mu.Unlock()
	if hits != 0 {
		t.Errorf("onDirectory() invocation count = %d, want 0 when recursion disabled", hits)
	}
}

func TestEngine_Snapshot_TracksCompletedCount(t *testing.T) {
	p := &fakeProber{
		responses: map[string]fakeResponse{"calib": {status: 200, body: "baseline"}},
		initial:   []candidate{{target: "calib"}},
	}
	cfg := Config{Threads: 1, Status: []int{200}, MaxTries: 1}
	e := newEngine(cfg, p)
	e.Run(context.Background(), "base")

	stats := e.Snapshot()
	if stats.Completed != 1 {
		t.Errorf("Snapshot().Completed = %d, want 1", stats.Completed)
	}
}

func TestIsProbablyDirectory(t *testing.T) {
	cases := []struct {
		name     string
		path     string
		status   int
		location string
		text     string
		want     bool
	}{
		{"trailing slash", "/files/", 200, "", "", true},
		{"redirect to slash", "/files", 301, "/files/", "", true},
		{"index of body", "/files", 200, "", "<html>Index of /files</html>", true},
		{"plain 200", "/admin", 200, "", "admin panel", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := isProbablyDirectory(c.path, c.status, c.location, c.text); got != c.want {
				t.Errorf("isProbablyDirectory() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestGenerateRandomString_Length(t *testing.T) {
	s := generateRandomString()
	if len(s) != 10 {
		t.Errorf("generateRandomString() length = %d, want 10", len(s))
	}
}

func TestDirectoryProber_WithExtensions(t *testing.T) {
	p := &directoryProber{cfg: Config{Extensions: []string{"php", ".bak"}}}
	got := p.withExtensions("http://x/", "admin", 0)
	if len(got) != 2 {
		t.Fatalf("withExtensions() count = %d, want 2", len(got))
	}
	want := map[string]bool{"http://x/admin.php": true, "http://x/admin.bak": true}
	for _, c := range got {
		if !want[c.target] {
			t.Errorf("withExtensions() produced unexpected candidate %q", c.target)
		}
	}
}

func TestDirectoryProber_WithExtensions_SkipsAlreadySuffixed(t *testing.T) {
	p := &directoryProber{cfg: Config{Extensions: []string{"php"}}}
	got := p.withExtensions("http://x/", "index.php", 0)
	if len(got) != 0 {
		t.Errorf("withExtensions() count = %d, want 0 (entry already ends in .php)", len(got))
	}
}

func TestVHostProber_SanitizesSubdomain(t *testing.T) {
	p := &vhostProber{cfg: Config{Wordlist: []string{"Admin_Panel!"}}, baseDomain: "example.com"}
	entries := p.entries("")
	if len(entries) != 2 {
		t.Fatalf("entries() count = %d, want 2 (calibration + 1 wordlist entry)", len(entries))
	}
	if entries[1].target != "adminpanel.example.com" {
		t.Errorf("entries()[1].target = %q, want adminpanel.example.com", entries[1].target)
	}
}

func TestEngine_Run_DoesNotDeadlockUnderConcurrency(t *testing.T) {
	responses := map[string]fakeResponse{"calib": {status: 200, body: "baseline"}}
	var initial []candidate
	initial = append(initial, candidate{target: "calib"})
	for i := 0; i < 200; i++ {
		target := "word" + string(rune('a'+i%26)) + string(rune('0'+i%10))
		responses[target] = fakeResponse{status: 200, body: "hit " + target}
		initial = append(initial, candidate{target: target})
	}
	p := &fakeProber{responses: responses, initial: initial}
	cfg := Config{Threads: 8, Status: []int{200}, MaxTries: 1}
	e := newEngine(cfg, p)

	done := make(chan struct{})
	go func() {
		e.Run(context.Background(), "base")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not complete within 5s, suspect deadlock in join-barrier termination")
	}
}
