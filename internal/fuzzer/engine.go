// Package fuzzer implements NetHawk's bounded worker-pool HTTP fuzzing
// engine shared by directory enumeration and virtual-host enumeration.
//
// Both modes drive the same Engine: an unbounded work queue of (candidate,
// depth) pairs, a fixed pool of Threads workers that each handle one request
// at a time (which caps in-flight requests), a visited set, and an accumulated
// set of valid results keyed against a calibration baseline so wildcard/
// soft-404 responses are filtered out rather than reported as hits.
// Termination mirrors a join-barrier queue: every push increments a pending
// counter and every fully-processed task decrements it, so recursion
// enqueued mid-run (itself incrementing pending before the parent task is
// marked done) is accounted for before the queue is declared drained.
package fuzzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/valyala/fasthttp"
)

// Config parameterizes an Engine run.
type Config struct {
	Threads    int
	Wordlist   []string // pre-read wordlist lines, filtered of blanks/comments
	Status     []int
	Extensions []string // Directory mode only
	Recursion  bool
	MaxDepth   int
	MaxTries   int
	Headers    map[string]string // VHost mode only
	Timeout    time.Duration
}

// Result is one confirmed hit, the in-memory analogue of model.PathEntry.
type Result struct {
	Path     string
	Status   int
	Size     int
	Location string
	Words    int
	Lines    int
}

func (r Result) key() string { return r.Path }

// candidate is one queued unit of work.
type candidate struct {
	target string // full URL (Directory) or hostname (VHost)
	depth  int
}

// prober is implemented separately by Directory and VHost mode so Engine's
// worker loop, calibration, and bookkeeping stay mode-agnostic.
type prober interface {
	// entries returns every candidate to enqueue for the given base, in
	// the order the calibration entry must be first.
	entries(base string) []candidate
	// fetch performs the HTTP request for one candidate.
	fetch(ctx context.Context, client *fasthttp.Client, c candidate) (status int, body []byte, location string, err error)
	// onDirectory is invoked when a response looks like a directory and
	// recursion applies; it enqueues whatever children (if any) follow.
	onDirectory(e *Engine, c candidate, metadata Result)
}

// Engine runs one fuzzing session to completion.
type Engine struct {
	cfg    Config
	client *fasthttp.Client
	prober prober

	mu           sync.Mutex
	visited      map[string]bool
	results      map[string]Result
	baselineHash string
	baselineSet  bool
	completed    int
	errorCount   int
	rateWindow   []time.Time

	q       *taskQueue
	pending int64
	wg      sync.WaitGroup

	progress *progressbar.ProgressBar
}

// SetProgress attaches a live-rendering bar, incremented once per completed
// candidate. Nil (the default) disables rendering entirely.
func (e *Engine) SetProgress(bar *progressbar.ProgressBar) { e.progress = bar }

func newEngine(cfg Config, p prober) *Engine {
	if cfg.MaxTries <= 0 {
		cfg.MaxTries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Engine{
		cfg:    cfg,
		prober: p,
		client: &fasthttp.Client{
			MaxConnsPerHost:     cfg.Threads,
			MaxIdleConnDuration: 300 * time.Second,
		},
		visited: make(map[string]bool),
		results: make(map[string]Result),
		q:       newTaskQueue(),
	}
}

// enqueueTask accounts for c as outstanding work and pushes it.
func (e *Engine) enqueueTask(c candidate) {
	atomic.AddInt64(&e.pending, 1)
	e.q.push(c)
}

// taskDone accounts for one unit of work finishing; the last one to finish
// closes the queue, waking every worker still blocked in pop().
func (e *Engine) taskDone() {
	if atomic.AddInt64(&e.pending, -1) == 0 {
		e.q.closeAll()
	}
}

// Run processes the calibration entry (the first one the prober returns) on
// its own, so its response is the baseline before any other candidate is
// evaluated, then enqueues the remaining entries, launches threads workers,
// and blocks until the queue drains.
func (e *Engine) Run(ctx context.Context, base string) []Result {
	entries := e.prober.entries(base)
	if len(entries) > 0 {
		e.process(ctx, entries[0])
		entries = entries[1:]
	}
	if len(entries) == 0 {
		e.q.closeAll()
	}
	for _, c := range entries {
		e.enqueueTask(c)
	}

	for i := 0; i < e.cfg.Threads; i++ {
		e.wg.Add(1)
		go e.worker(ctx)
	}

	e.wg.Wait()
	if e.progress != nil {
		_ = e.progress.Finish()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Result, 0, len(e.results))
	for _, r := range e.results {
		out = append(out, r)
	}
	return out
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		c, ok := e.q.pop()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			e.taskDone()
			return
		default:
		}
		e.process(ctx, c)
		e.taskDone()
	}
}

func (e *Engine) process(ctx context.Context, c candidate) {
	e.mu.Lock()
	if e.visited[c.target] {
		e.mu.Unlock()
		return
	}
	e.visited[c.target] = true
	e.mu.Unlock()

	defer e.recordCompletion()

	for attempt := 0; attempt < e.cfg.MaxTries; attempt++ {
		status, body, location, err := e.prober.fetch(ctx, e.client, c)
		if err != nil {
			e.recordError()
			jitter := time.Duration(rand.Float64()*100) * time.Millisecond
			wait := time.Duration(attempt)*200*time.Millisecond + jitter
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			continue
		}

		hash := contentHash(body)
		text := string(body)

		e.mu.Lock()
		if !e.baselineSet {
			e.baselineSet = true
			e.baselineHash = hash
			e.mu.Unlock()
			return
		}
		baseline := e.baselineHash
		e.mu.Unlock()

		if hash == baseline {
			return
		}
		if !containsInt(e.cfg.Status, status) {
			return
		}

		metadata := Result{
			Path:     c.target,
			Status:   status,
			Size:     len(body),
			Location: location,
			Words:    len(strings.Fields(text)),
			Lines:    len(strings.Split(text, "\n")),
		}

		e.mu.Lock()
		e.results[metadata.key()] = metadata
		e.mu.Unlock()

		if e.cfg.Recursion && c.depth < e.cfg.MaxDepth && isProbablyDirectory(c.target, status, location, text) {
			e.prober.onDirectory(e, c, metadata)
		}
		return
	}
}

func (e *Engine) recordCompletion() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.completed++
	e.rateWindow = append(e.rateWindow, time.Now())
	if len(e.rateWindow) > 10 {
		e.rateWindow = e.rateWindow[len(e.rateWindow)-10:]
	}
	if e.progress != nil {
		_ = e.progress.Add(1)
	}
}

func (e *Engine) recordError() {
	e.mu.Lock()
	e.errorCount++
	e.mu.Unlock()
}

// Stats is a snapshot of the engine's counters, read by the live renderer.
type Stats struct {
	Completed int
	Errors    int
	RPS       float64
}

// Snapshot returns the current counters; safe to call concurrently with a
// running Engine.
func (e *Engine) Snapshot() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	rps := 0.0
	if len(e.rateWindow) >= 2 {
		span := e.rateWindow[len(e.rateWindow)-1].Sub(e.rateWindow[0]).Seconds()
		if span > 0 {
			rps = float64(len(e.rateWindow)) / span
		}
	}
	return Stats{Completed: e.completed, Errors: e.errorCount, RPS: rps}
}

func contentHash(body []byte) string {
	sum := md5.Sum(body)
	return hex.EncodeToString(sum[:])
}

// isProbablyDirectory applies the same soft heuristics the source tool uses
// to decide whether a hit is worth recursing into.
func isProbablyDirectory(path string, status int, location, text string) bool {
	if strings.HasSuffix(path, "/") {
		return true
	}
	if (status == 301 || status == 302) && strings.HasSuffix(location, "/") {
		return true
	}
	if strings.Contains(text, "Index of") {
		return true
	}
	return false
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

const randomStringAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateRandomString returns a 10-character calibration token; callers
// must not treat it as cryptographically significant.
func generateRandomString() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = randomStringAlphabet[rand.Intn(len(randomStringAlphabet))]
	}
	return string(b)
}
