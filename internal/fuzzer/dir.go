package fuzzer

import (
	"context"
	"strings"

	"github.com/valyala/fasthttp"
)

// directoryProber implements prober for HTTP path enumeration: each
// wordlist line (and its extension variants) becomes a path appended to the
// base URL.
type directoryProber struct {
	cfg Config
}

// NewDirectoryEngine returns an Engine that fuzzes paths under base.
func NewDirectoryEngine(cfg Config) *Engine {
	return newEngine(cfg, &directoryProber{cfg: cfg})
}

func (p *directoryProber) entries(base string) []candidate {
	base = strings.TrimRight(base, "/") + "/"

	var out []candidate
	calibration := generateRandomString()
	out = append(out, candidate{target: base + calibration, depth: 0})

	for _, line := range p.cfg.Wordlist {
		entry := strings.TrimPrefix(line, "/")
		out = append(out, candidate{target: base + entry, depth: 0})
		out = append(out, p.withExtensions(base, entry, 0)...)
	}
	return out
}

// withExtensions returns one candidate per configured extension not already
// a suffix of entry, each extension normalized to exactly one leading dot.
func (p *directoryProber) withExtensions(base, entry string, depth int) []candidate {
	var out []candidate
	for _, ext := range p.cfg.Extensions {
		ext = "." + strings.TrimPrefix(ext, ".")
		if strings.HasSuffix(entry, ext) {
			continue
		}
		out = append(out, candidate{target: base + entry + ext, depth: depth})
	}
	return out
}

func (p *directoryProber) fetch(ctx context.Context, client *fasthttp.Client, c candidate) (int, []byte, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.target)
	req.Header.SetMethod(fasthttp.MethodGet)

	if deadline, ok := ctx.Deadline(); ok {
		if err := client.DoDeadline(req, resp, deadline); err != nil {
			return 0, nil, "", err
		}
	} else if err := client.DoTimeout(req, resp, p.cfg.Timeout); err != nil {
		return 0, nil, "", err
	}

	body := append([]byte(nil), resp.Body()...)
	location := string(resp.Header.Peek("Location"))
	return resp.StatusCode(), body, location, nil
}

func (p *directoryProber) onDirectory(e *Engine, c candidate, metadata Result) {
	childBase := strings.TrimRight(metadata.Path, "/") + "/"
	for _, line := range p.cfg.Wordlist {
		entry := strings.TrimPrefix(line, "/")
		e.enqueueTask(candidate{target: childBase + entry, depth: c.depth + 1})
	}
}
