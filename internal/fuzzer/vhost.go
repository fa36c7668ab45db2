package fuzzer

import (
	"context"
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"
)

// HostRegistrar persists a discovered virtual-host mapping so the OS
// resolves it on subsequent requests; internal/hosts.Writer satisfies this.
type HostRegistrar interface {
	Register(ip, hostname string) error
}

var sanitizeSubdomain = regexp.MustCompile(`[^a-z0-9-]`)

// vhostProber implements prober for Host-header enumeration: each wordlist
// line becomes a candidate hostname under BaseDomain, and every request
// targets TargetURL with a rewritten Host header.
type vhostProber struct {
	cfg        Config
	targetURL  string
	targetIP   string
	baseDomain string
	registrar  HostRegistrar
}

// NewVHostEngine returns an Engine that fuzzes Host headers against
// targetURL, constructing candidate names under baseDomain. registrar may be
// nil, in which case matches are never persisted to the hosts file.
func NewVHostEngine(cfg Config, targetURL, targetIP, baseDomain string, registrar HostRegistrar) *Engine {
	p := &vhostProber{cfg: cfg, targetURL: targetURL, targetIP: targetIP, baseDomain: baseDomain, registrar: registrar}
	return newEngine(cfg, p)
}

func (p *vhostProber) entries(_ string) []candidate {
	var out []candidate
	calibration := generateRandomString()
	out = append(out, candidate{target: calibration + "." + p.baseDomain, depth: 0})

	for _, line := range p.cfg.Wordlist {
		name := sanitizeSubdomain.ReplaceAllString(strings.ToLower(strings.TrimSpace(line)), "")
		if name == "" {
			continue
		}
		out = append(out, candidate{target: name + "." + p.baseDomain, depth: 0})
	}
	return out
}

func (p *vhostProber) fetch(ctx context.Context, client *fasthttp.Client, c candidate) (int, []byte, string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.targetURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetHost(c.target)
	for k, v := range p.cfg.Headers {
		req.Header.Set(k, v)
	}

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

// onDirectory for VHost mode persists the confirmed hostname to /etc/hosts
// before the caller would recurse; NetHawk's vhost fuzzing has no natural
// sub-candidates below a confirmed host, so this only registers the mapping.
func (p *vhostProber) onDirectory(e *Engine, c candidate, metadata Result) {
	if p.registrar == nil {
		return
	}
	_ = p.registrar.Register(p.targetIP, c.target)
}
