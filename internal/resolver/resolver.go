// Package resolver turns raw CLI input — a bare host, a host:port pair, or a
// full URL — into a structured Endpoint describing how to reach it: the
// parsed IP/hostname, ICMP reachability and latency class, a best-effort OS
// guess from the echo reply TTL, and the scheme/port that a live TCP connect
// actually succeeded against.
//
// Every exported entry point always returns an *Endpoint, even on failure;
// fields that don't apply are left at their zero value rather than the
// Endpoint itself being nil, so callers never need a second not-found check.
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/miekg/dns"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/nethawk-io/nethawk/internal/nherrors"
)

// Latency classification thresholds, in milliseconds.
const (
	thresholdFast     = 50
	thresholdStable   = 150
	thresholdSlow     = 300
	thresholdUnstable = 1000
)

// resolvConfPath is the standard location of the system resolver config;
// overridden in tests.
var resolvConfPath = "/etc/resolv.conf"

// ttlGuesses lists, in ascending order, the TTL ceilings NetHawk recognizes
// and the OS family associated with each. A reply TTL is matched to the
// smallest ceiling that is both >= the observed TTL and within 20 of it.
var ttlGuesses = []struct {
	ceiling int
	guess   string
}{
	{1, "Hop-Limited"},
	{32, "Older Windows"},
	{64, "Linux"},
	{128, "Windows"},
	{255, "Network Device"},
}

// Endpoint is the resolver's structured result.
type Endpoint struct {
	Original      string
	InputKind     string // "ip" or "domain"
	IP            string
	Hostname      string
	Port          int
	Scheme        string
	ResolvedURL   string
	ICMPReachable bool
	LatencyMS     *float64
	LatencyClass  string // fast, stable, slow, unstable, very-unstable, unreachable
	OSGuess       string
	TCPOpen       *bool // nil = unknown, else true/false
	Error         string
}

// Resolver resolves raw input into Endpoints.
type Resolver struct {
	maxTries    int
	icmpTimeout time.Duration
	tcpTimeout  time.Duration
	dialer      *net.Dialer
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMaxTries overrides the default of 3 ICMP attempts per Resolve call.
func WithMaxTries(n int) Option {
	return func(r *Resolver) { r.maxTries = n }
}

// WithTimeouts overrides the per-packet ICMP timeout and per-attempt TCP
// connect timeout, both 2 seconds by default.
func WithTimeouts(icmpTimeout, tcpTimeout time.Duration) Option {
	return func(r *Resolver) {
		r.icmpTimeout = icmpTimeout
		r.tcpTimeout = tcpTimeout
	}
}

// New returns a Resolver with NetHawk's defaults applied.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		maxTries:    3,
		icmpTimeout: 2 * time.Second,
		tcpTimeout:  2 * time.Second,
		dialer:      &net.Dialer{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve converts rawInput into an Endpoint. portOverride, when non-nil,
// wins over any port embedded in rawInput.
func (r *Resolver) Resolve(ctx context.Context, rawInput string, portOverride *int) (*Endpoint, error) {
	ep := &Endpoint{Original: rawInput}

	host, port, scheme, err := parseInput(rawInput, portOverride)
	if err != nil {
		return ep, &nherrors.ResolverError{Input: rawInput, Err: err}
	}
	ep.Scheme = scheme

	if ip := net.ParseIP(host); ip != nil {
		ep.InputKind = "ip"
		ep.IP = host
		if name, err := reverseLookup(host); err == nil {
			ep.Hostname = name
		} else {
			ep.Error = err.Error()
		}
	} else {
		ep.InputKind = "domain"
		ep.Hostname = host
		ip, lookupErr := lookupHost(host)
		if lookupErr != nil {
			ep.Error = lookupErr.Error()
			return ep, nil
		}
		ep.IP = ip
	}

	r.probeReachability(ctx, ep)
	r.negotiateSchemeAndPort(ctx, ep, host, port, scheme, portOverride)

	return ep, nil
}

// parseInput splits rawInput into (host, port, scheme). port is 0 when
// neither the input nor portOverride specify one.
func parseInput(rawInput string, portOverride *int) (host string, port int, scheme string, err error) {
	scheme = "https"
	if strings.Contains(rawInput, "://") {
		u, perr := url.Parse(rawInput)
		if perr != nil {
			return "", 0, "", fmt.Errorf("parse url: %w", perr)
		}
		scheme = u.Scheme
		host = u.Hostname()
		if p := u.Port(); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil {
				return "", 0, "", fmt.Errorf("parse url port: %w", err)
			}
		}
	} else {
		h, p, serr := net.SplitHostPort(rawInput)
		if serr == nil {
			host = h
			port, err = strconv.Atoi(p)
			if err != nil {
				return "", 0, "", fmt.Errorf("parse port: %w", err)
			}
		} else {
			host = rawInput
		}
	}
	if portOverride != nil {
		port = *portOverride
	}
	return host, port, scheme, nil
}

// dnsExchangeTimeout bounds each miekg/dns query against one configured
// resolver before lookupHost/reverseLookup move on to the next one.
const dnsExchangeTimeout = 2 * time.Second

// lookupHost resolves host to its first A record, querying the servers named
// in /etc/resolv.conf directly via miekg/dns first and falling back to the
// standard library resolver when resolv.conf is missing or every configured
// server fails to answer (e.g. inside containers or on Windows).
func lookupHost(host string) (string, error) {
	if ip, err := lookupHostViaDNS(host); err == nil {
		return ip, nil
	}
	addrs, err := net.LookupHost(host)
	if err != nil || len(addrs) == 0 {
		return "", fmt.Errorf("could not resolve host %q", host)
	}
	return addrs[0], nil
}

func lookupHostViaDNS(host string) (string, error) {
	cfg, err := resolveDNSServers(resolvConfPath)
	if err != nil || len(cfg.Servers) == 0 {
		return "", fmt.Errorf("no usable resolv.conf servers: %w", err)
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), dns.TypeA)
	c := &dns.Client{Timeout: dnsExchangeTimeout}

	for _, server := range cfg.Servers {
		resp, _, err := c.Exchange(m, net.JoinHostPort(server, cfg.Port))
		if err != nil || resp == nil {
			continue
		}
		for _, rr := range resp.Answer {
			if a, ok := rr.(*dns.A); ok {
				return a.A.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no A record found for %q via configured resolvers", host)
}

// reverseLookup resolves ip to its PTR hostname the same way lookupHost
// resolves a forward A record: miekg/dns against /etc/resolv.conf's servers
// first, falling back to net.LookupAddr.
func reverseLookup(ip string) (string, error) {
	if name, err := reverseLookupViaDNS(ip); err == nil {
		return name, nil
	}
	names, err := net.LookupAddr(ip)
	if err != nil || len(names) == 0 {
		return "", fmt.Errorf("reverse DNS lookup failed: %w", err)
	}
	return strings.TrimSuffix(names[0], "."), nil
}

func reverseLookupViaDNS(ip string) (string, error) {
	cfg, err := resolveDNSServers(resolvConfPath)
	if err != nil || len(cfg.Servers) == 0 {
		return "", fmt.Errorf("no usable resolv.conf servers: %w", err)
	}
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return "", fmt.Errorf("build reverse address: %w", err)
	}

	m := new(dns.Msg)
	m.SetQuestion(arpa, dns.TypePTR)
	c := &dns.Client{Timeout: dnsExchangeTimeout}

	for _, server := range cfg.Servers {
		resp, _, err := c.Exchange(m, net.JoinHostPort(server, cfg.Port))
		if err != nil || resp == nil {
			continue
		}
		for _, rr := range resp.Answer {
			if ptr, ok := rr.(*dns.PTR); ok {
				return strings.TrimSuffix(ptr.Ptr, "."), nil
			}
		}
	}
	return "", fmt.Errorf("no PTR record found for %q via configured resolvers", ip)
}

// probeReachability sends up to maxTries ICMP echo requests and records the
// first successful round-trip's latency and the derived latency class and OS
// guess. Raw-socket unavailability (unprivileged process) degrades to
// unreachable rather than failing the whole resolve.
func (r *Resolver) probeReachability(ctx context.Context, ep *Endpoint) {
	conn, err := icmp.ListenPacket("ip4:icmp", "0.0.0.0")
	if err != nil {
		ep.LatencyClass = "unreachable"
		return
	}
	defer conn.Close()

	for attempt := 0; attempt < r.maxTries; attempt++ {
		select {
		case <-ctx.Done():
			ep.LatencyClass = "unreachable"
			return
		default:
		}
		latencyMS, ttl, err := pingOnce(conn, ep.IP, r.icmpTimeout, attempt)
		if err != nil {
			continue
		}
		ep.ICMPReachable = true
		ep.LatencyMS = &latencyMS
		ep.LatencyClass = classifyLatency(latencyMS)
		ep.OSGuess = guessOS(ttl)
		return
	}
	ep.LatencyClass = "unreachable"
}

func pingOnce(conn *icmp.PacketConn, ip string, timeout time.Duration, seq int) (float64, int, error) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: seq & 0xffff, Seq: seq, Data: []byte("nethawk")},
	}
	wb, err := msg.Marshal(nil)
	if err != nil {
		return 0, 0, err
	}

	dst, err := net.ResolveIPAddr("ip4", ip)
	if err != nil {
		return 0, 0, err
	}

	pc := conn.IPv4PacketConn()
	_ = pc.SetControlMessage(ipv4.FlagTTL, true)

	start := time.Now()
	if _, err := conn.WriteTo(wb, dst); err != nil {
		return 0, 0, err
	}
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, 0, err
	}

	rb := make([]byte, 1500)
	n, cm, _, err := pc.ReadFrom(rb)
	if err != nil {
		return 0, 0, err
	}
	elapsed := time.Since(start)

	rm, err := icmp.ParseMessage(1, rb[:n])
	if err != nil {
		return 0, 0, err
	}
	if rm.Type != ipv4.ICMPTypeEchoReply {
		return 0, 0, fmt.Errorf("unexpected ICMP type %v", rm.Type)
	}

	ttl := 0
	if cm != nil {
		ttl = cm.TTL
	}
	return float64(elapsed.Microseconds()) / 1000.0, ttl, nil
}

func classifyLatency(latencyMS float64) string {
	switch {
	case latencyMS < thresholdFast:
		return "fast"
	case latencyMS < thresholdStable:
		return "stable"
	case latencyMS < thresholdSlow:
		return "slow"
	case latencyMS < thresholdUnstable:
		return "unstable"
	default:
		return "very-unstable"
	}
}

// guessOS maps an observed ICMP TTL to a likely OS family: the smallest
// recognized ceiling that is >= ttl and within 20 of it.
func guessOS(ttl int) string {
	for _, g := range ttlGuesses {
		if g.ceiling >= ttl && g.ceiling-ttl <= 20 {
			return g.guess
		}
	}
	return "Unknown"
}

// negotiateSchemeAndPort performs the TCP connect negotiation described in
// the resolver contract: try the given scheme, then (if it was https) fall
// back to http, then (if an explicit port was given) a raw connect to that
// port regardless of scheme.
func (r *Resolver) negotiateSchemeAndPort(ctx context.Context, ep *Endpoint, host string, port int, scheme string, portOverride *int) {
	candidates := []string{scheme}
	if scheme == "https" {
		candidates = append(candidates, "http")
	}

	explicitPort := port != 0

	for _, candidateScheme := range candidates {
		defaultPort := defaultPortFor(candidateScheme)
		p := defaultPort
		if portOverride != nil {
			p = *portOverride
		} else if explicitPort {
			p = port
		}

		if r.tryConnect(ctx, ep, host, candidateScheme, p, defaultPort) {
			return
		}
	}

	if explicitPort {
		if r.tryConnect(ctx, ep, host, scheme, port, defaultPortFor(scheme)) {
			return
		}
		ep.Error = fmt.Sprintf("TCP connection to port %d failed", port)
	} else {
		ep.Error = "No open port found and URL could not be resolved"
	}
	open := false
	ep.TCPOpen = &open
}

func defaultPortFor(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

// tryConnect attempts a TCP connect to host:port, retrying up to
// r.maxTries-1 times with jittered exponential backoff before giving up.
func (r *Resolver) tryConnect(ctx context.Context, ep *Endpoint, host, scheme string, port, defaultPort int) bool {
	var ok bool
	operation := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, r.tcpTimeout)
		defer cancel()
		conn, err := r.dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err != nil {
			return err
		}
		conn.Close()
		ok = true
		return nil
	}

	retries := r.maxTries - 1
	if retries < 0 {
		retries = 0
	}
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(retries)), ctx)
	_ = backoff.Retry(operation, bo)

	if !ok {
		return false
	}

	resolvedScheme := scheme
	if port == 80 {
		resolvedScheme = "http"
	} else if port == 443 {
		resolvedScheme = "https"
	}

	open := true
	ep.TCPOpen = &open
	ep.Port = port
	ep.Scheme = resolvedScheme
	if port == defaultPortFor(resolvedScheme) {
		ep.ResolvedURL = fmt.Sprintf("%s://%s", resolvedScheme, host)
	} else {
		ep.ResolvedURL = fmt.Sprintf("%s://%s:%d", resolvedScheme, host, port)
	}
	return true
}

// resolveDNSServers parses /etc/resolv.conf with miekg/dns, naming the
// servers lookupHost/reverseLookup query directly. Its caller falls back to
// the standard library resolver when this returns an error or an empty
// server list, e.g. inside containers or on Windows.
func resolveDNSServers(path string) (*dns.ClientConfig, error) {
	cfg, err := dns.ClientConfigFromFile(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
