// Package scanner drives an external nmap-compatible port scanner: it builds
// a profile-driven command line, writes text and XML output into a
// temporary directory, and parses the XML into the host/port/service
// summary the dispatcher's ServiceDiscovery strategy persists.
package scanner

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Profile is one named entry from the `nmap.profiles` config section.
type Profile struct {
	Ports     string
	Arguments string
	Scripts   []string
}

// Config mirrors the `nmap` config section.
type Config struct {
	Profiles   map[string]Profile
	TCPPorts   string
	UDPPorts   []string
	MinRate    int
	MaxRetries int
}

// Scanner wraps one nmap invocation against a single host.
type Scanner struct {
	host       string
	cfg        Config
	scanType   string
	nmapPath   string
	resultsDir string
	rawPath    string
	xmlPath    string
}

// New locates the nmap binary on PATH and prepares a temporary output
// directory for host.
func New(host string, cfg Config, scanType string) (*Scanner, error) {
	path, err := exec.LookPath("nmap")
	if err != nil {
		return nil, fmt.Errorf("nmap not found in PATH: %w", err)
	}
	dir, err := os.MkdirTemp("", "nmap_scan_")
	if err != nil {
		return nil, fmt.Errorf("create temp results dir: %w", err)
	}
	return &Scanner{host: host, cfg: cfg, scanType: scanType, nmapPath: path, resultsDir: dir}, nil
}

// formattedDefaultPorts renders the config's TCP/UDP port sets into nmap's
// "T:<tcp>,U:<udp>" syntax.
func (s *Scanner) formattedDefaultPorts() string {
	var parts []string
	if s.cfg.TCPPorts != "" {
		parts = append(parts, "T:"+s.cfg.TCPPorts)
	}
	if len(s.cfg.UDPPorts) > 0 {
		parts = append(parts, "U:"+strings.Join(s.cfg.UDPPorts, ","))
	}
	return strings.Join(parts, ",")
}

func (s *Scanner) profile() Profile {
	return s.cfg.Profiles[s.scanType]
}

// buildCommand assembles the nmap argv, following the profile's ports and
// arguments, falling back to the config's default port set.
func (s *Scanner) buildCommand(ports string) []string {
	profile := s.profile()

	effectivePorts := ports
	if effectivePorts == "" {
		effectivePorts = profile.Ports
	}
	if effectivePorts == "" || effectivePorts == "default" {
		effectivePorts = s.formattedDefaultPorts()
	}

	var cmd []string
	cmd = append(cmd, s.nmapPath, s.host)

	hasTCP := strings.Contains(effectivePorts, "T:") || (strings.Contains(effectivePorts, ",") && !strings.Contains(effectivePorts, "U:"))
	hasUDP := strings.Contains(effectivePorts, "U:")

	if !strings.Contains(profile.Arguments, "-sS") && hasTCP {
		cmd = append(cmd, "-sS")
	}
	if !strings.Contains(profile.Arguments, "-sU") && hasUDP {
		cmd = append(cmd, "-sU")
	}

	if profile.Arguments != "" {
		cmd = append(cmd, strings.Fields(profile.Arguments)...)
	}
	if effectivePorts != "" {
		cmd = append(cmd, "-p", effectivePorts)
	}
	if len(profile.Scripts) > 0 {
		cmd = append(cmd, "--script", strings.Join(profile.Scripts, ","))
	}

	label := "scan_" + time.Now().UTC().Format("20060102150405")
	s.rawPath = filepath.Join(s.resultsDir, label+".nmap")
	s.xmlPath = filepath.Join(s.resultsDir, label+".xml")
	cmd = append(cmd, "-oN", s.rawPath, "-oX", s.xmlPath)

	return cmd
}

// Scan runs nmap against ports (empty string defers to the profile/default
// port set) and blocks until it exits.
func (s *Scanner) Scan(ctx context.Context, ports string) error {
	cmd := s.buildCommand(ports)
	c := exec.CommandContext(ctx, cmd[0], cmd[1:]...)
	out, err := c.CombinedOutput()
	if err != nil {
		return fmt.Errorf("nmap scan failed: %w (output: %s)", err, out)
	}
	return nil
}

// Close removes the temporary results directory.
func (s *Scanner) Close() error {
	return os.RemoveAll(s.resultsDir)
}

// --- XML result types ---

type nmapRun struct {
	XMLName xml.Name   `xml:"nmaprun"`
	Hosts   []nmapHost `xml:"host"`
}

type nmapHost struct {
	Address nmapAddress `xml:"address"`
	Ports   nmapPorts   `xml:"ports"`
}

type nmapAddress struct {
	Addr string `xml:"addr,attr"`
}

type nmapPorts struct {
	Port []nmapPort `xml:"port"`
}

type nmapPort struct {
	Protocol string      `xml:"protocol,attr"`
	PortID   int         `xml:"portid,attr"`
	State    nmapState   `xml:"state"`
	Service  nmapService `xml:"service"`
	Scripts  []nmapScript `xml:"script"`
}

type nmapState struct {
	State     string `xml:"state,attr"`
	Reason    string `xml:"reason,attr"`
	ReasonTTL string `xml:"reason_ttl,attr"`
}

type nmapService struct {
	Name    string `xml:"name,attr"`
	Product string `xml:"product,attr"`
	Version string `xml:"version,attr"`
	CPE     []string `xml:"cpe"`
}

type nmapScript struct {
	ID     string          `xml:"id,attr"`
	Output string          `xml:"output,attr"`
	Elems  []nmapScriptElem `xml:"elem"`
}

type nmapScriptElem struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

// Port is one normalized per-host port entry.
type Port struct {
	Protocol  string
	Port      int
	Service   string
	State     string
	Reason    string
	ReasonTTL string
}

// ServiceInfo is one normalized per-port service fingerprint.
type ServiceInfo struct {
	Port    int
	Product string
	Version string
	CPE     []string
}

// Results is the post-processed form of one nmap XML report.
type Results struct {
	Hosts       []string
	PortsByHost map[string][]Port
	Services    []ServiceInfo
	VHostHint   string // best-effort, from http-title's redirect_url
}

// ParseResults reads and normalizes the scanner's XML output. Call after
// Scan has returned successfully.
func (s *Scanner) ParseResults() (*Results, error) {
	data, err := os.ReadFile(s.xmlPath)
	if err != nil {
		return nil, fmt.Errorf("read xml output: %w", err)
	}
	var run nmapRun
	if err := xml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parse nmap xml: %w", err)
	}

	res := &Results{PortsByHost: make(map[string][]Port)}
	for _, h := range run.Hosts {
		ip := h.Address.Addr
		res.Hosts = append(res.Hosts, ip)

		for _, p := range h.Ports.Port {
			res.PortsByHost[ip] = append(res.PortsByHost[ip], Port{
				Protocol:  p.Protocol,
				Port:      p.PortID,
				Service:   p.Service.Name,
				State:     p.State.State,
				Reason:    p.State.Reason,
				ReasonTTL: p.State.ReasonTTL,
			})

			if p.Service.Product != "" || p.Service.Version != "" || len(p.Service.CPE) > 0 {
				res.Services = append(res.Services, ServiceInfo{
					Port: p.PortID, Product: p.Service.Product, Version: p.Service.Version, CPE: p.Service.CPE,
				})
			}

			if res.VHostHint == "" {
				if hint := vhostHintFromScripts(p.Scripts); hint != "" {
					res.VHostHint = hint
				}
			}
		}
	}
	sort.Strings(res.Hosts)
	return res, nil
}

// vhostHintFromScripts looks for an http-title script's redirect_url
// element, the same best-effort hint the original scanner reads.
func vhostHintFromScripts(scripts []nmapScript) string {
	for _, s := range scripts {
		if s.ID != "http-title" {
			continue
		}
		for _, e := range s.Elems {
			if e.Key == "redirect_url" {
				return e.Value
			}
		}
	}
	return ""
}

// OpenPorts returns every distinct open port across all scanned hosts,
// sorted ascending.
func (r *Results) OpenPorts() []int {
	seen := make(map[int]bool)
	var out []int
	for _, ports := range r.PortsByHost {
		for _, p := range ports {
			if p.State != "open" || seen[p.Port] {
				continue
			}
			seen[p.Port] = true
			out = append(out, p.Port)
		}
	}
	sort.Ints(out)
	return out
}

// Summary is a terse human-readable recap of a scan, suitable for the CLI's
// completion message.
func (r *Results) Summary() string {
	var hostLines []string
	for _, ip := range r.Hosts {
		ports := r.PortsByHost[ip]
		open := 0
		for _, p := range ports {
			if p.State == "open" {
				open++
			}
		}
		hostLines = append(hostLines, ip+": "+strconv.Itoa(open)+" open port(s)")
	}
	return strings.Join(hostLines, "\n")
}
