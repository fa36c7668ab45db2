// Package model defines the entities persisted by NetHawk's store: targets,
// their discovered services, virtual hosts, and the recon data gathered
// against each virtual host.
//
// Ownership is one-way: a Target owns VirtualHosts and Services, a VirtualHost
// owns a Technology list and a ServiceLinks bucket, and ServiceLinks owns
// FormFieldEntry/RobotsEntry/PathEntry collections. Entities refer to each
// other only by ID strings: owners list their children's IDs, and children
// carry their owner's ID (TargetID, VirtualHostID). No struct embeds another,
// so persisted documents never nest inside each other.
package model

import "time"

// Target is the root recon entity: one network host, identified by its IP.
//
// Invariant: IP is unique across the store (§3, §8 P5).
type Target struct {
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ID           string
	IP           string
	Hostname     string
	OSGuess      string
	VirtualHosts []string // VirtualHost IDs owned by this target
	Services     []string // Service IDs owned by this target
}

// Service is a single classified (target, port) pair as reported by the
// port-scan driver.
//
// Invariant: (TargetID, Port) is unique (§3, §8 P5).
type Service struct {
	ID         string
	TargetID   string
	Protocol   string // "tcp" or "udp"
	Port       int
	State      string
	Reason     string
	Name       string
	Product    string
	Version    string
	ExtraInfo  string
	CPE        []string
}

// VirtualHost is a named virtual host discovered on a target IP.
//
// Invariant: (TargetID, Domain) is unique (§3, §8 P5).
type VirtualHost struct {
	ID           string
	TargetID     string
	Domain       string
	Port         int
	Technologies []string // Technology IDs
	Links        string   // ServiceLinks ID
}

// Technology is a detected technology/framework fingerprint on a VirtualHost.
//
// Invariant: (Name, Version, VirtualHostID) is unique.
type Technology struct {
	ID            string
	VirtualHostID string
	Name          string
	Version       string
	Categories    []string
	Confidence    string
	Group         string
	DetectedBy    string
}

// ServiceLinks is the flat bucket of recon artifacts gathered for one
// VirtualHost by the crawling/fuzzing modules.
type ServiceLinks struct {
	ID              string
	VirtualHostID   string
	URLs            []string
	Emails          []string
	Images          []string
	Videos          []string
	Audio           []string
	Comments        []string
	Pages           []string
	Parameters      []string
	SubdomainLinks  []string
	StaticFiles     []string
	JavascriptFiles []string
	ExternalFiles   []string
	OtherLinks      []string
	FormFields      []string // FormFieldEntry IDs
	RobotsEntries   []string // RobotsEntry IDs
	PathEntries     []string // PathEntry IDs
}

// FormFieldEntry is an HTML form discovered during crawling.
//
// Invariant: (Action, VirtualHostID) is unique.
type FormFieldEntry struct {
	ID            string
	VirtualHostID string
	Action        string
	Method        string
	Fields        []string
	FoundAt       []string
}

// RobotsEntryKind enumerates the line kinds parsed from robots.txt.
type RobotsEntryKind string

const (
	RobotsAllowed    RobotsEntryKind = "allowed"
	RobotsDisallowed RobotsEntryKind = "disallowed"
	RobotsSitemap    RobotsEntryKind = "sitemap"
)

// RobotsEntry is a single robots.txt directive.
//
// Invariant: (Path, VirtualHostID) is unique.
type RobotsEntry struct {
	ID            string
	VirtualHostID string
	Path          string
	Kind          RobotsEntryKind
	Status        string
}

// PathEntry is the persisted form of a fuzzer.Result for directory/vhost
// enumeration.
//
// Invariant: (Path, VirtualHostID) is unique.
type PathEntry struct {
	ID            string
	VirtualHostID string
	Path          string
	Status        int
	Size          int
	Words         int
	Lines         int
}
