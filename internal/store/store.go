// Package store defines NetHawk's persistence contract and the two adapters
// that satisfy it: mongostore, backed by go.mongodb.org/mongo-driver, and
// memstore, an in-memory map-backed adapter used for dry runs and tests.
//
// Every Get-or-create method enforces the unique key named in its doc
// comment by treating a duplicate-key write as "return the existing record"
// rather than an error — the same contract the source system's document
// models expose via their own get_or_create classmethods.
package store

import (
	"context"

	"github.com/nethawk-io/nethawk/internal/model"
)

// Store is the persistence contract every enumeration module and service
// handler depends on.
type Store interface {
	// GetOrCreateTarget returns the Target for ip, creating it if absent.
	// Unique key: ip.
	GetOrCreateTarget(ctx context.Context, ip string) (*model.Target, error)

	// GetOrCreateService returns the Service for (targetIP, port), creating
	// it if absent. Unique key: (target, port).
	GetOrCreateService(ctx context.Context, targetIP string, port int, proto string) (*model.Service, error)

	// GetOrCreateVirtualHost returns the VirtualHost for (targetIP, domain),
	// creating it if absent. Unique key: (target, domain).
	GetOrCreateVirtualHost(ctx context.Context, targetIP, domain string, port int) (*model.VirtualHost, error)

	// GetOrCreateTechnology returns the Technology for (vhostID, name,
	// version), creating it if absent. Unique key: (host, name, version).
	GetOrCreateTechnology(ctx context.Context, vhostID string, name, version string) (*model.Technology, error)

	// GetOrCreatePathEntry returns the PathEntry for (vhostID, path),
	// creating it if absent. Unique key: (path, vhost).
	GetOrCreatePathEntry(ctx context.Context, vhostID string, path string) (*model.PathEntry, error)

	// GetOrCreateRobotsEntry returns the RobotsEntry for (vhostID, path),
	// creating it if absent. Unique key: (path, vhost).
	GetOrCreateRobotsEntry(ctx context.Context, vhostID string, path string) (*model.RobotsEntry, error)

	// GetOrCreateFormField returns the FormFieldEntry for (vhostID, action),
	// creating it if absent. Unique key: (action, vhost).
	GetOrCreateFormField(ctx context.Context, vhostID string, action string) (*model.FormFieldEntry, error)

	// SaveService persists an already-fetched Service's mutated fields.
	SaveService(ctx context.Context, svc *model.Service) error

	// ServicesByTargetIP returns every Service persisted under targetIP.
	ServicesByTargetIP(ctx context.Context, ip string) ([]*model.Service, error)

	// DeleteByKey removes the record identified by key from collection.
	DeleteByKey(ctx context.Context, collection, key string) error
}
