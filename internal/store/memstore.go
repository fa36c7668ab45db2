package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nethawk-io/nethawk/internal/model"
	"github.com/nethawk-io/nethawk/internal/nherrors"
)

// MemStore is an in-memory Store, used when no mongodb config section is
// present and by every test in this repository that does not specifically
// exercise mongostore.
type MemStore struct {
	mu sync.Mutex
	seq uint64

	targets      map[string]*model.Target      // by IP
	services     map[string]*model.Service     // by "targetIP:port"
	vhosts       map[string]*model.VirtualHost // by "targetIP:domain"
	technologies map[string]*model.Technology  // by "vhostID:name:version"
	paths        map[string]*model.PathEntry   // by "vhostID:path"
	robots       map[string]*model.RobotsEntry // by "vhostID:path"
	formFields   map[string]*model.FormFieldEntry // by "vhostID:action"
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		targets:      make(map[string]*model.Target),
		services:     make(map[string]*model.Service),
		vhosts:       make(map[string]*model.VirtualHost),
		technologies: make(map[string]*model.Technology),
		paths:        make(map[string]*model.PathEntry),
		robots:       make(map[string]*model.RobotsEntry),
		formFields:   make(map[string]*model.FormFieldEntry),
	}
}

func (s *MemStore) nextID() string {
	n := atomic.AddUint64(&s.seq, 1)
	return fmt.Sprintf("mem-%d", n)
}

func (s *MemStore) GetOrCreateTarget(_ context.Context, ip string) (*model.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.targets[ip]; ok {
		return t, nil
	}
	now := time.Now()
	t := &model.Target{ID: s.nextID(), IP: ip, CreatedAt: now, UpdatedAt: now}
	s.targets[ip] = t
	return t, nil
}

func (s *MemStore) GetOrCreateService(_ context.Context, targetIP string, port int, proto string) (*model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetIP]
	if !ok {
		return nil, &nherrors.StoreError{Op: "GetOrCreateService", Err: fmt.Errorf("unknown target %q", targetIP)}
	}
	key := fmt.Sprintf("%s:%d", targetIP, port)
	if svc, ok := s.services[key]; ok {
		return svc, nil
	}
	svc := &model.Service{ID: s.nextID(), TargetID: target.ID, Port: port, Protocol: proto, State: "open"}
	s.services[key] = svc
	target.Services = append(target.Services, svc.ID)
	return svc, nil
}

func (s *MemStore) GetOrCreateVirtualHost(_ context.Context, targetIP, domain string, port int) (*model.VirtualHost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[targetIP]
	if !ok {
		return nil, &nherrors.StoreError{Op: "GetOrCreateVirtualHost", Err: fmt.Errorf("unknown target %q", targetIP)}
	}
	key := fmt.Sprintf("%s:%s", targetIP, domain)
	if vh, ok := s.vhosts[key]; ok {
		return vh, nil
	}
	vh := &model.VirtualHost{ID: s.nextID(), TargetID: target.ID, Domain: domain, Port: port}
	s.vhosts[key] = vh
	target.VirtualHosts = append(target.VirtualHosts, vh.ID)
	return vh, nil
}

func (s *MemStore) GetOrCreateTechnology(_ context.Context, vhostID string, name, version string) (*model.Technology, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%s:%s", vhostID, name, version)
	if t, ok := s.technologies[key]; ok {
		return t, nil
	}
	t := &model.Technology{ID: s.nextID(), VirtualHostID: vhostID, Name: name, Version: version}
	s.technologies[key] = t
	if vh := s.vhostByID(vhostID); vh != nil {
		vh.Technologies = append(vh.Technologies, t.ID)
	}
	return t, nil
}

func (s *MemStore) GetOrCreatePathEntry(_ context.Context, vhostID string, path string) (*model.PathEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%s", vhostID, path)
	if p, ok := s.paths[key]; ok {
		return p, nil
	}
	p := &model.PathEntry{ID: s.nextID(), VirtualHostID: vhostID, Path: path}
	s.paths[key] = p
	return p, nil
}

func (s *MemStore) GetOrCreateRobotsEntry(_ context.Context, vhostID string, path string) (*model.RobotsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%s", vhostID, path)
	if r, ok := s.robots[key]; ok {
		return r, nil
	}
	r := &model.RobotsEntry{ID: s.nextID(), VirtualHostID: vhostID, Path: path}
	s.robots[key] = r
	return r, nil
}

func (s *MemStore) GetOrCreateFormField(_ context.Context, vhostID string, action string) (*model.FormFieldEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%s", vhostID, action)
	if f, ok := s.formFields[key]; ok {
		return f, nil
	}
	f := &model.FormFieldEntry{ID: s.nextID(), VirtualHostID: vhostID, Action: action}
	s.formFields[key] = f
	return f, nil
}

func (s *MemStore) SaveService(_ context.Context, svc *model.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%s:%d", svc.TargetID, svc.Port)
	for k, existing := range s.services {
		if existing.ID == svc.ID {
			key = k
			break
		}
	}
	s.services[key] = svc
	return nil
}

func (s *MemStore) ServicesByTargetIP(_ context.Context, ip string) ([]*model.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.targets[ip]
	if !ok {
		return nil, nil
	}
	var out []*model.Service
	for _, id := range target.Services {
		for _, svc := range s.services {
			if svc.ID == id {
				out = append(out, svc)
				break
			}
		}
	}
	return out, nil
}

func (s *MemStore) DeleteByKey(_ context.Context, collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch collection {
	case "targets":
		delete(s.targets, key)
	case "services":
		delete(s.services, key)
	case "vhosts":
		delete(s.vhosts, key)
	case "technologies":
		delete(s.technologies, key)
	case "paths":
		delete(s.paths, key)
	case "robots":
		delete(s.robots, key)
	case "formFields":
		delete(s.formFields, key)
	default:
		return &nherrors.StoreError{Op: "DeleteByKey", Err: fmt.Errorf("unknown collection %q", collection)}
	}
	return nil
}

func (s *MemStore) vhostByID(id string) *model.VirtualHost {
	for _, vh := range s.vhosts {
		if vh.ID == id {
			return vh
		}
	}
	return nil
}

var _ Store = (*MemStore)(nil)
