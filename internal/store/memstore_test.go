package store

import (
	"context"
	"testing"
)

func TestMemStore_GetOrCreateTarget_Idempotent(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	a, err := s.GetOrCreateTarget(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("GetOrCreateTarget() error = %v", err)
	}
	b, err := s.GetOrCreateTarget(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("GetOrCreateTarget() second call error = %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("GetOrCreateTarget() returned different IDs (%q, %q) for the same IP, want idempotent get", a.ID, b.ID)
	}
}

func TestMemStore_GetOrCreateService_UniquePerTargetAndPort(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	if _, err := s.GetOrCreateTarget(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("GetOrCreateTarget() error = %v", err)
	}

	svc1, err := s.GetOrCreateService(ctx, "10.0.0.1", 80, "tcp")
	if err != nil {
		t.Fatalf("GetOrCreateService() error = %v", err)
	}
	svc2, err := s.GetOrCreateService(ctx, "10.0.0.1", 80, "tcp")
	if err != nil {
		t.Fatalf("GetOrCreateService() error = %v", err)
	}
	if svc1.ID != svc2.ID {
		t.Errorf("GetOrCreateService() not idempotent for same (target, port)")
	}

	svc3, err := s.GetOrCreateService(ctx, "10.0.0.1", 443, "tcp")
	if err != nil {
		t.Fatalf("GetOrCreateService() error = %v", err)
	}
	if svc3.ID == svc1.ID {
		t.Error("GetOrCreateService() returned the same record for different ports")
	}
}

func TestMemStore_GetOrCreateService_UnknownTarget(t *testing.T) {
	s := NewMemStore()
	_, err := s.GetOrCreateService(context.Background(), "10.0.0.9", 80, "tcp")
	if err == nil {
		t.Fatal("GetOrCreateService() error = nil, want error for unregistered target")
	}
}

func TestMemStore_GetOrCreateVirtualHost_UniquePerTargetAndDomain(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	if _, err := s.GetOrCreateTarget(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("GetOrCreateTarget() error = %v", err)
	}

	vh1, err := s.GetOrCreateVirtualHost(ctx, "10.0.0.1", "example.com", 80)
	if err != nil {
		t.Fatalf("GetOrCreateVirtualHost() error = %v", err)
	}
	vh2, err := s.GetOrCreateVirtualHost(ctx, "10.0.0.1", "example.com", 80)
	if err != nil {
		t.Fatalf("GetOrCreateVirtualHost() error = %v", err)
	}
	if vh1.ID != vh2.ID {
		t.Error("GetOrCreateVirtualHost() not idempotent for same (target, domain)")
	}
}

func TestMemStore_ServicesByTargetIP(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	if _, err := s.GetOrCreateTarget(ctx, "10.0.0.1"); err != nil {
		t.Fatalf("GetOrCreateTarget() error = %v", err)
	}
	if _, err := s.GetOrCreateService(ctx, "10.0.0.1", 80, "tcp"); err != nil {
		t.Fatalf("GetOrCreateService() error = %v", err)
	}
	if _, err := s.GetOrCreateService(ctx, "10.0.0.1", 22, "tcp"); err != nil {
		t.Fatalf("GetOrCreateService() error = %v", err)
	}

	services, err := s.ServicesByTargetIP(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("ServicesByTargetIP() error = %v", err)
	}
	if len(services) != 2 {
		t.Errorf("ServicesByTargetIP() count = %d, want 2", len(services))
	}
}

func TestMemStore_GetOrCreatePathEntry_UniquePerVHostAndPath(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	p1, err := s.GetOrCreatePathEntry(ctx, "vh-1", "/admin")
	if err != nil {
		t.Fatalf("GetOrCreatePathEntry() error = %v", err)
	}
	p2, err := s.GetOrCreatePathEntry(ctx, "vh-1", "/admin")
	if err != nil {
		t.Fatalf("GetOrCreatePathEntry() error = %v", err)
	}
	if p1.ID != p2.ID {
		t.Error("GetOrCreatePathEntry() not idempotent for same (vhost, path)")
	}

	p3, err := s.GetOrCreatePathEntry(ctx, "vh-2", "/admin")
	if err != nil {
		t.Fatalf("GetOrCreatePathEntry() error = %v", err)
	}
	if p3.ID == p1.ID {
		t.Error("GetOrCreatePathEntry() collapsed distinct vhosts into the same entry")
	}
}

func TestMemStore_DeleteByKey_UnknownCollection(t *testing.T) {
	s := NewMemStore()
	err := s.DeleteByKey(context.Background(), "bogus", "x")
	if err == nil {
		t.Fatal("DeleteByKey() error = nil, want error for unknown collection")
	}
}
