package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nethawk-io/nethawk/internal/model"
	"github.com/nethawk-io/nethawk/internal/nherrors"
)

// MongoStore is the production Store, backed by a MongoDB database matching
// the `mongodb: {host, port, database, path}` config section.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore connects to uri and returns a MongoStore bound to database.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &nherrors.StoreError{Op: "Connect", Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, &nherrors.StoreError{Op: "Ping", Err: err}
	}
	return &MongoStore{db: client.Database(database)}, nil
}

var upsertAfter = options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

func (s *MongoStore) GetOrCreateTarget(ctx context.Context, ip string) (*model.Target, error) {
	coll := s.db.Collection("target_info")
	filter := bson.M{"ip_address": ip}
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{"ip_address": ip, "created_at": now, "updated_at": now},
	}
	var doc mongoTarget
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateTarget", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetOrCreateService(ctx context.Context, targetIP string, port int, proto string) (*model.Service, error) {
	target, err := s.GetOrCreateTarget(ctx, targetIP)
	if err != nil {
		return nil, err
	}
	coll := s.db.Collection("service_info")
	filter := bson.M{"target_id": target.ID, "port": port}
	update := bson.M{
		"$setOnInsert": bson.M{"target_id": target.ID, "port": port, "protocol": proto, "state": "open"},
	}
	var doc mongoService
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateService", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetOrCreateVirtualHost(ctx context.Context, targetIP, domain string, port int) (*model.VirtualHost, error) {
	target, err := s.GetOrCreateTarget(ctx, targetIP)
	if err != nil {
		return nil, err
	}
	coll := s.db.Collection("host_info")
	filter := bson.M{"target_id": target.ID, "domain": domain}
	update := bson.M{
		"$setOnInsert": bson.M{"target_id": target.ID, "domain": domain, "port": port},
	}
	var doc mongoVirtualHost
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateVirtualHost", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetOrCreateTechnology(ctx context.Context, vhostID string, name, version string) (*model.Technology, error) {
	coll := s.db.Collection("technology_entry")
	filter := bson.M{"host_id": vhostID, "name": name, "version": version}
	update := bson.M{"$setOnInsert": bson.M{"host_id": vhostID, "name": name, "version": version}}
	var doc mongoTechnology
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateTechnology", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetOrCreatePathEntry(ctx context.Context, vhostID string, path string) (*model.PathEntry, error) {
	coll := s.db.Collection("path_entry")
	filter := bson.M{"host_id": vhostID, "path": path}
	update := bson.M{"$setOnInsert": bson.M{"host_id": vhostID, "path": path}}
	var doc mongoPathEntry
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreatePathEntry", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetOrCreateRobotsEntry(ctx context.Context, vhostID string, path string) (*model.RobotsEntry, error) {
	coll := s.db.Collection("robots_entry")
	filter := bson.M{"host_id": vhostID, "path": path}
	update := bson.M{"$setOnInsert": bson.M{"host_id": vhostID, "path": path}}
	var doc mongoRobotsEntry
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateRobotsEntry", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) GetOrCreateFormField(ctx context.Context, vhostID string, action string) (*model.FormFieldEntry, error) {
	coll := s.db.Collection("form_field_entry")
	filter := bson.M{"host_id": vhostID, "action": action}
	update := bson.M{"$setOnInsert": bson.M{"host_id": vhostID, "action": action}}
	var doc mongoFormField
	if err := coll.FindOneAndUpdate(ctx, filter, update, upsertAfter).Decode(&doc); err != nil {
		return nil, &nherrors.StoreError{Op: "GetOrCreateFormField", Err: err}
	}
	return doc.toModel(), nil
}

func (s *MongoStore) SaveService(ctx context.Context, svc *model.Service) error {
	coll := s.db.Collection("service_info")
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": svc.ID}, fromServiceModel(svc))
	if err != nil {
		return &nherrors.StoreError{Op: "SaveService", Err: err}
	}
	return nil
}

func (s *MongoStore) ServicesByTargetIP(ctx context.Context, ip string) ([]*model.Service, error) {
	target, err := s.GetOrCreateTarget(ctx, ip)
	if err != nil {
		return nil, err
	}
	coll := s.db.Collection("service_info")
	cur, err := coll.Find(ctx, bson.M{"target_id": target.ID})
	if err != nil {
		return nil, &nherrors.StoreError{Op: "ServicesByTargetIP", Err: err}
	}
	defer cur.Close(ctx)

	var out []*model.Service
	for cur.Next(ctx) {
		var doc mongoService
		if err := cur.Decode(&doc); err != nil {
			return nil, &nherrors.StoreError{Op: "ServicesByTargetIP", Err: err}
		}
		out = append(out, doc.toModel())
	}
	return out, cur.Err()
}

func (s *MongoStore) DeleteByKey(ctx context.Context, collection, key string) error {
	coll := s.db.Collection(collection)
	if _, err := coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return &nherrors.StoreError{Op: "DeleteByKey", Err: fmt.Errorf("%s/%s: %w", collection, key, err)}
	}
	return nil
}

var _ Store = (*MongoStore)(nil)

// mongo* structs mirror the reference-style schema: documents hold a foreign
// key string (target_id/host_id) rather than an embedded sub-document.

type mongoTarget struct {
	ID           string    `bson:"_id,omitempty"`
	IP           string    `bson:"ip_address"`
	Hostname     string    `bson:"hostname"`
	OSGuess      string    `bson:"operating_system"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
	VirtualHosts []string  `bson:"virtual_hosts"`
	Services     []string  `bson:"services"`
}

func (d *mongoTarget) toModel() *model.Target {
	return &model.Target{
		ID: d.ID, IP: d.IP, Hostname: d.Hostname, OSGuess: d.OSGuess,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
		VirtualHosts: d.VirtualHosts, Services: d.Services,
	}
}

type mongoService struct {
	ID        string   `bson:"_id,omitempty"`
	TargetID  string   `bson:"target_id"`
	Protocol  string   `bson:"protocol"`
	Port      int      `bson:"port"`
	State     string   `bson:"state"`
	Reason    string   `bson:"reason"`
	Name      string   `bson:"name"`
	Product   string   `bson:"product"`
	Version   string   `bson:"version"`
	ExtraInfo string   `bson:"extrainfo"`
	CPE       []string `bson:"cpe"`
}

func (d *mongoService) toModel() *model.Service {
	return &model.Service{
		ID: d.ID, TargetID: d.TargetID, Protocol: d.Protocol, Port: d.Port,
		State: d.State, Reason: d.Reason, Name: d.Name, Product: d.Product,
		Version: d.Version, ExtraInfo: d.ExtraInfo, CPE: d.CPE,
	}
}

func fromServiceModel(svc *model.Service) mongoService {
	return mongoService{
		ID: svc.ID, TargetID: svc.TargetID, Protocol: svc.Protocol, Port: svc.Port,
		State: svc.State, Reason: svc.Reason, Name: svc.Name, Product: svc.Product,
		Version: svc.Version, ExtraInfo: svc.ExtraInfo, CPE: svc.CPE,
	}
}

type mongoVirtualHost struct {
	ID           string   `bson:"_id,omitempty"`
	TargetID     string   `bson:"target_id"`
	Domain       string   `bson:"domain"`
	Port         int      `bson:"port"`
	Technologies []string `bson:"technologies"`
	Links        string   `bson:"links"`
}

func (d *mongoVirtualHost) toModel() *model.VirtualHost {
	return &model.VirtualHost{
		ID: d.ID, TargetID: d.TargetID, Domain: d.Domain, Port: d.Port,
		Technologies: d.Technologies, Links: d.Links,
	}
}

type mongoTechnology struct {
	ID         string   `bson:"_id,omitempty"`
	HostID     string   `bson:"host_id"`
	Name       string   `bson:"name"`
	Version    string   `bson:"version"`
	Categories []string `bson:"categories"`
	Confidence string   `bson:"confidence"`
	Group      string   `bson:"group"`
	DetectedBy string   `bson:"detected_by"`
}

func (d *mongoTechnology) toModel() *model.Technology {
	return &model.Technology{
		ID: d.ID, VirtualHostID: d.HostID, Name: d.Name, Version: d.Version,
		Categories: d.Categories, Confidence: d.Confidence, Group: d.Group, DetectedBy: d.DetectedBy,
	}
}

type mongoPathEntry struct {
	ID     string `bson:"_id,omitempty"`
	HostID string `bson:"host_id"`
	Path   string `bson:"path"`
	Status int    `bson:"status"`
	Size   int    `bson:"size"`
	Words  int    `bson:"words"`
	Lines  int    `bson:"lines"`
}

func (d *mongoPathEntry) toModel() *model.PathEntry {
	return &model.PathEntry{
		ID: d.ID, VirtualHostID: d.HostID, Path: d.Path,
		Status: d.Status, Size: d.Size, Words: d.Words, Lines: d.Lines,
	}
}

type mongoRobotsEntry struct {
	ID     string              `bson:"_id,omitempty"`
	HostID string              `bson:"host_id"`
	Path   string              `bson:"path"`
	Kind   model.RobotsEntryKind `bson:"kind"`
	Status string              `bson:"status"`
}

func (d *mongoRobotsEntry) toModel() *model.RobotsEntry {
	return &model.RobotsEntry{ID: d.ID, VirtualHostID: d.HostID, Path: d.Path, Kind: d.Kind, Status: d.Status}
}

type mongoFormField struct {
	ID      string   `bson:"_id,omitempty"`
	HostID  string   `bson:"host_id"`
	Action  string   `bson:"action"`
	Method  string   `bson:"method"`
	Fields  []string `bson:"fields"`
	FoundAt []string `bson:"found_at"`
}

func (d *mongoFormField) toModel() *model.FormFieldEntry {
	return &model.FormFieldEntry{
		ID: d.ID, VirtualHostID: d.HostID, Action: d.Action, Method: d.Method,
		Fields: d.Fields, FoundAt: d.FoundAt,
	}
}
