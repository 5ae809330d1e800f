// Package mongotracker is the primary document-store persistence
// tracker from spec §4.D: applied log collection, default name
// delta_migrations, with descending-created and ascending-owner
// indexes created idempotently on first Configure.
package mongotracker

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/deltaeng/delta/internal/change"
	"github.com/deltaeng/delta/internal/logging"
	"github.com/deltaeng/delta/internal/tracker"
)

const defaultCollection = "delta_migrations"

// Persistence implements tracker.Persistence against a MongoDB
// collection.
type Persistence struct {
	db         *mongo.Database
	collection *mongo.Collection
	name       string
}

// New wraps a collection named from opts["collection"] (default
// delta_migrations) in db as a Tracker.
func New(db *mongo.Database, opts map[string]any, logger logging.Logger) *tracker.Base {
	name := defaultCollection
	if v, ok := opts["collection"].(string); ok && v != "" {
		name = v
	}
	p := &Persistence{db: db, collection: db.Collection(name), name: name}
	return tracker.NewBase(p, logger)
}

// LockPath opts out of the flock-based Configure serialization: Mongo
// has no local filesystem directory to lock, and CreateMany below is
// itself idempotent under concurrent callers (duplicate index
// creation on an existing name is a no-op per the Mongo server).
func (p *Persistence) LockPath() string { return "" }

// Configure creates the collection (if absent) with its two indexes.
// Re-running CreateMany with the same index names is idempotent; the
// Mongo server treats a matching existing index as a no-op.
func (p *Persistence) Configure(ctx context.Context, _ change.Request) (tracker.Source, error) {
	names, err := p.db.ListCollectionNames(ctx, bson.M{"name": p.name})
	if err != nil {
		return nil, fmt.Errorf("mongotracker: listing collections: %w", err)
	}
	if len(names) == 0 {
		if err := p.db.CreateCollection(ctx, p.name); err != nil {
			return nil, fmt.Errorf("mongotracker: creating collection %s: %w", p.name, err)
		}
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created", Value: -1}}, Options: options.Index().SetName("created_desc")},
		{Keys: bson.D{{Key: "owner", Value: 1}}, Options: options.Index().SetName("owner_asc")},
	}
	if _, err := p.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("mongotracker: creating indexes: %w", err)
	}

	return p.collection, nil
}

type doc struct {
	Name        string    `bson:"name"`
	File        string    `bson:"file"`
	Path        string    `bson:"path"`
	Extension   string    `bson:"extension"`
	Created     time.Time `bson:"created"`
	Applied     time.Time `bson:"applied"`
	Description string    `bson:"description,omitempty"`
	Tags        []string  `bson:"tags,omitempty"`
	Owner       string    `bson:"owner,omitempty"`
}

func toDoc(c change.Change) doc {
	return doc{
		Name: c.Name, File: c.File, Path: c.Path, Extension: c.Extension,
		Created: c.Created, Applied: c.Applied, Description: c.Description,
		Tags: c.Tags, Owner: c.Owner,
	}
}

func fromDoc(d doc) change.Change {
	return change.Change{
		Name: d.Name, File: d.File, Path: d.Path, Extension: d.Extension,
		Created: d.Created, Applied: d.Applied, Description: d.Description,
		Tags: d.Tags, Owner: d.Owner,
	}
}

// Add performs a single ordered bulk insert; a non-acknowledged write
// is reported as a failed Result carrying the driver error (spec §4.D).
func (p *Persistence) Add(ctx context.Context, changes []change.Change, _ change.Request) (change.Result, error) {
	docs := make([]any, len(changes))
	for i := range changes {
		if changes[i].Applied.IsZero() {
			changes[i].Applied = time.Now().UTC()
		}
		docs[i] = toDoc(changes[i])
	}

	res, err := p.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return change.FailMessage(fmt.Sprintf("bulk insert failed: %v", err)), nil
	}

	ids := make([]string, 0, len(res.InsertedIDs))
	for _, id := range res.InsertedIDs {
		ids = append(ids, fmt.Sprintf("%v", id))
	}
	return change.Ok(ids), nil
}

// Delete uses an OR of (file, name) equality pairs (spec §4.D).
func (p *Persistence) Delete(ctx context.Context, changes []change.Change, _ change.Request) (change.Result, error) {
	if len(changes) == 0 {
		return change.Ok(0), nil
	}

	filters := make(bson.A, len(changes))
	for i, c := range changes {
		filters[i] = bson.M{"file": c.File, "name": c.Name}
	}

	res, err := p.collection.DeleteMany(ctx, bson.M{"$or": filters})
	if err != nil {
		return change.Result{}, fmt.Errorf("mongotracker: deleting applied entries: %w", err)
	}
	return change.Ok(int(res.DeletedCount)), nil
}

// List projects {name, file, path, extension, created, applied}, sorted
// by created ascending (spec §4.D).
func (p *Persistence) List(ctx context.Context, _ change.Request) ([]change.Change, error) {
	projection := bson.M{"name": 1, "file": 1, "path": 1, "extension": 1, "created": 1, "applied": 1}
	opts := options.Find().SetProjection(projection).SetSort(bson.D{{Key: "created", Value: 1}})

	cur, err := p.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongotracker: listing applied log: %w", err)
	}
	defer cur.Close(ctx)

	var out []change.Change
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("mongotracker: decoding applied entry: %w", err)
		}
		out = append(out, fromDoc(d))
	}
	return out, cur.Err()
}

// Last sorts by created descending, limit 1 (spec §4.D).
func (p *Persistence) Last(ctx context.Context, _ change.Request) (*change.Change, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created", Value: -1}})
	var d doc
	err := p.collection.FindOne(ctx, bson.M{}, opts).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongotracker: fetching last applied change: %w", err)
	}
	c := fromDoc(d)
	return &c, nil
}

// Missing queries applied entries whose (file, name) are absent from
// the current scan, bounded by created <= last.created (spec §4.D).
func (p *Persistence) Missing(ctx context.Context, req change.Request, scanned []change.Change) ([]change.Change, error) {
	last, err := p.Last(ctx, req)
	if err != nil || last == nil {
		return nil, err
	}

	onDisk := make(map[string]bool, len(scanned))
	for _, c := range scanned {
		onDisk[c.File+"\x00"+c.Name] = true
	}

	filter := bson.M{"created": bson.M{"$lte": last.Created}}
	cur, err := p.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongotracker: computing missing set: %w", err)
	}
	defer cur.Close(ctx)

	var missing []change.Change
	for cur.Next(ctx) {
		var d doc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		c := fromDoc(d)
		if !onDisk[c.File+"\x00"+c.Name] {
			missing = append(missing, c)
		}
	}
	return missing, cur.Err()
}
