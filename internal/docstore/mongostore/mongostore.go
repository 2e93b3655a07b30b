// Package mongostore is a docstore.Gateway on MongoDB. Each docstore
// collection is a Mongo collection; document ids are stored in _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dimitrije/teamboard/internal/docstore"
	"github.com/dimitrije/teamboard/internal/hub"
)

type Store struct {
	db     *mongo.Database
	hub    *hub.Hub
	log    logrus.FieldLogger
	now    func() time.Time
	cancel context.CancelFunc
}

var _ docstore.Gateway = (*Store)(nil)

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func New(db *mongo.Database, log logrus.FieldLogger) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:     db,
		hub:    hub.NewHub(),
		log:    log.WithField("store", "mongo"),
		now:    func() time.Time { return time.Now().UTC() },
		cancel: cancel,
	}
	go s.hub.Run(ctx)
	return s
}

func (s *Store) Close() {
	s.cancel()
}

func (s *Store) Get(ctx context.Context, collection, id string) (*docstore.Snapshot, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	snap := toSnapshot(raw)
	return &snap, nil
}

func (s *Store) Create(ctx context.Context, collection string, data docstore.Doc) (string, error) {
	id := docstore.NewID()
	resolved, err := docstore.Resolve(data, s.now())
	if err != nil {
		return "", err
	}
	resolved["_id"] = id

	if _, err := s.db.Collection(collection).InsertOne(ctx, bson.M(resolved)); err != nil {
		return "", fmt.Errorf("failed to create %s document: %w", collection, err)
	}
	s.hub.Publish(collection, id)
	return id, nil
}

func (s *Store) Set(ctx context.Context, collection, id string, data docstore.Doc) error {
	resolved, err := docstore.Resolve(data, s.now())
	if err != nil {
		return err
	}
	resolved["_id"] = id

	_, err = s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, bson.M(resolved),
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set %s/%s: %w", collection, id, err)
	}
	s.hub.Publish(collection, id)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch docstore.Doc) error {
	applied, err := s.UpdateWhere(ctx, collection, id, nil, patch)
	if err != nil {
		return err
	}
	if !applied {
		return docstore.ErrNotFound
	}
	return nil
}

// UpdateWhere applies patch when the document exists and matches where. An
// empty patch only checks the match.
func (s *Store) UpdateWhere(ctx context.Context, collection, id string, where []docstore.Predicate, patch docstore.Doc) (bool, error) {
	update, err := updateFor(patch)
	if err != nil {
		return false, err
	}
	filter := filterFor(id, where)
	if len(update) == 0 {
		n, err := s.db.Collection(collection).CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return false, fmt.Errorf("failed to match %s/%s: %w", collection, id, err)
		}
		return n > 0, nil
	}

	result, err := s.db.Collection(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if result.MatchedCount == 0 {
		return false, nil
	}
	s.hub.Publish(collection, id)
	return true, nil
}

func (s *Store) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	return s.Update(ctx, collection, id, docstore.Doc{field: docstore.Increment(delta)})
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	if result.DeletedCount > 0 {
		s.hub.Publish(collection, id)
	}
	return nil
}

// Query lets Mongo narrow the candidates, then evaluates, sorts and limits
// in process so ordering of missing fields matches the other gateways.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	cursor, err := s.db.Collection(q.Collection).Find(ctx, narrowingFilter(q.Filters))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", q.Collection, err)
	}
	defer cursor.Close(ctx)

	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", q.Collection, err)
	}

	snaps := make([]docstore.Snapshot, 0, len(raws))
	for _, raw := range raws {
		snaps = append(snaps, toSnapshot(raw))
	}
	return docstore.Apply(snaps, q), nil
}

func (s *Store) Subscribe(ctx context.Context, q docstore.Query, fn docstore.QueryCallback) (docstore.Unsubscribe, error) {
	return docstore.SubscribeQuery(ctx, s.hub, s.Query, q, fn)
}

func (s *Store) SubscribeDoc(ctx context.Context, collection, id string, fn docstore.DocCallback) (docstore.Unsubscribe, error) {
	return docstore.SubscribeDocument(ctx, s.hub, s.Get, collection, id, fn)
}

type changeEvent struct {
	Namespace struct {
		Collection string `bson:"coll"`
	} `bson:"ns"`
	DocumentKey struct {
		ID string `bson:"_id"`
	} `bson:"documentKey"`
}

// Watch relays the database change stream into the local hub until ctx
// ends, so that writes from other processes reach live queries. It needs a
// replica set; failures are logged and retried.
func (s *Store) Watch(ctx context.Context) {
	for ctx.Err() == nil {
		if err := s.watchOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.WithError(err).Warn("change stream interrupted, reopening")
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (s *Store) watchOnce(ctx context.Context) error {
	stream, err := s.db.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())
	s.log.Info("watching change stream")

	for stream.Next(ctx) {
		var event changeEvent
		if err := stream.Decode(&event); err != nil {
			s.log.WithError(err).Debug("skipping undecodable change event")
			continue
		}
		if event.Namespace.Collection == "" {
			continue
		}
		s.hub.Publish(event.Namespace.Collection, event.DocumentKey.ID)
	}
	return stream.Err()
}
