package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GlobalHallId is the cross-hall partition holding the shared market
// catalog and the super-admin user registry. Kept out of the NATS wildcard
// alphabet because it ends up inside snapshot subjects.
const GlobalHallId = "global"

// SnapshotStore keeps one document per (hall, collection) holding the full
// collection value as raw JSON. Writes replace the whole document, reads
// return the whole document: last writer wins, no merge, no ordering
// guarantee across clients.
type SnapshotStore struct {
	col *mongo.Collection
}

type snapshotDoc struct {
	HallId     string    `bson:"hall_id"`
	Collection string    `bson:"collection"`
	Data       string    `bson:"data"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func NewSnapshotStore(db *mongo.Database) *SnapshotStore {
	return &SnapshotStore{col: db.Collection("snapshots")}
}

// Put replaces the stored value for (hallId, collection) with data.
func (s *SnapshotStore) Put(ctx context.Context, hallId, collection string, data []byte) error {
	filter := bson.M{"hall_id": hallId, "collection": collection}
	doc := snapshotDoc{
		HallId:     hallId,
		Collection: collection,
		Data:       string(data),
		UpdatedAt:  time.Now(),
	}

	opts := options.Replace().SetUpsert(true)
	_, err := s.col.ReplaceOne(ctx, filter, doc, opts)
	if err != nil {
		return fmt.Errorf("could not put snapshot %s/%s: %v", hallId, collection, err)
	}

	return nil
}

// Get reads the stored value for (hallId, collection). A missing document
// is not an error, it returns nil data.
func (s *SnapshotStore) Get(ctx context.Context, hallId, collection string) ([]byte, error) {
	filter := bson.M{"hall_id": hallId, "collection": collection}

	doc := snapshotDoc{}
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not get snapshot %s/%s: %v", hallId, collection, err)
	}

	return []byte(doc.Data), nil
}
