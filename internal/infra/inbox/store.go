package inbox

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"taskchat/internal/app/chatsync"
)

const Collection = "chat_inbox"

// DefaultRetention is how long processed keys are kept before the TTL index
// drops them.
const DefaultRetention = 7 * 24 * time.Hour

// Store records processed push event keys per consumer in MongoDB.
type Store struct {
	col      *mongo.Collection
	consumer string
	now      func() time.Time
}

func NewStore(db *mongo.Database, consumer string) *Store {
	return &Store{col: db.Collection(Collection), consumer: consumer, now: time.Now}
}

// EnsureIndexes creates the unique key index and the retention TTL index.
func (s *Store) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	if retention <= 0 {
		retention = DefaultRetention
	}
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "consumer", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "received_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds()))},
	})
	return err
}

// Seen inserts key and reports whether it was already present.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	doc := bson.M{"event_id": key, "consumer": s.consumer, "received_at": s.now().UTC()}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return false, nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return true, nil
	}
	return false, err
}

var _ chatsync.Inbox = (*Store)(nil)
