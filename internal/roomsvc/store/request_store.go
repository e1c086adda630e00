package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// RequestCollection is the mongo collection holding deposit requests.
const RequestCollection = "deposit_requests"

// DepositRequest is one inbound payment message as received, kept for audit.
// Records expire via the collection TTL index on expires_at.
type DepositRequest struct {
	Handle    string    `bson:"handle"`
	TRef      string    `bson:"tref"`
	Amount    string    `bson:"amount"`
	Recipient string    `bson:"recipient"`
	RawText   string    `bson:"raw_text"`
	Status    string    `bson:"status"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// RequestStore is the append-only ledger of deposit requests.
type RequestStore struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewRequestStore(db *mongo.Database) *RequestStore {
	return &RequestStore{
		col: db.Collection(RequestCollection),
		ttl: 90 * 24 * time.Hour,
	}
}

func (s *RequestStore) Append(ctx context.Context, rec DepositRequest) error {
	rec.CreatedAt = time.Now()
	rec.ExpiresAt = rec.CreatedAt.Add(s.ttl)

	if _, err := s.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to append deposit request: %w", err)
	}
	return nil
}

// HasTRef reports whether a request with the given transaction reference was
// already recorded.
func (s *RequestStore) HasTRef(ctx context.Context, tref string) (bool, error) {
	count, err := s.col.CountDocuments(ctx, bson.M{"tref": tref})
	if err != nil {
		return false, fmt.Errorf("failed to check deposit tref %s: %w", tref, err)
	}
	return count > 0, nil
}
