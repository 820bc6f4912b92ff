package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medplatform/orders/internal/domain"
)

// Store wraps the mongo.Client and exposes the per-collection handles the
// control plane's document store needs: users, pharmacies, medicines,
// inventory, orders, deliveries (§3 Data Model).
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the document store with the 5s selection timeout and 45s
// socket timeout §5 requires.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(domain.DocumentStoreSelectionTimeout).
		SetSocketTimeout(domain.DocumentStoreSocketTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, domain.DocumentStoreSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

func (s *Store) Disconnect(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping backs the readiness probe's document-store dependency check.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) collection(name string) *mongo.Collection { return s.db.Collection(name) }

// EnsureIndexes creates the uniqueness constraints the data model requires:
// email/phone uniqueness on users, (pharmacy,medicine,batch) uniqueness on
// inventory (§3 invariant 3), and idempotency-key uniqueness on orders
// (§8 invariant 4).
func (s *Store) EnsureIndexes(ctx context.Context) error {
	usersIdx := []mongo.IndexModel{
		{Keys: map[string]int{"email": 1}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: map[string]int{"phone": 1}, Options: options.Index().SetUnique(true).SetSparse(true)},
	}
	if _, err := s.collection("users").Indexes().CreateMany(ctx, usersIdx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	invIdx := mongo.IndexModel{
		Keys: map[string]int{"pharmacy_id": 1, "medicine_id": 1, "batch_number": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.collection("inventory").Indexes().CreateOne(ctx, invIdx); err != nil {
		return fmt.Errorf("inventory index: %w", err)
	}

	orderIdx := mongo.IndexModel{
		Keys:    map[string]int{"idempotency_key": 1},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}
	if _, err := s.collection("orders").Indexes().CreateOne(ctx, orderIdx); err != nil {
		return fmt.Errorf("orders index: %w", err)
	}
	return nil
}
