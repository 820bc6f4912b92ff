package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medplatform/orders/internal/domain"
)

// CartEntryDoc mirrors the §3 cart-entry shape.
type CartEntryDoc struct {
	MedicineID string  `bson:"medicine_id"`
	PharmacyID string  `bson:"pharmacy_id"`
	Qty        int     `bson:"qty"`
	PriceAtAdd float64 `bson:"price_at_add"`
}

// AddressDoc is a free-text shipping/profile address.
type AddressDoc struct {
	Line    string `bson:"line"`
	City    string `bson:"city"`
	Pincode string `bson:"pincode"`
}

// UserDoc persists the §3 User entity.
type UserDoc struct {
	ID              string         `bson:"_id"`
	Name            string         `bson:"name"`
	Email           string         `bson:"email"`
	Phone           string         `bson:"phone"`
	PasswordDigest  string         `bson:"password_digest"`
	Roles           []string       `bson:"roles"`
	Verified        bool           `bson:"verified"`
	Addresses       []AddressDoc   `bson:"addresses"`
	Cart            []CartEntryDoc `bson:"cart"`
	WalletBalance   float64        `bson:"wallet_balance"`
	PharmacyOwnedID string         `bson:"pharmacy_owned_id,omitempty"`
	DriverIndex     int            `bson:"driver_index,omitempty"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

type UserRepository struct{ col *mongo.Collection }

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{col: s.collection("users")}
}

func (r *UserRepository) Create(ctx context.Context, doc *UserDoc) error {
	_, err := r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrUserExists
	}
	return err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*UserDoc, error) {
	var doc UserDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	return &doc, err
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*UserDoc, error) {
	var doc UserDoc
	err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	return &doc, err
}

func (r *UserRepository) FindByPhone(ctx context.Context, phone string) (*UserDoc, error) {
	var doc UserDoc
	err := r.col.FindOne(ctx, bson.M{"phone": phone}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	return &doc, err
}

func (r *UserRepository) SetVerified(ctx context.Context, id string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"verified": true, "updated_at": time.Now().UTC()}})
	return err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, name string, addresses []AddressDoc) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name": name, "addresses": addresses, "updated_at": time.Now().UTC(),
	}})
	return err
}

func (r *UserRepository) UpdateCart(ctx context.Context, id string, cart []CartEntryDoc) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"cart": cart, "updated_at": time.Now().UTC(),
	}})
	return err
}

// FindVerifiedByRole returns every verified account carrying role, used by
// the event processor to broadcast delivery.created to available drivers
// (§4.8: "drivers who are verified and in role").
func (r *UserRepository) FindVerifiedByRole(ctx context.Context, role string) ([]UserDoc, error) {
	cur, err := r.col.Find(ctx, bson.M{"roles": role, "verified": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []UserDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *UserRepository) NextDriverIndex(ctx context.Context) (int, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"roles": string(domain.RoleDriver)})
	if err != nil {
		return 0, err
	}
	return int(count) + 1, nil
}
