package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/medplatform/orders/internal/domain"
)

// GeoPointDoc is a (longitude, latitude) pair using GeoJSON Point shape so
// it composes directly with Mongo's 2dsphere geo queries.
type GeoPointDoc struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func NewGeoPoint(lon, lat float64) GeoPointDoc {
	return GeoPointDoc{Type: "Point", Coordinates: []float64{lon, lat}}
}

// PharmacyDoc persists the §3 Pharmacy entity.
type PharmacyDoc struct {
	ID            string      `bson:"_id"`
	OwnerUserID   string      `bson:"owner_user_id"`
	Name          string      `bson:"name"`
	Address       string      `bson:"address"`
	Location      GeoPointDoc `bson:"location"`
	Active        bool        `bson:"active"`
	OpeningHours  string      `bson:"opening_hours"`
	ContactPhone  string      `bson:"contact_phone"`
	Rating        float64     `bson:"rating"`
	RatingCount   int         `bson:"rating_count"`
	CreatedAt     time.Time   `bson:"created_at"`
	UpdatedAt     time.Time   `bson:"updated_at"`
}

type PharmacyRepository struct{ col *mongo.Collection }

func NewPharmacyRepository(s *Store) *PharmacyRepository {
	return &PharmacyRepository{col: s.collection("pharmacies")}
}

func (r *PharmacyRepository) Create(ctx context.Context, doc *PharmacyDoc) error {
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *PharmacyRepository) FindByID(ctx context.Context, id string) (*PharmacyDoc, error) {
	var doc PharmacyDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPharmacyNotFound
	}
	return &doc, err
}

func (r *PharmacyRepository) FindByOwner(ctx context.Context, ownerUserID string) (*PharmacyDoc, error) {
	var doc PharmacyDoc
	err := r.col.FindOne(ctx, bson.M{"owner_user_id": ownerUserID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrPharmacyNotFound
	}
	return &doc, err
}

// ListNear returns active pharmacies within radiusMeters of (lon, lat),
// offset-paginated per SPEC_FULL.md §5's pagination supplement.
func (r *PharmacyRepository) ListNear(ctx context.Context, lon, lat, radiusMeters float64, page, size int) ([]PharmacyDoc, error) {
	filter := bson.M{
		"active": true,
		"location": bson.M{
			"$near": bson.M{
				"$geometry":    NewGeoPoint(lon, lat),
				"$maxDistance": radiusMeters,
			},
		},
	}
	opts := options.Find().SetSkip(int64(page * size)).SetLimit(int64(size))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []PharmacyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *PharmacyRepository) UpdateRating(ctx context.Context, id string, newRating float64, newCount int) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"rating": newRating, "rating_count": newCount, "updated_at": time.Now().UTC(),
	}})
	return err
}
