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

// MedicineDoc persists the §3 Medicine catalog row: global, read-mostly.
type MedicineDoc struct {
	ID                   string    `bson:"_id"`
	Name                 string    `bson:"name"`
	Brand                string    `bson:"brand"`
	GenericName          string    `bson:"generic_name"`
	Salt                 string    `bson:"salt"`
	DosageForm           string    `bson:"dosage_form"`
	Strength             string    `bson:"strength"`
	PrescriptionRequired bool      `bson:"prescription_required"`
	Tags                 []string  `bson:"tags"`
	SearchSynonyms       []string  `bson:"search_synonyms"`
	Manufacturer         string    `bson:"manufacturer"`
	CreatedAt            time.Time `bson:"created_at"`
}

type MedicineRepository struct{ col *mongo.Collection }

func NewMedicineRepository(s *Store) *MedicineRepository {
	return &MedicineRepository{col: s.collection("medicines")}
}

func (r *MedicineRepository) FindByID(ctx context.Context, id string) (*MedicineDoc, error) {
	var doc MedicineDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInvalidInput
	}
	return &doc, err
}

// Search matches name/brand/generic name/tags/synonyms against q,
// case-insensitively, offset-paginated.
func (r *MedicineRepository) Search(ctx context.Context, q string, page, size int) ([]MedicineDoc, error) {
	filter := bson.M{"$or": []bson.M{
		{"name": bson.M{"$regex": q, "$options": "i"}},
		{"brand": bson.M{"$regex": q, "$options": "i"}},
		{"generic_name": bson.M{"$regex": q, "$options": "i"}},
		{"tags": bson.M{"$regex": q, "$options": "i"}},
		{"search_synonyms": bson.M{"$regex": q, "$options": "i"}},
	}}
	opts := options.Find().SetSkip(int64(page * size)).SetLimit(int64(size))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []MedicineDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
