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

// InventoryDoc persists the §3 Inventory row, unique on (pharmacy id,
// medicine id, batch number).
type InventoryDoc struct {
	ID           string    `bson:"_id"`
	PharmacyID   string    `bson:"pharmacy_id"`
	MedicineID   string    `bson:"medicine_id"`
	BatchNumber  string    `bson:"batch_number"`
	ExpiryDate   time.Time `bson:"expiry_date"`
	Available    int       `bson:"available"`
	Reserved     int       `bson:"reserved"`
	MRP          float64   `bson:"mrp"`
	SellingPrice float64   `bson:"selling_price"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type InventoryRepository struct{ col *mongo.Collection }

func NewInventoryRepository(s *Store) *InventoryRepository {
	return &InventoryRepository{col: s.collection("inventory")}
}

func (r *InventoryRepository) Create(ctx context.Context, doc *InventoryDoc) error {
	_, err := r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrBatchExists
	}
	return err
}

// FindViableBatch selects the row for (pharmacy, medicine) with a
// not-yet-expired date and available >= qty, preferring the earliest
// expiry (FIFO by expiry), per §4.4 step 2.
func (r *InventoryRepository) FindViableBatch(ctx context.Context, pharmacyID, medicineID string, qty int) (*InventoryDoc, error) {
	filter := bson.M{
		"pharmacy_id": pharmacyID,
		"medicine_id": medicineID,
		"expiry_date": bson.M{"$gt": time.Now().UTC()},
		"available":   bson.M{"$gte": qty},
	}
	opts := options.FindOne().SetSort(bson.M{"expiry_date": 1})
	var doc InventoryDoc
	err := r.col.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInsufficientStock
	}
	return &doc, err
}

// ReserveConditional atomically moves qty from available to reserved on
// the named row, under the `available >= qty` predicate that guards against
// TOCTOU races even if the distributed lock was lost to a TTL expiry
// (§4.4 step 3, §5). A matched count of zero means the predicate failed.
func (r *InventoryRepository) ReserveConditional(ctx context.Context, id string, qty int) (bool, error) {
	filter := bson.M{"_id": id, "available": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"available": -qty, "reserved": qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// Release returns qty from reserved to available on the exact batch
// captured at reservation time (§4.4 "Release"), never a different one.
func (r *InventoryRepository) Release(ctx context.Context, pharmacyID, medicineID, batchNumber string, qty int) error {
	filter := bson.M{"pharmacy_id": pharmacyID, "medicine_id": medicineID, "batch_number": batchNumber}
	update := bson.M{
		"$inc": bson.M{"available": qty, "reserved": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := r.col.UpdateOne(ctx, filter, update)
	return err
}

// Commit removes qty from reserved permanently on successful delivery
// (§4.4 "Commit"); available is untouched.
func (r *InventoryRepository) Commit(ctx context.Context, pharmacyID, medicineID, batchNumber string, qty int) error {
	filter := bson.M{"pharmacy_id": pharmacyID, "medicine_id": medicineID, "batch_number": batchNumber}
	update := bson.M{
		"$inc": bson.M{"reserved": -qty},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	_, err := r.col.UpdateOne(ctx, filter, update)
	return err
}

func (r *InventoryRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]InventoryDoc, error) {
	cur, err := r.col.Find(ctx, bson.M{"pharmacy_id": pharmacyID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []InventoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *InventoryRepository) FindByID(ctx context.Context, id string) (*InventoryDoc, error) {
	var doc InventoryDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInventoryNotFound
	}
	return &doc, err
}
