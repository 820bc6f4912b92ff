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

// OrderLineDoc captures a single reserved line, each carrying the batch
// number and unit price locked in at reservation time (§3 Order.items).
type OrderLineDoc struct {
	MedicineID  string  `bson:"medicine_id"`
	BatchNumber string  `bson:"batch_number"`
	Qty         int     `bson:"qty"`
	UnitPrice   float64 `bson:"unit_price"`
	TaxAmount   float64 `bson:"tax_amount"`
}

// OrderDoc persists the §3 Order aggregate.
type OrderDoc struct {
	ID                string         `bson:"_id"`
	CustomerID        string         `bson:"customer_id"`
	PharmacyID        string         `bson:"pharmacy_id"`
	Items             []OrderLineDoc `bson:"items"`
	Total             float64        `bson:"total"`
	Status            string         `bson:"status"`
	PaymentStatus     string         `bson:"payment_status"`
	ShippingAddress   AddressDoc     `bson:"shipping_address"`
	IdempotencyKey    string         `bson:"idempotency_key,omitempty"`
	DeliveryOTP       string         `bson:"delivery_otp"`
	DeliveryID        string         `bson:"delivery_id,omitempty"`
	CancellationReason string        `bson:"cancellation_reason,omitempty"`
	Rating            int            `bson:"rating,omitempty"`
	Review            string         `bson:"review,omitempty"`
	CreatedAt         time.Time      `bson:"created_at"`
	UpdatedAt         time.Time      `bson:"updated_at"`
}

type OrderRepository struct{ col *mongo.Collection }

func NewOrderRepository(s *Store) *OrderRepository {
	return &OrderRepository{col: s.collection("orders")}
}

func (r *OrderRepository) Create(ctx context.Context, doc *OrderDoc) error {
	_, err := r.col.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*OrderDoc, error) {
	var doc OrderDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrOrderNotFound
	}
	return &doc, err
}

// FindByIdempotencyKey implements §4.3 step 1: replay returns the prior
// order unchanged.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*OrderDoc, error) {
	var doc OrderDoc
	err := r.col.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	return &doc, err
}

// TransitionConditional performs `update WHERE id = X AND status = S_from`
// per §5's ordering guarantee: concurrent transition attempts from the same
// source state pick exactly one winner.
func (r *OrderRepository) TransitionConditional(ctx context.Context, id, fromStatus, toStatus string) (bool, error) {
	filter := bson.M{"_id": id, "status": fromStatus}
	update := bson.M{"$set": bson.M{"status": toStatus, "updated_at": time.Now().UTC()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *OrderRepository) CancelConditional(ctx context.Context, id, fromStatus, reason string) (bool, error) {
	filter := bson.M{"_id": id, "status": fromStatus}
	update := bson.M{"$set": bson.M{
		"status": "cancelled", "cancellation_reason": reason, "updated_at": time.Now().UTC(),
	}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id, status string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"payment_status": status, "updated_at": time.Now().UTC(),
	}})
	return err
}

func (r *OrderRepository) SetDeliveryID(ctx context.Context, id, deliveryID string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"delivery_id": deliveryID, "updated_at": time.Now().UTC(),
	}})
	return err
}

func (r *OrderRepository) SetRating(ctx context.Context, id string, rating int, review string) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"rating": rating, "review": review, "updated_at": time.Now().UTC(),
	}})
	return err
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID, status string, page, size int) ([]OrderDoc, error) {
	filter := bson.M{"customer_id": customerID}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSkip(int64(page * size)).SetLimit(int64(size)).SetSort(bson.M{"created_at": -1})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []OrderDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
