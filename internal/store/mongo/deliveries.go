package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medplatform/orders/internal/domain"
)

// DeliveryDoc persists the §3 Delivery entity. Order owns the relationship
// and stores delivery_id; Delivery holds order_id as a lookup key only,
// per §9's one-way-ownership design note.
type DeliveryDoc struct {
	ID           string       `bson:"_id"`
	OrderID      string       `bson:"order_id"`
	PharmacyID   string       `bson:"pharmacy_id"`
	DriverID     string       `bson:"driver_id,omitempty"`
	Status       string       `bson:"status"`
	AssignedAt   time.Time    `bson:"assigned_at"`
	PickupAt     *time.Time   `bson:"pickup_at,omitempty"`
	DeliveredAt  *time.Time   `bson:"delivered_at,omitempty"`
	Current      *GeoPointDoc `bson:"current,omitempty"`
	PickupPoint  *GeoPointDoc `bson:"pickup_point,omitempty"`
	DeliveryPt   *GeoPointDoc `bson:"delivery_point,omitempty"`
	Notes        string       `bson:"notes,omitempty"`
	UpdatedAt    time.Time    `bson:"updated_at"`
}

type DeliveryRepository struct{ col *mongo.Collection }

func NewDeliveryRepository(s *Store) *DeliveryRepository {
	return &DeliveryRepository{col: s.collection("deliveries")}
}

func (r *DeliveryRepository) Create(ctx context.Context, doc *DeliveryDoc) error {
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id string) (*DeliveryDoc, error) {
	var doc DeliveryDoc
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrDeliveryNotFound
	}
	return &doc, err
}

func (r *DeliveryRepository) FindByOrderID(ctx context.Context, orderID string) (*DeliveryDoc, error) {
	var doc DeliveryDoc
	err := r.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrDeliveryNotFound
	}
	return &doc, err
}

// AcceptConditional binds driverID to the delivery with a conditional write
// requiring driver_id to be unset and status "assigned" (§4.7 accept).
func (r *DeliveryRepository) AcceptConditional(ctx context.Context, id, driverID string) (bool, error) {
	filter := bson.M{"_id": id, "status": "assigned", "driver_id": bson.M{"$in": []interface{}{"", nil}}}
	update := bson.M{"$set": bson.M{"driver_id": driverID, "updated_at": time.Now().UTC()}}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

func (r *DeliveryRepository) UpdateStatus(ctx context.Context, id, status string, at time.Time, point *GeoPointDoc) error {
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	switch status {
	case "picked_up":
		set["pickup_at"] = at
		if point != nil {
			set["pickup_point"] = point
		}
	case "delivered":
		set["delivered_at"] = at
		if point != nil {
			set["delivery_point"] = point
		}
	}
	if point != nil {
		set["current"] = point
	}
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// UpdateLocation is idempotent and never touches status (§4.7 "Location
// updates").
func (r *DeliveryRepository) UpdateLocation(ctx context.Context, id string, point GeoPointDoc) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"current": point, "updated_at": time.Now().UTC(),
	}})
	return err
}

func (r *DeliveryRepository) ListAvailable(ctx context.Context) ([]DeliveryDoc, error) {
	filter := bson.M{"status": "assigned", "driver_id": bson.M{"$in": []interface{}{"", nil}}}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []DeliveryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
