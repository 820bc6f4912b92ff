package domain

import "github.com/google/uuid"

// UserID identifies a registered account.
type UserID struct{ v string }

func NewUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, ErrEmptyID
	}
	return UserID{v: s}, nil
}

func MustUserID(s string) UserID {
	id, err := NewUserID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func GenerateUserID() UserID { return UserID{v: uuid.NewString()} }

func (id UserID) String() string { return id.v }
func (id UserID) IsZero() bool   { return id.v == "" }

// PharmacyID identifies a pharmacy.
type PharmacyID struct{ v string }

func NewPharmacyID(s string) (PharmacyID, error) {
	if s == "" {
		return PharmacyID{}, ErrEmptyID
	}
	return PharmacyID{v: s}, nil
}

func MustPharmacyID(s string) PharmacyID {
	id, err := NewPharmacyID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func GeneratePharmacyID() PharmacyID { return PharmacyID{v: uuid.NewString()} }

func (id PharmacyID) String() string { return id.v }
func (id PharmacyID) IsZero() bool   { return id.v == "" }

// MedicineID identifies a catalog row.
type MedicineID struct{ v string }

func NewMedicineID(s string) (MedicineID, error) {
	if s == "" {
		return MedicineID{}, ErrEmptyID
	}
	return MedicineID{v: s}, nil
}

func MustMedicineID(s string) MedicineID {
	id, err := NewMedicineID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func GenerateMedicineID() MedicineID { return MedicineID{v: uuid.NewString()} }

func (id MedicineID) String() string { return id.v }
func (id MedicineID) IsZero() bool   { return id.v == "" }

// OrderID identifies an order aggregate.
type OrderID struct{ v string }

func NewOrderID(s string) (OrderID, error) {
	if s == "" {
		return OrderID{}, ErrEmptyID
	}
	return OrderID{v: s}, nil
}

func MustOrderID(s string) OrderID {
	id, err := NewOrderID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func GenerateOrderID() OrderID { return OrderID{v: uuid.NewString()} }

func (id OrderID) String() string { return id.v }
func (id OrderID) IsZero() bool   { return id.v == "" }

// DeliveryID identifies a delivery record.
type DeliveryID struct{ v string }

func NewDeliveryID(s string) (DeliveryID, error) {
	if s == "" {
		return DeliveryID{}, ErrEmptyID
	}
	return DeliveryID{v: s}, nil
}

func MustDeliveryID(s string) DeliveryID {
	id, err := NewDeliveryID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func GenerateDeliveryID() DeliveryID { return DeliveryID{v: uuid.NewString()} }

func (id DeliveryID) String() string { return id.v }
func (id DeliveryID) IsZero() bool   { return id.v == "" }

// SessionID identifies a refresh-token session entry in the live set.
type SessionID struct{ v string }

func NewSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, ErrEmptyID
	}
	return SessionID{v: s}, nil
}

func GenerateSessionID() SessionID { return SessionID{v: uuid.NewString()} }

func (id SessionID) String() string { return id.v }
func (id SessionID) IsZero() bool   { return id.v == "" }
