package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/medplatform/orders/internal/auth"
	"github.com/medplatform/orders/internal/domain"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// CreatePharmacistRequest is the §4.1 "Admin provisioning: create-pharmacist"
// DTO: the owning pharmacy is created atomically with the account.
type CreatePharmacistRequest struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	PharmacyName string
	Address      string
	Longitude    float64
	Latitude     float64
}

// CreatePharmacist provisions a verified pharmacist account plus the
// pharmacy it owns in one call, so a pharmacist never exists without an
// owned pharmacy to scope its gateway operations against.
func (s *Service) CreatePharmacist(ctx context.Context, req CreatePharmacistRequest) (*mongostore.UserDoc, *mongostore.PharmacyDoc, error) {
	phone := domain.NormalizePhone(req.Phone)
	digest, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, domain.ErrInternal
	}

	now := s.clock.Now()
	user := &mongostore.UserDoc{
		ID:             domain.GenerateUserID().String(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          phone,
		PasswordDigest: digest,
		Roles:          []string{string(domain.RolePharmacist)},
		Verified:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if err == domain.ErrUserExists {
			return nil, nil, err
		}
		return nil, nil, domain.ErrDatabaseError
	}

	pharmacy := &mongostore.PharmacyDoc{
		ID:          domain.GeneratePharmacyID().String(),
		OwnerUserID: user.ID,
		Name:        req.PharmacyName,
		Address:     req.Address,
		Location:    mongostore.NewGeoPoint(req.Longitude, req.Latitude),
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.pharmacies.Create(ctx, pharmacy); err != nil {
		s.logger.Error("identity: pharmacy creation after pharmacist provisioning failed",
			slog.String("user_id", user.ID), slog.Any("error", err))
		return user, nil, domain.ErrDatabaseError
	}

	user.PharmacyOwnedID = pharmacy.ID
	return user, pharmacy, nil
}

// CreateDriverRequest is the §4.1 "Admin provisioning: create-driver" DTO.
// Drivers authenticate the same way as any account but are provisioned
// by an admin with an auto-generated internal email rather than self-
// registering.
type CreateDriverRequest struct {
	Name     string
	Phone    string
	Password string
}

// CreateDriver provisions a verified driver account with a sequential
// internal email derived from NextDriverIndex, per §4.1's admin-only
// driver onboarding path.
func (s *Service) CreateDriver(ctx context.Context, req CreateDriverRequest) (*mongostore.UserDoc, error) {
	idx, err := s.users.NextDriverIndex(ctx)
	if err != nil {
		return nil, domain.ErrDatabaseError
	}
	email := fmt.Sprintf("driver-%d@internal.medplatform", idx)

	digest, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.ErrInternal
	}

	now := s.clock.Now()
	doc := &mongostore.UserDoc{
		ID:             domain.GenerateUserID().String(),
		Name:           req.Name,
		Email:          email,
		Phone:          domain.NormalizePhone(req.Phone),
		PasswordDigest: digest,
		Roles:          []string{string(domain.RoleDriver)},
		Verified:       true,
		DriverIndex:    idx,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, doc); err != nil {
		if err == domain.ErrUserExists {
			return nil, err
		}
		return nil, domain.ErrDatabaseError
	}
	return doc, nil
}
