package identity

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/medplatform/orders/internal/auth"
	"github.com/medplatform/orders/internal/cache"
	"github.com/medplatform/orders/internal/domain"
	"github.com/medplatform/orders/internal/observability"
	mongostore "github.com/medplatform/orders/internal/store/mongo"
)

// Service implements §4.1: registration, OTP verification, login, refresh
// rotation, logout and admin provisioning. Grounded in the realtime-
// messaging-platform's chatmgmt AuthService, adapted from its phone/OTP/
// session primitives to this domain's email+password+OTP-verification
// flow and pharmacy/driver provisioning.
type Service struct {
	users      *mongostore.UserRepository
	pharmacies *mongostore.PharmacyRepository
	otpStore   *cache.OTPStore
	liveSet    *cache.LiveSet
	rateLimit  *cache.RateLimiter
	minter     *auth.Minter
	validator  *auth.Validator
	clock      domain.Clock
	bcryptCost int
	// loginRateLimitWindow/Max are the §6 environment-configurable
	// "rate-limit window & max" for the login endpoint; OTP request and
	// registration keep their distinct §4.1.2-mandated literals.
	loginRateLimitWindow time.Duration
	loginRateLimitMax    int
	tracer               trace.Tracer
	logger               *slog.Logger
	counters             *observability.Counters
}

func NewService(
	users *mongostore.UserRepository,
	pharmacies *mongostore.PharmacyRepository,
	otpStore *cache.OTPStore,
	liveSet *cache.LiveSet,
	rateLimit *cache.RateLimiter,
	minter *auth.Minter,
	validator *auth.Validator,
	clock domain.Clock,
	bcryptCost int,
	loginRateLimitWindow time.Duration,
	loginRateLimitMax int,
	logger *slog.Logger,
	counters *observability.Counters,
) *Service {
	if counters == nil {
		counters = &observability.Counters{}
	}
	return &Service{
		users: users, pharmacies: pharmacies, otpStore: otpStore, liveSet: liveSet,
		rateLimit: rateLimit, minter: minter, validator: validator, clock: clock,
		bcryptCost: bcryptCost, loginRateLimitWindow: loginRateLimitWindow, loginRateLimitMax: loginRateLimitMax,
		tracer: otel.Tracer("identity"), logger: logger, counters: counters,
	}
}

func (s *Service) incr(counter metric.Int64Counter, ctx context.Context) {
	if counter != nil {
		counter.Add(ctx, 1)
	}
}

// TokenPair is the §4.1 access+refresh issuance result.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

func (s *Service) issueTokens(ctx context.Context, userID string, roles []string) (TokenPair, error) {
	access, err := s.minter.MintAccessToken(userID, roles)
	if err != nil {
		return TokenPair{}, domain.ErrInternal
	}
	refresh, err := s.minter.MintRefreshToken(userID, roles)
	if err != nil {
		return TokenPair{}, domain.ErrInternal
	}
	if err := s.liveSet.Insert(ctx, refresh.JTI); err != nil {
		s.logger.Error("identity: live set insert failed", slog.Any("error", err))
		return TokenPair{}, domain.ErrServiceUnavailable
	}
	s.incr(s.counters.TokensMintedTotal, ctx)
	s.incr(s.counters.SessionsCreatedTotal, ctx)
	return TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// RegisterRequest is the §4.1 "Register" DTO. ClientIP is the caller's
// address, used as the §4.1.2 rate-limit subject rather than the
// attempted email so repeated attempts against different emails from the
// same client still count against one bucket.
type RegisterRequest struct {
	Name     string
	Email    string
	Phone    string
	Password string
	ClientIP string
}

// Register creates an unverified customer account and issues an OTP to the
// normalized phone, per §4.1 "Register": duplicate email or phone fails
// with domain.ErrUserExists before any write.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*mongostore.UserDoc, error) {
	ctx, span := s.tracer.Start(ctx, "identity.register", trace.WithAttributes(
		attribute.String("user.email", req.Email),
	))
	defer span.End()

	if !s.rateLimit.Allow(ctx, req.ClientIP, "register", domain.RegisterRateLimitPer5Min, domain.RegisterRateLimitWindow) {
		return nil, domain.ErrRateLimited
	}

	phone := domain.NormalizePhone(req.Phone)
	if _, err := domain.NewPhoneNumber(phone); err != nil {
		return nil, domain.ErrInvalidInput
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, domain.ErrUserExists
	} else if err != domain.ErrUserNotFound {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ErrDatabaseError
	}
	if _, err := s.users.FindByPhone(ctx, phone); err == nil {
		return nil, domain.ErrUserExists
	} else if err != domain.ErrUserNotFound {
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ErrDatabaseError
	}

	digest, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, domain.ErrInternal
	}

	now := s.clock.Now()
	doc := &mongostore.UserDoc{
		ID:             domain.GenerateUserID().String(),
		Name:           req.Name,
		Email:          req.Email,
		Phone:          phone,
		PasswordDigest: digest,
		Roles:          []string{string(domain.RoleCustomer)},
		Verified:       false,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.users.Create(ctx, doc); err != nil {
		if err == domain.ErrUserExists {
			return nil, err
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.ErrDatabaseError
	}

	if err := s.sendOTP(ctx, phone); err != nil {
		s.logger.Error("identity: otp dispatch on register failed", slog.Any("error", err))
	}

	span.SetStatus(codes.Ok, "registered")
	return doc, nil
}

func (s *Service) sendOTP(ctx context.Context, phone string) error {
	digits, err := auth.GenerateOTP()
	if err != nil {
		return err
	}
	return s.otpStore.Put(ctx, phone, cache.OTPRecord{Digits: digits, CreatedAt: s.clock.Now()})
}

// RequestOTP re-issues an OTP for an existing, unverified phone, rate
// limited per §4.1.2.
func (s *Service) RequestOTP(ctx context.Context, phone string) error {
	phone = domain.NormalizePhone(phone)
	if !s.rateLimit.Allow(ctx, phone, "otp_request", domain.OTPRequestRateLimitPerMin, domain.RateLimitWindow) {
		s.incr(s.counters.RateLimitHitsTotal, ctx)
		return domain.ErrRateLimited
	}
	s.incr(s.counters.OTPRequestsTotal, ctx)
	return s.sendOTP(ctx, phone)
}

// VerifyOTP matches the stored code for phone, flips the account verified
// and issues the initial token pair, per §4.1 "Verify OTP". The 60-second
// replay grace window (§8 invariant 8) is enforced by OTPStore.MarkUsed
// retaining a Used record rather than deleting it.
func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (*mongostore.UserDoc, TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "identity.verify_otp")
	defer span.End()

	phone = domain.NormalizePhone(phone)
	rec, found, err := s.otpStore.Get(ctx, phone)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, TokenPair{}, domain.ErrServiceUnavailable
	}
	if !found {
		return nil, TokenPair{}, domain.ErrOTPExpired
	}
	if rec.Used {
		return nil, TokenPair{}, domain.ErrOTPInvalid
	}
	if rec.Digits != code {
		return nil, TokenPair{}, domain.ErrOTPInvalid
	}

	doc, err := s.users.FindByPhone(ctx, phone)
	if err != nil {
		return nil, TokenPair{}, err
	}

	if err := s.otpStore.MarkUsed(ctx, phone, rec); err != nil {
		s.logger.Error("identity: otp mark-used failed", slog.Any("error", err))
	}
	if !doc.Verified {
		if err := s.users.SetVerified(ctx, doc.ID); err != nil {
			s.logger.Error("identity: set verified failed", slog.Any("error", err))
		}
		doc.Verified = true
	}

	tokens, err := s.issueTokens(ctx, doc.ID, doc.Roles)
	if err != nil {
		return nil, TokenPair{}, err
	}
	span.SetStatus(codes.Ok, "verified")
	return doc, tokens, nil
}

// Login authenticates by email or phone, returning an indistinguishable
// domain.ErrInvalidCredentials for any mismatch so enumeration cannot
// distinguish "no such user" from "wrong password" (§4.1 "Login").
// Unverified accounts receive a fresh OTP instead of a token pair. The
// rate limit is keyed on clientIP, not identifier, per §4.1.2's
// "per (client ip, login)".
func (s *Service) Login(ctx context.Context, identifier, password, clientIP string) (*mongostore.UserDoc, TokenPair, error) {
	ctx, span := s.tracer.Start(ctx, "identity.login")
	defer span.End()

	if !s.rateLimit.Allow(ctx, clientIP, "login", s.loginRateLimitMax, s.loginRateLimitWindow) {
		s.incr(s.counters.RateLimitHitsTotal, ctx)
		return nil, TokenPair{}, domain.ErrRateLimited
	}

	doc, err := s.users.FindByEmail(ctx, identifier)
	if err != nil {
		normalized := domain.NormalizePhone(identifier)
		doc, err = s.users.FindByPhone(ctx, normalized)
	}
	if err != nil {
		s.incr(s.counters.AuthFailuresTotal, ctx)
		return nil, TokenPair{}, domain.ErrInvalidCredentials
	}

	if !auth.VerifyPassword(doc.PasswordDigest, password) {
		s.incr(s.counters.AuthFailuresTotal, ctx)
		return nil, TokenPair{}, domain.ErrInvalidCredentials
	}

	if !doc.Verified {
		if err := s.sendOTP(ctx, doc.Phone); err != nil {
			s.logger.Error("identity: otp re-issue on unverified login failed", slog.Any("error", err))
		}
		return doc, TokenPair{}, domain.ErrUnauthorized
	}

	tokens, err := s.issueTokens(ctx, doc.ID, doc.Roles)
	if err != nil {
		return nil, TokenPair{}, err
	}
	span.SetStatus(codes.Ok, "logged in")
	return doc, tokens, nil
}

// Refresh validates the presented refresh token, confirms live-set
// membership, then rotates it: the old JTI is removed before the new one
// is inserted (§4.1 "Refresh").
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.validator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if !s.liveSet.IsLive(ctx, claims.ID) {
		return TokenPair{}, domain.ErrTokenInvalid
	}

	access, err := s.minter.MintAccessToken(claims.Subject, claims.Roles)
	if err != nil {
		return TokenPair{}, domain.ErrInternal
	}
	refresh, err := s.minter.MintRefreshToken(claims.Subject, claims.Roles)
	if err != nil {
		return TokenPair{}, domain.ErrInternal
	}
	if err := s.liveSet.Rotate(ctx, claims.ID, refresh.JTI); err != nil {
		return TokenPair{}, domain.ErrServiceUnavailable
	}
	return TokenPair{AccessToken: access.Token, RefreshToken: refresh.Token}, nil
}

// Logout best-effort revokes the refresh token's live-set entry, per
// §4.1 "Logout": failures are swallowed since the token still expires on
// its own.
func (s *Service) Logout(ctx context.Context, refreshToken string) {
	claims, err := s.validator.ValidateRefreshToken(refreshToken)
	if err != nil {
		return
	}
	if err := s.liveSet.Revoke(ctx, claims.ID); err != nil {
		s.logger.Warn("identity: logout revoke failed", slog.Any("error", err))
		return
	}
	s.incr(s.counters.SessionRevocations, ctx)
}
