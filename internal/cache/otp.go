package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medplatform/orders/internal/domain"
)

// OTPRecord is the auxiliary KV-store value backing phone verification,
// §3: `{digits, created_at, used?}` keyed by phone, 5-minute TTL, retained
// 60s after use to resist replay (§8 invariant 8).
type OTPRecord struct {
	Digits    string    `json:"digits"`
	CreatedAt time.Time `json:"created_at"`
	Used      bool      `json:"used"`
}

type OTPStore struct {
	c *Client
}

func NewOTPStore(c *Client) *OTPStore { return &OTPStore{c: c} }

func otpKey(phone string) string { return "otp:" + phone }

// Put stores a freshly generated OTP with the full 5-minute TTL, overwriting
// any prior record for the phone (a new OTP request always supersedes the
// last one for that phone).
func (s *OTPStore) Put(ctx context.Context, phone string, rec OTPRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.c.RDB.Set(ctx, otpKey(phone), b, domain.OTPRecordTTL).Err()
}

// Get fetches the record, or (OTPRecord{}, false, nil) when absent/expired.
func (s *OTPStore) Get(ctx context.Context, phone string) (OTPRecord, bool, error) {
	raw, err := s.c.RDB.Get(ctx, otpKey(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OTPRecord{}, false, nil
	}
	if err != nil {
		return OTPRecord{}, false, err
	}
	var rec OTPRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return OTPRecord{}, false, err
	}
	return rec, true, nil
}

// MarkUsed flips the used flag and shortens the TTL to the 60s replay-grace
// window required by §3/§8 invariant 8, rather than deleting the record
// outright.
func (s *OTPStore) MarkUsed(ctx context.Context, phone string, rec OTPRecord) error {
	rec.Used = true
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.c.RDB.Set(ctx, otpKey(phone), b, domain.OTPReplayGraceWindow).Err()
}
