package domain

import "log/slog"

// SecretString wraps a value that must never reach a log sink unredacted.
// It implements slog.LogValuer so a bare %v/slog.Any call cannot leak it.
type SecretString struct{ v string }

func NewSecretString(v string) SecretString { return SecretString{v: v} }

func (s SecretString) Expose() string { return s.v }
func (s SecretString) IsEmpty() bool  { return s.v == "" }

func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(Mask(s.v))
}

// Mask implements the §7 PII masking rule: strings longer than 4 chars
// render as "***<last 4>", shorter ones as "****".
func Mask(v string) string {
	if len(v) > 4 {
		return "***" + v[len(v)-4:]
	}
	return "****"
}
