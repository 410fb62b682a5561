package models

import "math"

// APIKeyKind distinguishes the events of the API key log.
type APIKeyKind int16

const (
	APIKeyKindValid APIKeyKind = iota
	APIKeyKindCancel
)

var apiKeyKindNames = []string{"VALID", "CANCEL"}

func (k APIKeyKind) String() string { return enumName(apiKeyKindNames, int16(k)) }

func (k APIKeyKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *APIKeyKind) UnmarshalText(b []byte) error {
	v, err := ParseAPIKeyKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseAPIKeyKind parses VALID or CANCEL.
func ParseAPIKeyKind(s string) (APIKeyKind, error) {
	v, err := parseEnum("api key kind", apiKeyKindNames, s)
	return APIKeyKind(v), err
}

// APIKey is one event in the log of a bearer key, grouped by APIKeyHash.
// Cancelling a key appends a row for the same hash with Duration 0, so only
// the newest row for a hash decides whether the key is usable.
type APIKey struct {
	APIKeyID      int64      `db:"api_key_id" json:"apiKeyId"`
	CreationTime  int64      `db:"creation_time" json:"creationTime"`
	CreatorUserID int64      `db:"creator_user_id" json:"creatorUserId"`
	APIKeyHash    string     `db:"api_key_hash" json:"-"`
	Kind          APIKeyKind `db:"api_key_kind" json:"apiKeyKind"`
	Duration      int64      `db:"duration" json:"duration"`

	// Key is the raw secret, set only on the issuing response.
	Key     string `db:"-" json:"key,omitempty"`
	Creator *User  `db:"-" json:"creator,omitempty"`
}

// ExpiresAt returns the instant (ms) after which the row no longer validates.
// It saturates at math.MaxInt64.
func (k *APIKey) ExpiresAt() int64 {
	if k.Duration > math.MaxInt64-k.CreationTime {
		return math.MaxInt64
	}
	return k.CreationTime + k.Duration
}

// ValidAt reports whether the row authorizes requests at now (ms).
func (k *APIKey) ValidAt(now int64) bool {
	return k.Kind == APIKeyKindValid && k.ExpiresAt() > now
}
