package models

// SubscriptionKind distinguishes the events of a user's subscription log.
type SubscriptionKind int16

const (
	SubscriptionKindValid SubscriptionKind = iota
	SubscriptionKindCancel
)

var subscriptionKindNames = []string{"VALID", "CANCEL"}

func (k SubscriptionKind) String() string { return enumName(subscriptionKindNames, int16(k)) }

func (k SubscriptionKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *SubscriptionKind) UnmarshalText(b []byte) error {
	v, err := ParseSubscriptionKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParseSubscriptionKind parses VALID or CANCEL.
func ParseSubscriptionKind(s string) (SubscriptionKind, error) {
	v, err := parseEnum("subscription kind", subscriptionKindNames, s)
	return SubscriptionKind(v), err
}

// Subscription is one event in a user's subscription log; the newest row per
// creator decides whether the user is a subscriber.
type Subscription struct {
	SubscriptionID int64            `db:"subscription_id" json:"subscriptionId"`
	CreationTime   int64            `db:"creation_time" json:"creationTime"`
	CreatorUserID  int64            `db:"creator_user_id" json:"creatorUserId"`
	Kind           SubscriptionKind `db:"subscription_kind" json:"subscriptionKind"`
	MaxUses        int64            `db:"max_uses" json:"maxUses"`

	Creator *User `db:"-" json:"creator,omitempty"`
}
