package models

// PasswordKind distinguishes the events of the password log.
type PasswordKind int16

const (
	PasswordKindChange PasswordKind = iota
	PasswordKindReset
	PasswordKindCancel
)

var passwordKindNames = []string{"CHANGE", "RESET", "CANCEL"}

func (k PasswordKind) String() string { return enumName(passwordKindNames, int16(k)) }

func (k PasswordKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *PasswordKind) UnmarshalText(b []byte) error {
	v, err := ParsePasswordKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ParsePasswordKind parses CHANGE, RESET or CANCEL.
func ParsePasswordKind(s string) (PasswordKind, error) {
	v, err := parseEnum("password kind", passwordKindNames, s)
	return PasswordKind(v), err
}

// Password is one event in a user's password log. The current password is the
// row with the highest PasswordID for the user.
type Password struct {
	PasswordID           int64        `db:"password_id" json:"passwordId"`
	CreationTime         int64        `db:"creation_time" json:"creationTime"`
	CreatorUserID        int64        `db:"creator_user_id" json:"creatorUserId"`
	UserID               int64        `db:"user_id" json:"userId"`
	Kind                 PasswordKind `db:"password_kind" json:"passwordKind"`
	PasswordHash         string       `db:"password_hash" json:"-"`
	PasswordResetKeyHash string       `db:"password_reset_key_hash" json:"-"`

	Creator *User `db:"-" json:"creator,omitempty"`
}
