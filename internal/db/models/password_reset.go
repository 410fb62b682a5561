package models

// PasswordReset is a single-use token allowing CreatorUserID to set a new
// password without knowing the current one.
type PasswordReset struct {
	KeyHash       string `db:"password_reset_key_hash" json:"-"`
	CreationTime  int64  `db:"creation_time" json:"creationTime"`
	CreatorUserID int64  `db:"creator_user_id" json:"creatorUserId"`
}

// ExpiredAt reports whether the token is past its window at now (ms).
func (p *PasswordReset) ExpiredAt(now, ttlMillis int64) bool {
	return now > p.CreationTime+ttlMillis
}
