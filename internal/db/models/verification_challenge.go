package models

// VerificationChallenge proves control of an email address before an account
// is created. It is keyed by the hash of a random secret that is mailed to the
// address and never stored.
type VerificationChallenge struct {
	KeyHash      string `db:"verification_challenge_key_hash" json:"-"`
	CreationTime int64  `db:"creation_time" json:"creationTime"`
	Name         string `db:"name" json:"name"`
	Email        string `db:"email" json:"email"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// ExpiredAt reports whether the challenge is past its window at now (ms).
func (v *VerificationChallenge) ExpiredAt(now, ttlMillis int64) bool {
	return v.CreationTime+ttlMillis < now
}
