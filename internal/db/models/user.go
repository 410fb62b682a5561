// Package models defines the row types of the goal tracker database.
// Each type corresponds to one table and carries db tags for sqlx scanning and
// json tags for API responses. Hash columns are tagged json:"-" so they can never
// be echoed to a client; raw secrets live only in transient fields that are
// populated by the operation that generated them.
//
// All timestamps are milliseconds since the Unix epoch, assigned server-side.
package models

// User is an account created from a consumed VerificationChallenge.
type User struct {
	UserID                       int64  `db:"user_id" json:"userId"`
	CreationTime                 int64  `db:"creation_time" json:"creationTime"`
	Name                         string `db:"name" json:"name"`
	Email                        string `db:"email" json:"email,omitempty"`
	VerificationChallengeKeyHash string `db:"verification_challenge_key_hash" json:"-"`
}

// Public returns a copy of u safe to embed in another principal's response.
func (u *User) Public() *User {
	if u == nil {
		return nil
	}
	return &User{UserID: u.UserID, CreationTime: u.CreationTime, Name: u.Name}
}
