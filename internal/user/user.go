package user

import "time"

// User is an account in the users table, keyed ("user", email). Accounts
// start unapproved; only approved users can obtain a session token.
type User struct {
	Email        string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
	Approved     bool
	SiteAdmin    bool
	ClientID     string
}
