package entity

import "time"

// PushSubscription stores a browser push endpoint registered by a member.
// Endpoint is unique; re-subscribing from the same browser upserts the keys.
type PushSubscription struct {
	ID        string
	UserID    string
	Endpoint  string
	P256DH    string
	Auth      string
	CreatedAt time.Time
}
