package entity

import "time"

// Enrollment binds an end-user device to the project and account that serve
// it. The UUID is the one-time token the device redeemed; for a given
// (udid, project) pair the most recent enrollment wins future lookups.
type Enrollment struct {
	UUID      string    `json:"uuid"` // One-time enrollment token, the natural key.
	UDID      string    `json:"udid"`
	Project   string    `json:"project"`
	Account   string    `json:"account"`
	CreatedAt time.Time `json:"created_at"`
}
