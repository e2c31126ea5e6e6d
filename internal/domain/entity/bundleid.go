package entity

import "time"

// BundleID is an app identifier registered under an account for a project.
// One exists per (account, project) pair, created lazily with a
// random-suffixed reverse-DNS identifier derived from the project's prefix.
type BundleID struct {
	SID        string    `json:"sid"` // "<account>:<project>", the natural key.
	Account    string    `json:"account"`
	Project    string    `json:"project"`
	AppIDID    string    `json:"app_id_id"` // Portal-assigned identifier.
	Name       string    `json:"name"`
	Prefix     string    `json:"prefix"`
	Identifier string    `json:"identifier"` // Reverse-DNS bundle identifier.
	CreatedAt  time.Time `json:"created_at"`
}

// BundleSID builds the composite key for a bundle id.
func BundleSID(account, project string) string {
	return account + ":" + project
}
