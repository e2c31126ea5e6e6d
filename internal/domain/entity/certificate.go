package entity

import "time"

// CertTypeDevelopment is the only certificate type usable by the ad-hoc
// provisioning flow.
const CertTypeDevelopment = "development"

// Certificate is a signing certificate known to the portal for an account.
type Certificate struct {
	SID       string    `json:"sid"` // "<account>:<name>", the natural key.
	Account   string    `json:"account"`
	Name      string    `json:"name"`
	CertReqID string    `json:"cert_req_id"`
	CertID    string    `json:"cert_id"`
	SN        string    `json:"sn"`
	TypeStr   string    `json:"type_str"`
	Expire    time.Time `json:"expire"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the certificate can back a new provisioning profile.
func (c *Certificate) Usable(now time.Time) bool {
	return c.TypeStr == CertTypeDevelopment && c.Expire.After(now)
}
