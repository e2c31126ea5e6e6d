package entity

import "time"

// Device is a hardware device registered on the portal, keyed by its UDID.
// Devices are immutable once created; re-registration with the same attribute
// tuple is a no-op.
type Device struct {
	UDID      string    `json:"udid"`      // Hardware identifier, the natural key.
	DeviceID  string    `json:"device_id"` // Portal-assigned identifier.
	Model     string    `json:"model"`
	SN        string    `json:"sn"` // Serial number as reported by the portal.
	CreatedAt time.Time `json:"created_at"`
}
