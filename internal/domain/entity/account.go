// Package entity contains the core business objects of the project.
package entity

import (
	"encoding/json"
	"time"
)

// DeviceLimit is the portal-imposed cap on registered devices per account.
const DeviceLimit = 100

// Account represents one developer-portal account and its captured session.
// The device list mirrors portal state and is refreshed on every full sync;
// DevicesNum always equals the length of the decoded Devices array after a
// successful sync.
type Account struct {
	Account    string    `json:"account"` // Account email, the natural key.
	TeamID     string    `json:"team_id"`
	Phone      string    `json:"phone"`       // Phone bound for SMS security codes, may be empty.
	Cookie     string    `json:"cookie"`      // JSON object of captured session cookies.
	Headers    string    `json:"headers"`     // JSON object of captured request headers.
	Devices    string    `json:"devices"`     // JSON array of device numbers known to the portal.
	DevicesNum int       `json:"devices_num"` // Cached size of Devices.
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeviceList decodes the cached device-number array. A corrupt or empty blob
// decodes to an empty list; portal truth is always re-derivable by a sync.
func (a *Account) DeviceList() []string {
	if a.Devices == "" {
		return nil
	}
	var udids []string
	if err := json.Unmarshal([]byte(a.Devices), &udids); err != nil {
		return nil
	}

	return udids
}

// SetDeviceList overwrites the cached device list and its size cache.
func (a *Account) SetDeviceList(udids []string) {
	raw, _ := json.Marshal(udids)
	a.Devices = string(raw)
	a.DevicesNum = len(udids)
}

// HasCapacity reports whether the portal will accept another device.
func (a *Account) HasCapacity() bool {
	return a.DevicesNum < DeviceLimit
}

// CookieMap decodes the captured session cookies.
func (a *Account) CookieMap() map[string]string {
	return decodeStringMap(a.Cookie)
}

// HeaderMap decodes the captured request headers.
func (a *Account) HeaderMap() map[string]string {
	return decodeStringMap(a.Headers)
}

func decodeStringMap(raw string) map[string]string {
	if raw == "" {
		return map[string]string{}
	}
	out := map[string]string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]string{}
	}

	return out
}
