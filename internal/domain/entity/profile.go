package entity

import (
	"encoding/json"
	"time"
)

// ProfileNameMarker prefixes the display name of every profile this service
// manages; the marker plus project name identifies a profile on the portal.
const ProfileNameMarker = "adhoc "

// Profile is a provisioning profile owned by an account for a project. The
// blob and device set are a cache of portal state; a profile is stale when
// its cached expiry differs from the portal's.
type Profile struct {
	SID        string    `json:"sid"` // "<account>:<project>", the natural key.
	Account    string    `json:"account"`
	Project    string    `json:"project"`
	ProfileID  string    `json:"profile_id"`
	Profile    string    `json:"profile"`     // Base64-encoded mobileprovision blob.
	Devices    string    `json:"devices"`     // JSON array of whitelisted device numbers.
	DevicesNum int       `json:"devices_num"` // Cached size of Devices.
	Expire     time.Time `json:"expire"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProfileName is the portal display name for a project's managed profile.
func ProfileName(project string) string {
	return ProfileNameMarker + project
}

// DeviceList decodes the whitelisted device-number array.
func (p *Profile) DeviceList() []string {
	if p.Devices == "" {
		return nil
	}
	var udids []string
	if err := json.Unmarshal([]byte(p.Devices), &udids); err != nil {
		return nil
	}

	return udids
}

// SetDeviceList overwrites the whitelisted device list and its size cache.
func (p *Profile) SetDeviceList(udids []string) {
	raw, _ := json.Marshal(udids)
	p.Devices = string(raw)
	p.DevicesNum = len(udids)
}

// Contains reports whether a udid is already whitelisted.
func (p *Profile) Contains(udid string) bool {
	for _, each := range p.DeviceList() {
		if each == udid {
			return true
		}
	}

	return false
}
