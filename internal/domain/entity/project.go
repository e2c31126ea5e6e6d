package entity

import (
	"encoding/json"
	"time"
)

// Project describes a distributable app. Projects are provisioned
// out-of-band and read-only from this service's perspective.
type Project struct {
	Project      string    `json:"project"` // Project name, the natural key.
	BundlePrefix string    `json:"bundle_prefix"`
	Capability   string    `json:"capability"` // JSON array of requested capabilities.
	MD5Sum       string    `json:"md5sum"`     // Checksum of the reference ipa.
	Comments     string    `json:"comments"`   // Free-form JSON metadata.
	CreatedAt    time.Time `json:"created_at"`
}

// CapabilityList decodes the requested capability identifiers.
func (p *Project) CapabilityList() []string {
	if p.Capability == "" {
		return nil
	}
	var caps []string
	if err := json.Unmarshal([]byte(p.Capability), &caps); err != nil {
		return nil
	}

	return caps
}

// CommentMap decodes the free-form project metadata.
func (p *Project) CommentMap() map[string]any {
	out := map[string]any{}
	if p.Comments == "" {
		return out
	}
	if err := json.Unmarshal([]byte(p.Comments), &out); err != nil {
		return map[string]any{}
	}

	return out
}
