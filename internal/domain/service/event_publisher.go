package service

import "context"

// Pub/sub channel names shared with the packaging pipeline and the SMS
// relay.
const (
	ChannelPackageTask  = "task:package"
	ChannelSecurityCode = "account:security:code"
)

// PackageTask triggers the external build pipeline for one enrollment.
type PackageTask struct {
	Cert      string `json:"cert"`
	CertP12   string `json:"cert_p12"`
	MPURL     string `json:"mp_url"`  // Signed-profile download URL.
	MPMD5     string `json:"mp_md5"`  // Checksum of the decoded profile blob.
	Project   string `json:"project"`
	IPAURL    string `json:"ipa_url"`
	IPAMD5    string `json:"ipa_md5"`
	IPANew    string `json:"ipa_new"` // Target filename for the repacked ipa.
	UploadURL string `json:"upload_url"`
	TS        int64  `json:"ts"`
}

// SecurityCode relays an SMS verification code to whoever is blocked on the
// wait endpoint. Account is "*" when the sender could not be resolved.
type SecurityCode struct {
	Account string `json:"account"`
	Code    string `json:"code"`
	TS      int64  `json:"ts"`
}

// EventPublisher publishes domain events onto the bus.
type EventPublisher interface {
	// PublishPackageTask hands an enrollment to the packaging pipeline.
	PublishPackageTask(ctx context.Context, task *PackageTask) error

	// PublishSecurityCode relays a portal security code.
	PublishSecurityCode(ctx context.Context, code *SecurityCode) error
}
