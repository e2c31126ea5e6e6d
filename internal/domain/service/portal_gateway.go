package service

import (
	"context"
	"time"

	"aspen/internal/domain/entity"
)

// PortalDevice is a device record as reported by the portal.
type PortalDevice struct {
	DeviceID     string
	DeviceNumber string // The udid.
	Model        string
	SerialNumber string
}

// PortalBundleID is an app identifier record as reported by the portal.
type PortalBundleID struct {
	AppIDID    string
	Name       string
	Prefix     string
	Identifier string
}

// PortalCertificate is a certificate request record as reported by the
// portal.
type PortalCertificate struct {
	CertRequestID string
	Name          string
	CertificateID string
	SerialNumber  string
	TypeString    string
	Expire        time.Time
}

// PortalProfileSummary is one row of the portal's profile listing.
type PortalProfileSummary struct {
	ProfileID string
	Name      string
	Expire    time.Time
}

// PortalProfile is the full profile state returned by detail, regenerate and
// create calls. EncodedProfile is the base64 mobileprovision blob when the
// portal included one.
type PortalProfile struct {
	ProfileID      string
	DeviceNumbers  []string
	Expire         time.Time
	EncodedProfile string
}

// ProfileSpec carries everything the portal needs to create or regenerate a
// provisioning profile.
type ProfileSpec struct {
	Name            string
	AppIDID         string
	AppIDName       string
	AppIDPrefix     string
	AppIDIdentifier string
	CertReqID       string
	DeviceIDs       []string // Portal device ids, not udids.
}

// PortalGateway is the authenticated session wrapper over the external
// developer-portal API. Every operation is scoped to one account's captured
// session; implementations attach cookies and CSRF tokens and validate the
// portal's resultCode convention.
type PortalGateway interface {
	// GetUserProfile probes a raw cookie header and returns the owning
	// account email. Used by session bootstrap before an account exists.
	GetUserProfile(ctx context.Context, cookie string) (string, error)

	// ValidateDevice asks the portal to pre-validate a udid. An error means
	// at least one failed validation.
	ValidateDevice(ctx context.Context, account *entity.Account, udid, name string) error

	// AddDevice registers a udid and returns the portal's device record.
	AddDevice(ctx context.Context, account *entity.Account, udid, name string) (*PortalDevice, error)

	// ListDevices returns every device registered under the account.
	ListDevices(ctx context.Context, account *entity.Account) ([]PortalDevice, error)

	// ListBundleIDs returns every app identifier registered under the
	// account.
	ListBundleIDs(ctx context.Context, account *entity.Account) ([]PortalBundleID, error)

	// ValidateBundleID asks the portal to pre-validate a new app identifier.
	ValidateBundleID(ctx context.Context, account *entity.Account, name, identifier string) error

	// RegisterBundleID registers a new app identifier with the requested
	// capability set.
	RegisterBundleID(ctx context.Context, account *entity.Account, name, identifier string, capabilities []string) error

	// ListCertificates returns every certificate request under the account.
	ListCertificates(ctx context.Context, account *entity.Account) ([]PortalCertificate, error)

	// ListProfiles returns every provisioning profile under the account,
	// including inactive ones.
	ListProfiles(ctx context.Context, account *entity.Account) ([]PortalProfileSummary, error)

	// GetProfileDetail returns the device set and expiry of one profile.
	GetProfileDetail(ctx context.Context, account *entity.Account, profileID string) (*PortalProfile, error)

	// DownloadProfile returns the raw mobileprovision payload.
	DownloadProfile(ctx context.Context, account *entity.Account, profileID string) ([]byte, error)

	// RegenProfile regenerates an existing profile in place with a new
	// device set, certificate and app id.
	RegenProfile(ctx context.Context, account *entity.Account, profileID string, spec ProfileSpec) (*PortalProfile, error)

	// CreateProfile creates a new limited-distribution profile.
	CreateProfile(ctx context.Context, account *entity.Account, spec ProfileSpec) (*PortalProfile, error)
}
