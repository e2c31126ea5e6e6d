package usecase

import (
	"context"

	"aspen/internal/domain/service"
)

// SyncSummary reports what a full account resync touched.
type SyncSummary struct {
	Devices      int `json:"devices"`
	BundleIDs    int `json:"bundle_ids"`
	Certificates int `json:"certificates"`
	Profiles     int `json:"profiles"`
}

// Artifact is a downloadable payload with its delivery metadata.
type Artifact struct {
	Name        string
	ContentType string
	Content     []byte
}

// AccountUsecase covers operator-facing account maintenance and the
// artifact/security-code endpoints enrolled devices and the packaging
// pipeline talk to.
type AccountUsecase interface {
	// InitAccount resyncs an account's devices, app identifiers,
	// certificates and managed profiles from the portal.
	InitAccount(ctx context.Context, account string) (*SyncSummary, error)

	// DownloadProfile returns the mobileprovision blob for an enrollment.
	DownloadProfile(ctx context.Context, token string) (*Artifact, error)

	// DownloadIPA returns the packaged ipa for an enrollment.
	DownloadIPA(ctx context.Context, token string) (*Artifact, error)

	// MobileConfig returns the signed udid-harvest payload for an
	// enrollment.
	MobileConfig(ctx context.Context, token string) (*Artifact, error)

	// SecurityCodeSMS extracts a portal verification code from a relayed
	// SMS and publishes it.
	SecurityCodeSMS(ctx context.Context, phone, sms string) error

	// SecurityCode publishes an operator-entered verification code.
	SecurityCode(ctx context.Context, account, code string) error

	// WaitSecurityCode blocks until a verification code arrives or the
	// configured deadline passes.
	WaitSecurityCode(ctx context.Context) (*service.SecurityCode, error)

	// UploadIPA stores a packaged ipa delivered by the build pipeline,
	// returning the stored filename.
	UploadIPA(ctx context.Context, project, account string, payload []byte) (string, error)
}
