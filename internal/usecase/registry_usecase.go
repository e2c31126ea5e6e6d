package usecase

import (
	"context"

	"aspen/internal/domain/entity"
)

// RegistryUsecase deduplicates portal registration records before they hit
// durable storage. Every upsert hashes the record's attribute tuple and
// compares it against the cache; an unchanged record costs one cache read
// and nothing else.
type RegistryUsecase interface {
	// UpsertDevice records a portal device, returning its portal id.
	UpsertDevice(ctx context.Context, device *entity.Device) (string, error)

	// UpsertBundleID records a registered app identifier, returning its
	// portal id.
	UpsertBundleID(ctx context.Context, bundleID *entity.BundleID) (string, error)

	// UpsertCertificate records a signing certificate, returning its portal
	// request id. The cache entry expires with the certificate.
	UpsertCertificate(ctx context.Context, cert *entity.Certificate) (string, error)
}
