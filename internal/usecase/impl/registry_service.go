// Package impl contains the use case implementations.
package impl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"aspen/internal/domain/entity"
	"aspen/internal/domain/repository"
	"aspen/internal/domain/service"
	"aspen/internal/usecase"
)

// Cache key prefixes for registration content hashes.
const (
	deviceKeyPrefix = "IosDeviceInfo:"
	bundleKeyPrefix = "IosBundleInfo:"
	certKeyPrefix   = "IosCertInfo:"
)

type registryService struct {
	cache      service.KVCache
	deviceRepo repository.DeviceRepository
	bundleRepo repository.BundleIDRepository
	certRepo   repository.CertificateRepository
	logger     *slog.Logger
}

// NewRegistryService creates a new registry service instance.
func NewRegistryService(
	cache service.KVCache,
	deviceRepo repository.DeviceRepository,
	bundleRepo repository.BundleIDRepository,
	certRepo repository.CertificateRepository,
	logger *slog.Logger,
) usecase.RegistryUsecase {
	return &registryService{
		cache:      cache,
		deviceRepo: deviceRepo,
		bundleRepo: bundleRepo,
		certRepo:   certRepo,
		logger:     logger,
	}
}

// contentHash derives a stable digest of a record's attribute tuple. Struct
// field order is fixed, so encoding/json gives canonical bytes.
func contentHash(tuple any) string {
	raw, _ := json.Marshal(tuple)
	sum := sha256.Sum256(raw)

	return hex.EncodeToString(sum[:])
}

// changed reports whether the hash differs from the cached one and records
// the new hash when it does.
func (s *registryService) changed(ctx context.Context, key, hash string, ttl time.Duration) (bool, error) {
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to read registration cache: %w", err)
	}
	if ok && cached == hash {
		return false, nil
	}
	if err := s.cache.SetTTL(ctx, key, hash, ttl); err != nil {
		return false, fmt.Errorf("failed to write registration cache: %w", err)
	}

	return true, nil
}

// UpsertDevice records a portal device, returning its portal id.
func (s *registryService) UpsertDevice(ctx context.Context, device *entity.Device) (string, error) {
	hash := contentHash(struct {
		UDID     string
		DeviceID string
		Model    string
		SN       string
	}{device.UDID, device.DeviceID, device.Model, device.SN})

	changed, err := s.changed(ctx, deviceKeyPrefix+device.UDID, hash, 0)
	if err != nil {
		return "", err
	}
	if !changed {
		return device.DeviceID, nil
	}

	if err := s.deviceRepo.Save(ctx, device); err != nil {
		return "", fmt.Errorf("failed to save device: %w", err)
	}
	s.logger.Info("Device registered",
		slog.String("udid", device.UDID),
		slog.String("device_id", device.DeviceID),
	)

	return device.DeviceID, nil
}

// UpsertBundleID records a registered app identifier, returning its portal
// id.
func (s *registryService) UpsertBundleID(ctx context.Context, bundleID *entity.BundleID) (string, error) {
	hash := contentHash(struct {
		SID        string
		AppIDID    string
		Name       string
		Prefix     string
		Identifier string
	}{bundleID.SID, bundleID.AppIDID, bundleID.Name, bundleID.Prefix, bundleID.Identifier})

	changed, err := s.changed(ctx, bundleKeyPrefix+bundleID.SID, hash, 0)
	if err != nil {
		return "", err
	}
	if !changed {
		return bundleID.AppIDID, nil
	}

	if err := s.bundleRepo.Save(ctx, bundleID); err != nil {
		return "", fmt.Errorf("failed to save bundle id: %w", err)
	}
	s.logger.Info("Bundle id registered",
		slog.String("sid", bundleID.SID),
		slog.String("identifier", bundleID.Identifier),
	)

	return bundleID.AppIDID, nil
}

// UpsertCertificate records a signing certificate, returning its portal
// request id.
func (s *registryService) UpsertCertificate(ctx context.Context, cert *entity.Certificate) (string, error) {
	hash := contentHash(struct {
		SID       string
		CertReqID string
		CertID    string
		SN        string
		TypeStr   string
		Expire    int64
	}{cert.SID, cert.CertReqID, cert.CertID, cert.SN, cert.TypeStr, cert.Expire.Unix()})

	ttl := time.Until(cert.Expire)
	if ttl < 0 {
		ttl = 0
	}
	changed, err := s.changed(ctx, certKeyPrefix+cert.SID, hash, ttl)
	if err != nil {
		return "", err
	}
	if !changed {
		return cert.CertReqID, nil
	}

	if err := s.certRepo.Save(ctx, cert); err != nil {
		return "", fmt.Errorf("failed to save certificate: %w", err)
	}
	s.logger.Info("Certificate registered",
		slog.String("sid", cert.SID),
		slog.String("type", cert.TypeStr),
		slog.Time("expire", cert.Expire),
	)

	return cert.CertReqID, nil
}
