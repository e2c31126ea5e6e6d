package impl

import (
	"context"
	"testing"
	"time"

	"aspen/internal/domain/entity"
	"aspen/internal/infra/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryService_UpsertDevice_Idempotent(t *testing.T) {
	deviceRepo := newFakeDeviceRepo()
	service := NewRegistryService(cache.NewMemoryCache(), deviceRepo, newFakeBundleRepo(), newFakeCertRepo(), testLogger())

	ctx := context.Background()
	device := &entity.Device{UDID: "udid-1", DeviceID: "dev-1", Model: "iPhone14,2", SN: "SN1"}

	id, err := service.UpsertDevice(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", id)
	assert.Equal(t, 1, deviceRepo.saves)

	// Identical tuple: cache hit, no second write.
	id, err = service.UpsertDevice(ctx, device)
	require.NoError(t, err)
	assert.Equal(t, "dev-1", id)
	assert.Equal(t, 1, deviceRepo.saves)
}

func TestRegistryService_UpsertDevice_ChangedTupleWrites(t *testing.T) {
	deviceRepo := newFakeDeviceRepo()
	service := NewRegistryService(cache.NewMemoryCache(), deviceRepo, newFakeBundleRepo(), newFakeCertRepo(), testLogger())

	ctx := context.Background()
	device := &entity.Device{UDID: "udid-1", DeviceID: "dev-1", Model: "iPhone14,2", SN: "SN1"}

	_, err := service.UpsertDevice(ctx, device)
	require.NoError(t, err)

	changed := *device
	changed.Model = "iPhone15,3"
	_, err = service.UpsertDevice(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, 2, deviceRepo.saves)
	assert.Equal(t, "iPhone15,3", deviceRepo.devices["udid-1"].Model)
}

func TestRegistryService_UpsertBundleID_Idempotent(t *testing.T) {
	bundleRepo := newFakeBundleRepo()
	service := NewRegistryService(cache.NewMemoryCache(), newFakeDeviceRepo(), bundleRepo, newFakeCertRepo(), testLogger())

	ctx := context.Background()
	bundleID := &entity.BundleID{
		SID:        entity.BundleSID("dev@example.com", "demo"),
		Account:    "dev@example.com",
		Project:    "demo",
		AppIDID:    "app-1",
		Name:       "adhoc demo",
		Prefix:     "ABCDE12345",
		Identifier: "com.example.demo.a1b2",
	}

	id, err := service.UpsertBundleID(ctx, bundleID)
	require.NoError(t, err)
	assert.Equal(t, "app-1", id)

	_, err = service.UpsertBundleID(ctx, bundleID)
	require.NoError(t, err)
	assert.Equal(t, 1, bundleRepo.saves)
}

func TestRegistryService_UpsertCertificate_Idempotent(t *testing.T) {
	certRepo := newFakeCertRepo()
	service := NewRegistryService(cache.NewMemoryCache(), newFakeDeviceRepo(), newFakeBundleRepo(), certRepo, testLogger())

	ctx := context.Background()
	cert := &entity.Certificate{
		SID:       "dev@example.com:iOS Development",
		Account:   "dev@example.com",
		Name:      "iOS Development",
		CertReqID: "req-1",
		CertID:    "cert-1",
		SN:        "01",
		TypeStr:   entity.CertTypeDevelopment,
		Expire:    time.Now().Add(180 * 24 * time.Hour),
	}

	id, err := service.UpsertCertificate(ctx, cert)
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)

	_, err = service.UpsertCertificate(ctx, cert)
	require.NoError(t, err)
	assert.Equal(t, 1, certRepo.saves)
}
