package impl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aspen/config"
	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/service"
	"aspen/internal/infra/cache"
	"aspen/internal/infra/portal"
	"aspen/internal/infra/signer"
	"aspen/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountFixture struct {
	kv             *cache.MemoryCache
	publisher      *stubPublisher
	accountRepo    *fakeAccountRepo
	deviceRepo     *fakeDeviceRepo
	bundleRepo     *fakeBundleRepo
	certRepo       *fakeCertRepo
	profileRepo    *fakeProfileRepo
	enrollmentRepo *fakeEnrollmentRepo
	cfg            *config.Config
}

func newAccountFixture() *accountFixture {
	return &accountFixture{
		kv:             cache.NewMemoryCache(),
		publisher:      &stubPublisher{},
		accountRepo:    newFakeAccountRepo(),
		deviceRepo:     newFakeDeviceRepo(),
		bundleRepo:     newFakeBundleRepo(),
		certRepo:       newFakeCertRepo(),
		profileRepo:    newFakeProfileRepo(),
		enrollmentRepo: newFakeEnrollmentRepo(),
		cfg: &config.Config{
			Portal: config.PortalConfig{SecurityCodeWait: time.Second},
			Assets: config.AssetsConfig{EntryURL: "https://adhoc.example.com"},
		},
	}
}

func (f *accountFixture) build(gateway service.PortalGateway) usecase.AccountUsecase {
	registry := NewRegistryService(f.kv, f.deviceRepo, f.bundleRepo, f.certRepo, testLogger())

	return NewAccountService(
		gateway, registry, f.kv, f.publisher, &signer.PassthroughSigner{},
		f.accountRepo, f.profileRepo, f.enrollmentRepo,
		f.cfg, testLogger(),
	)
}

// portalStub serves the account-scoped listing endpoints with a fixed
// dataset: two devices, one managed app id, one development certificate and
// one managed profile.
func portalStub(t *testing.T) *httptest.Server {
	t.Helper()

	const base = "/services-account/QH65B2/account"
	expire := time.Now().Add(300 * 24 * time.Hour).UTC().Format(time.RFC3339)

	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, body map[string]any) {
		body["resultCode"] = 0
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(body))
	}
	mux.HandleFunc(base+"/ios/device/listDevices.action", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{
			"devices": []map[string]any{
				{"deviceId": "dev-1", "deviceNumber": "udid-1", "model": "iPhone14,2", "serialNumber": "SN1"},
				{"deviceId": "dev-2", "deviceNumber": "udid-2", "model": "iPhone15,3", "serialNumber": "SN2"},
			},
		})
	})
	mux.HandleFunc(base+"/ios/identifiers/listAppIds.action", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{
			"appIds": []map[string]any{
				{"appIdId": "app-1", "name": "adhoc demo", "prefix": "TEAM1", "identifier": "com.example.demo.a1b2"},
				{"appIdId": "app-9", "name": "Someone Elses App", "prefix": "TEAM1", "identifier": "com.example.other"},
			},
		})
	})
	mux.HandleFunc(base+"/ios/certificate/listCertRequests.action", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{
			"certRequests": []map[string]any{{
				"certRequestId":   "req-1",
				"name":            "iOS Development",
				"certificateId":   "cert-1",
				"serialNum":       "01",
				"expirationDate":  expire,
				"certificateType": map[string]any{"permissionType": "development"},
			}},
		})
	})
	mux.HandleFunc(base+"/ios/profile/listProvisioningProfiles.action", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{
			"provisioningProfiles": []map[string]any{
				{"provisioningProfileId": "prof-1", "name": "adhoc demo", "dateExpire": expire},
			},
		})
	})
	mux.HandleFunc(base+"/ios/profile/getProvisioningProfile.action", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, map[string]any{
			"provisioningProfile": map[string]any{
				"provisioningProfileId": "prof-1",
				"dateExpire":            expire,
				"encodedProfile":        "YmxvYg==",
				"devices": []map[string]any{
					{"deviceId": "dev-1", "deviceNumber": "udid-1"},
					{"deviceId": "dev-2", "deviceNumber": "udid-2"},
				},
			},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func TestAccountService_InitAccount(t *testing.T) {
	server := portalStub(t)
	fixture := newAccountFixture()

	account := &entity.Account{Account: "dev@example.com", TeamID: "TEAM1", Cookie: `{"myacinfo":"tok"}`}
	require.NoError(t, fixture.accountRepo.Save(context.Background(), account))

	gateway := portal.NewClient(config.PortalConfig{
		BaseURL:        server.URL,
		DevicePageSize: 100,
		RequestTimeout: 5 * time.Second,
	}, testLogger())
	service := fixture.build(gateway)

	summary, err := service.InitAccount(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, &usecase.SyncSummary{Devices: 2, BundleIDs: 1, Certificates: 1, Profiles: 1}, summary)

	// Durable records landed for every managed portal object.
	assert.Len(t, fixture.deviceRepo.devices, 2)
	assert.Len(t, fixture.bundleRepo.bundles, 1)
	assert.Contains(t, fixture.bundleRepo.bundles, entity.BundleSID("dev@example.com", "demo"))
	assert.Len(t, fixture.certRepo.certs, 1)

	profile := fixture.profileRepo.profiles[entity.BundleSID("dev@example.com", "demo")]
	require.NotNil(t, profile)
	assert.Equal(t, "prof-1", profile.ProfileID)
	assert.Equal(t, []string{"udid-1", "udid-2"}, profile.DeviceList())
	assert.Equal(t, "YmxvYg==", profile.Profile)

	// Device-count invariant after a full sync.
	synced, err := fixture.accountRepo.FindByAccount(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, len(synced.DeviceList()), synced.DevicesNum)
	assert.Equal(t, 2, synced.DevicesNum)
}

func TestAccountService_InitAccountUnknown(t *testing.T) {
	fixture := newAccountFixture()
	service := fixture.build(&stubPortal{})

	_, err := service.InitAccount(context.Background(), "ghost@example.com")
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", appErr.ErrorCode())
}

func TestAccountService_ResyncSkipsUnchangedProfileDetail(t *testing.T) {
	fixture := newAccountFixture()
	account := &entity.Account{Account: "dev@example.com", TeamID: "TEAM1"}
	require.NoError(t, fixture.accountRepo.Save(context.Background(), account))

	expire := time.Now().Add(300 * 24 * time.Hour).UTC().Truncate(time.Second)
	detailFetches := 0
	gateway := &stubPortal{
		ListDevicesFn: func(context.Context, *entity.Account) ([]service.PortalDevice, error) {
			return []service.PortalDevice{{DeviceID: "dev-1", DeviceNumber: "udid-1"}}, nil
		},
		ListBundleIDsFn: func(context.Context, *entity.Account) ([]service.PortalBundleID, error) {
			return []service.PortalBundleID{{AppIDID: "app-1", Name: "adhoc demo", Prefix: "TEAM1", Identifier: "com.example.demo.a1b2"}}, nil
		},
		ListCertificatesFn: func(context.Context, *entity.Account) ([]service.PortalCertificate, error) {
			return []service.PortalCertificate{{
				CertRequestID: "req-1",
				Name:          "iOS Development",
				TypeString:    entity.CertTypeDevelopment,
				Expire:        expire,
			}}, nil
		},
		ListProfilesFn: func(context.Context, *entity.Account) ([]service.PortalProfileSummary, error) {
			return []service.PortalProfileSummary{{ProfileID: "prof-1", Name: "adhoc demo", Expire: expire}}, nil
		},
		GetProfileDetailFn: func(context.Context, *entity.Account, string) (*service.PortalProfile, error) {
			detailFetches++

			return &service.PortalProfile{
				ProfileID:      "prof-1",
				DeviceNumbers:  []string{"udid-1"},
				Expire:         expire,
				EncodedProfile: "YmxvYg==",
			}, nil
		},
	}
	svc := fixture.build(gateway)

	_, err := svc.InitAccount(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, detailFetches)

	// The portal's expiry did not move, so the second sweep stays on the
	// listing and never fetches the detail again.
	summary, err := svc.InitAccount(context.Background(), "dev@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, detailFetches)
	assert.Equal(t, 1, summary.Profiles)
}

func TestAccountService_DownloadProfile(t *testing.T) {
	fixture := newAccountFixture()
	require.NoError(t, fixture.enrollmentRepo.Save(context.Background(), &entity.Enrollment{
		UUID: "tok-1", UDID: "udid-1", Project: "demo", Account: "dev@example.com",
	}))
	profile := &entity.Profile{
		SID:     entity.BundleSID("dev@example.com", "demo"),
		Account: "dev@example.com",
		Project: "demo",
		Profile: "YmxvYg==",
	}
	require.NoError(t, fixture.profileRepo.Save(context.Background(), profile))
	service := fixture.build(&stubPortal{})

	artifact, err := service.DownloadProfile(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "demo.mobileprovision", artifact.Name)
	assert.Equal(t, []byte("blob"), artifact.Content)
}

func TestAccountService_MobileConfigSubstitutesToken(t *testing.T) {
	fixture := newAccountFixture()
	template := filepath.Join(t.TempDir(), "udid.mobileconfig")
	require.NoError(t, os.WriteFile(template,
		[]byte("<string>https://adhoc.example.com/apple/add_device?uuid="+placeholderUUID+"</string>"), 0o644))
	fixture.cfg.Signer = &config.SignerConfig{TemplatePath: template}
	service := fixture.build(&stubPortal{})

	artifact, err := service.MobileConfig(context.Background(), "tok-9")
	require.NoError(t, err)
	assert.Equal(t, "application/x-apple-aspen-config", artifact.ContentType)
	assert.Contains(t, string(artifact.Content), "uuid=tok-9")
	assert.NotContains(t, string(artifact.Content), placeholderUUID)
}

func TestAccountService_SecurityCodeSMS(t *testing.T) {
	fixture := newAccountFixture()
	require.NoError(t, fixture.accountRepo.Save(context.Background(), &entity.Account{
		Account: "dev@example.com", Phone: "+15551234567",
	}))
	service := fixture.build(&stubPortal{})

	err := service.SecurityCodeSMS(context.Background(), "+15551234567", "Your Apple ID verification code is 482913")
	require.NoError(t, err)
	require.Len(t, fixture.publisher.codes, 1)
	assert.Equal(t, "dev@example.com", fixture.publisher.codes[0].Account)
	assert.Equal(t, "482913", fixture.publisher.codes[0].Code)
}

func TestAccountService_SecurityCodeSMSUnknownPhone(t *testing.T) {
	fixture := newAccountFixture()
	service := fixture.build(&stubPortal{})

	err := service.SecurityCodeSMS(context.Background(), "+15550000000", "apple code 1234")
	require.NoError(t, err)
	require.Len(t, fixture.publisher.codes, 1)
	assert.Equal(t, "*", fixture.publisher.codes[0].Account)
}

func TestAccountService_SecurityCodeSMSRejectsUnrelated(t *testing.T) {
	fixture := newAccountFixture()
	service := fixture.build(&stubPortal{})

	err := service.SecurityCodeSMS(context.Background(), "+15551234567", "your bank otp is 123456")
	require.Error(t, err)
	assert.Empty(t, fixture.publisher.codes)
}

func TestAccountService_WaitSecurityCodeReceives(t *testing.T) {
	fixture := newAccountFixture()
	svc := fixture.build(&stubPortal{})

	go func() {
		time.Sleep(20 * time.Millisecond)
		payload, _ := json.Marshal(service.SecurityCode{Account: "dev@example.com", Code: "123456", TS: time.Now().Unix()})
		_ = fixture.kv.Publish(context.Background(), service.ChannelSecurityCode, string(payload))
	}()

	code, err := svc.WaitSecurityCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456", code.Code)
	assert.Equal(t, "dev@example.com", code.Account)
}

func TestAccountService_WaitSecurityCodeTimesOut(t *testing.T) {
	fixture := newAccountFixture()
	fixture.cfg.Portal.SecurityCodeWait = 30 * time.Millisecond
	svc := fixture.build(&stubPortal{})

	_, err := svc.WaitSecurityCode(context.Background())
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "WAIT_TIMEOUT", appErr.ErrorCode())
}

func TestAccountService_UploadAndDownloadIPA(t *testing.T) {
	fixture := newAccountFixture()
	fixture.cfg.Assets.IncomeDir = t.TempDir()

	account := &entity.Account{Account: "dev@example.com", TeamID: "TEAM1"}
	require.NoError(t, fixture.accountRepo.Save(context.Background(), account))
	profile := &entity.Profile{
		SID:     entity.BundleSID("dev@example.com", "demo"),
		Account: "dev@example.com",
		Project: "demo",
	}
	profile.SetDeviceList([]string{"udid-1", "udid-2"})
	require.NoError(t, fixture.profileRepo.Save(context.Background(), profile))
	require.NoError(t, fixture.enrollmentRepo.Save(context.Background(), &entity.Enrollment{
		UUID: "tok-1", UDID: "udid-1", Project: "demo", Account: "dev@example.com",
	}))
	service := fixture.build(&stubPortal{})

	name, err := service.UploadIPA(context.Background(), "demo", "dev@example.com", []byte("ipa-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "TEAM1_2.ipa", name)

	artifact, err := service.DownloadIPA(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "TEAM1_2.ipa", artifact.Name)
	assert.Equal(t, []byte("ipa-bytes"), artifact.Content)
}

func TestAccountService_DownloadIPAMissingArtifact(t *testing.T) {
	fixture := newAccountFixture()
	fixture.cfg.Assets.IncomeDir = t.TempDir()
	require.NoError(t, fixture.accountRepo.Save(context.Background(), &entity.Account{Account: "dev@example.com", TeamID: "TEAM1"}))
	profile := &entity.Profile{SID: entity.BundleSID("dev@example.com", "demo"), Account: "dev@example.com", Project: "demo"}
	require.NoError(t, fixture.profileRepo.Save(context.Background(), profile))
	require.NoError(t, fixture.enrollmentRepo.Save(context.Background(), &entity.Enrollment{
		UUID: "tok-1", UDID: "udid-1", Project: "demo", Account: "dev@example.com",
	}))
	service := fixture.build(&stubPortal{})

	_, err := service.DownloadIPA(context.Background(), "tok-1")
	require.Error(t, err)

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "ARTIFACT_NOT_FOUND", appErr.ErrorCode())
}
