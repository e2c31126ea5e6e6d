package impl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"aspen/config"
	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/repository"
	"aspen/internal/domain/service"
	"aspen/internal/usecase"
	"aspen/internal/util"

	"github.com/pkg/errors"
)

// placeholderUUID is the marker baked into the mobileconfig template; every
// enrollment gets it swapped for its own token.
const placeholderUUID = "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"

// securityCodePattern matches the verification code inside a relayed SMS.
var securityCodePattern = regexp.MustCompile(`\b(\d{4,6})\b`)

type accountService struct {
	portal         service.PortalGateway
	registry       usecase.RegistryUsecase
	cache          service.KVCache
	publisher      service.EventPublisher
	signer         service.ProfileSigner
	accountRepo    repository.AccountRepository
	profileRepo    repository.ProfileRepository
	enrollmentRepo repository.EnrollmentRepository
	cfg            *config.Config
	logger         *slog.Logger
}

// NewAccountService creates a new account service instance.
func NewAccountService(
	portal service.PortalGateway,
	registry usecase.RegistryUsecase,
	cache service.KVCache,
	publisher service.EventPublisher,
	signer service.ProfileSigner,
	accountRepo repository.AccountRepository,
	profileRepo repository.ProfileRepository,
	enrollmentRepo repository.EnrollmentRepository,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.AccountUsecase {
	return &accountService{
		portal:         portal,
		registry:       registry,
		cache:          cache,
		publisher:      publisher,
		signer:         signer,
		accountRepo:    accountRepo,
		profileRepo:    profileRepo,
		enrollmentRepo: enrollmentRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// InitAccount resyncs an account's portal state into local records. Only
// managed records (profile-name marker) are picked up for bundle ids and
// profiles; foreign records on shared accounts stay untouched.
func (s *accountService) InitAccount(ctx context.Context, accountName string) (*usecase.SyncSummary, error) {
	account, err := s.accountRepo.FindByAccount(ctx, accountName)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, domainerrors.ErrAccountNotFound
		}

		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	summary := &usecase.SyncSummary{}

	if err := s.syncDevices(ctx, account, summary); err != nil {
		return nil, err
	}
	if err := s.syncBundleIDs(ctx, account, summary); err != nil {
		return nil, err
	}
	if err := s.syncCertificates(ctx, account, summary); err != nil {
		return nil, err
	}
	if err := s.syncProfiles(ctx, account, summary); err != nil {
		return nil, err
	}

	s.logger.Info("Account resynced",
		slog.String("account", account.Account),
		slog.Int("devices", summary.Devices),
		slog.Int("bundle_ids", summary.BundleIDs),
		slog.Int("certificates", summary.Certificates),
		slog.Int("profiles", summary.Profiles),
	)

	return summary, nil
}

func (s *accountService) syncDevices(ctx context.Context, account *entity.Account, summary *usecase.SyncSummary) error {
	devices, err := s.portal.ListDevices(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	numbers := make([]string, 0, len(devices))
	for _, device := range devices {
		numbers = append(numbers, device.DeviceNumber)
		if _, err := s.registry.UpsertDevice(ctx, &entity.Device{
			UDID:     device.DeviceNumber,
			DeviceID: device.DeviceID,
			Model:    device.Model,
			SN:       device.SerialNumber,
		}); err != nil {
			return err
		}
	}
	sort.Strings(numbers)
	account.SetDeviceList(numbers)
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	summary.Devices = len(devices)

	return nil
}

func (s *accountService) syncBundleIDs(ctx context.Context, account *entity.Account, summary *usecase.SyncSummary) error {
	apps, err := s.portal.ListBundleIDs(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list bundle ids: %w", err)
	}

	for _, app := range apps {
		project, managed := strings.CutPrefix(app.Name, entity.ProfileNameMarker)
		if !managed {
			continue
		}
		if _, err := s.registry.UpsertBundleID(ctx, &entity.BundleID{
			SID:        entity.BundleSID(account.Account, project),
			Account:    account.Account,
			Project:    project,
			AppIDID:    app.AppIDID,
			Name:       app.Name,
			Prefix:     app.Prefix,
			Identifier: app.Identifier,
		}); err != nil {
			return err
		}
		summary.BundleIDs++
	}

	return nil
}

func (s *accountService) syncCertificates(ctx context.Context, account *entity.Account, summary *usecase.SyncSummary) error {
	certs, err := s.portal.ListCertificates(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list certificates: %w", err)
	}

	for _, cert := range certs {
		if _, err := s.registry.UpsertCertificate(ctx, &entity.Certificate{
			SID:       account.Account + ":" + cert.Name,
			Account:   account.Account,
			Name:      cert.Name,
			CertReqID: cert.CertRequestID,
			CertID:    cert.CertificateID,
			SN:        cert.SerialNumber,
			TypeStr:   cert.TypeString,
			Expire:    cert.Expire,
		}); err != nil {
			return err
		}
	}
	summary.Certificates = len(certs)

	return nil
}

func (s *accountService) syncProfiles(ctx context.Context, account *entity.Account, summary *usecase.SyncSummary) error {
	summaries, err := s.portal.ListProfiles(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}

	for _, each := range summaries {
		project, managed := strings.CutPrefix(each.Name, entity.ProfileNameMarker)
		if !managed {
			continue
		}

		sid := entity.BundleSID(account.Account, project)
		profile, err := s.profileRepo.FindBySID(ctx, sid)
		if err != nil {
			if !errors.Is(err, repository.ErrProfileNotFound) {
				return fmt.Errorf("failed to find profile: %w", err)
			}
			profile = &entity.Profile{
				SID:     sid,
				Account: account.Account,
				Project: project,
			}
		}

		// Only a dirty profile warrants the detail fetch: one we have never
		// recorded, or one whose portal expiry moved since we recorded it.
		if profile.Profile != "" && profile.Expire.Equal(each.Expire) {
			summary.Profiles++

			continue
		}

		detail, err := s.portal.GetProfileDetail(ctx, account, each.ProfileID)
		if err != nil {
			return fmt.Errorf("failed to fetch profile detail: %w", err)
		}
		profile.ProfileID = detail.ProfileID
		profile.Expire = detail.Expire
		if detail.EncodedProfile != "" {
			profile.Profile = detail.EncodedProfile
		}
		numbers := detail.DeviceNumbers
		sort.Strings(numbers)
		profile.SetDeviceList(numbers)
		if err := s.profileRepo.Save(ctx, profile); err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}
		summary.Profiles++
	}

	return nil
}

// enrollmentProfile resolves a token to its enrollment and recorded profile.
func (s *accountService) enrollmentProfile(ctx context.Context, token string) (*entity.Enrollment, *entity.Profile, error) {
	enrollment, err := s.enrollmentRepo.FindByUUID(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrEnrollmentNotFound) {
			return nil, nil, domainerrors.ErrEnrollmentNotFound
		}

		return nil, nil, fmt.Errorf("failed to find enrollment: %w", err)
	}

	profile, err := s.profileRepo.FindBySID(ctx, entity.BundleSID(enrollment.Account, enrollment.Project))
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, nil, domainerrors.ErrProfileNotFound
		}

		return nil, nil, fmt.Errorf("failed to find profile: %w", err)
	}

	return enrollment, profile, nil
}

// DownloadProfile returns the mobileprovision blob for an enrollment.
func (s *accountService) DownloadProfile(ctx context.Context, token string) (*usecase.Artifact, error) {
	enrollment, profile, err := s.enrollmentProfile(ctx, token)
	if err != nil {
		return nil, err
	}

	blob, err := decodeProfile(profile.Profile)
	if err != nil {
		return nil, fmt.Errorf("failed to decode profile blob: %w", err)
	}

	return &usecase.Artifact{
		Name:        enrollment.Project + ".mobileprovision",
		ContentType: "application/octet-stream",
		Content:     blob,
	}, nil
}

// DownloadIPA returns the packaged ipa for an enrollment.
func (s *accountService) DownloadIPA(ctx context.Context, token string) (*usecase.Artifact, error) {
	enrollment, profile, err := s.enrollmentProfile(ctx, token)
	if err != nil {
		return nil, err
	}
	account, err := s.accountRepo.FindByAccount(ctx, enrollment.Account)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	name := ipaFilename(account.TeamID, profile.DevicesNum)
	content, err := os.ReadFile(filepath.Join(s.cfg.Assets.IncomeDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to read ipa: %w", err)
	}

	return &usecase.Artifact{
		Name:        name,
		ContentType: "application/octet-stream",
		Content:     content,
	}, nil
}

// MobileConfig returns the signed udid-harvest payload for an enrollment.
// The template's placeholder token is swapped for the real one so the
// device's callback lands on the right enrollment.
func (s *accountService) MobileConfig(ctx context.Context, token string) (*usecase.Artifact, error) {
	if s.cfg.Signer == nil || s.cfg.Signer.TemplatePath == "" {
		return nil, domainerrors.ErrArtifactNotFound
	}
	template, err := os.ReadFile(s.cfg.Signer.TemplatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domainerrors.ErrArtifactNotFound
		}

		return nil, fmt.Errorf("failed to read mobileconfig template: %w", err)
	}

	payload := strings.ReplaceAll(string(template), placeholderUUID, token)
	signed, err := s.signer.Sign(ctx, []byte(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to sign mobileconfig: %w", err)
	}

	return &usecase.Artifact{
		Name:        "udid.mobileconfig",
		ContentType: "application/x-apple-aspen-config",
		Content:     signed,
	}, nil
}

// SecurityCodeSMS extracts a portal verification code from a relayed SMS
// and publishes it. The account is resolved by the sending phone number,
// falling back to the wildcard when nobody owns it.
func (s *accountService) SecurityCodeSMS(ctx context.Context, phone, sms string) error {
	if !strings.Contains(strings.ToLower(sms), "apple") {
		return domainerrors.ErrValidationFailed.WrapMessage("sms does not mention apple")
	}
	match := securityCodePattern.FindString(sms)
	if match == "" {
		return domainerrors.ErrValidationFailed.WrapMessage("sms carries no verification code")
	}

	accountName := "*"
	account, err := s.accountRepo.FindByPhone(ctx, phone)
	switch {
	case err == nil:
		accountName = account.Account
	case !errors.Is(err, repository.ErrAccountNotFound):
		return fmt.Errorf("failed to find account by phone: %w", err)
	}

	return s.SecurityCode(ctx, accountName, match)
}

// SecurityCode publishes a verification code for whoever is waiting.
func (s *accountService) SecurityCode(ctx context.Context, account, code string) error {
	if err := s.publisher.PublishSecurityCode(ctx, &service.SecurityCode{
		Account: account,
		Code:    code,
		TS:      time.Now().Unix(),
	}); err != nil {
		return fmt.Errorf("failed to publish security code: %w", err)
	}

	return nil
}

// WaitSecurityCode blocks until a verification code arrives or the
// configured deadline passes.
func (s *accountService) WaitSecurityCode(ctx context.Context) (*service.SecurityCode, error) {
	sub, err := s.cache.Subscribe(ctx, service.ChannelSecurityCode)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	defer sub.Close()

	waitCtx, cancel := context.WithTimeout(ctx, s.cfg.Portal.SecurityCodeWait)
	defer cancel()

	payload, err := sub.Receive(waitCtx)
	if err != nil {
		if waitCtx.Err() != nil {
			return nil, domainerrors.ErrWaitTimeout
		}

		return nil, fmt.Errorf("failed to receive security code: %w", err)
	}

	var code service.SecurityCode
	if err := json.Unmarshal([]byte(payload), &code); err != nil {
		return nil, fmt.Errorf("failed to decode security code: %w", err)
	}

	return &code, nil
}

// UploadIPA stores a packaged ipa delivered by the build pipeline.
func (s *accountService) UploadIPA(ctx context.Context, project, accountName string, payload []byte) (string, error) {
	account, err := s.accountRepo.FindByAccount(ctx, accountName)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return "", domainerrors.ErrAccountNotFound
		}

		return "", fmt.Errorf("failed to find account: %w", err)
	}
	profile, err := s.profileRepo.FindBySID(ctx, entity.BundleSID(accountName, project))
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return "", domainerrors.ErrProfileNotFound
		}

		return "", fmt.Errorf("failed to find profile: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Assets.IncomeDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create income dir: %w", err)
	}
	name := ipaFilename(account.TeamID, profile.DevicesNum)
	if err := os.WriteFile(filepath.Join(s.cfg.Assets.IncomeDir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("failed to store ipa: %w", err)
	}

	s.logger.Info("Packaged ipa stored",
		slog.String("project", project),
		slog.String("account", accountName),
		slog.String("name", name),
		slog.String("md5", util.MD5Hex(payload)),
	)

	return name, nil
}
