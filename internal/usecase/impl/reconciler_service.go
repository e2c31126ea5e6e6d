package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/repository"
	"aspen/internal/domain/service"
	"aspen/internal/usecase"
	"aspen/internal/util"

	"github.com/pkg/errors"
)

type reconcilerService struct {
	portal      service.PortalGateway
	registry    usecase.RegistryUsecase
	accountRepo repository.AccountRepository
	deviceRepo  repository.DeviceRepository
	bundleRepo  repository.BundleIDRepository
	certRepo    repository.CertificateRepository
	profileRepo repository.ProfileRepository
	logger      *slog.Logger
}

// NewReconcilerService creates a new reconciler service instance.
func NewReconcilerService(
	portal service.PortalGateway,
	registry usecase.RegistryUsecase,
	accountRepo repository.AccountRepository,
	deviceRepo repository.DeviceRepository,
	bundleRepo repository.BundleIDRepository,
	certRepo repository.CertificateRepository,
	profileRepo repository.ProfileRepository,
	logger *slog.Logger,
) usecase.ReconcilerUsecase {
	return &reconcilerService{
		portal:      portal,
		registry:    registry,
		accountRepo: accountRepo,
		deviceRepo:  deviceRepo,
		bundleRepo:  bundleRepo,
		certRepo:    certRepo,
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// Reconcile drives one (account, project, udid) triple to the desired
// portal state. Phases run in order and every phase re-derives its state
// from the portal, so a failed attempt needs no cleanup before the
// allocator moves on.
func (s *reconcilerService) Reconcile(ctx context.Context, account *entity.Account, project *entity.Project, udid string) error {
	if err := s.ensureDevice(ctx, account, udid); err != nil {
		s.logReconcileFailure(account, project, udid, "device", err)

		return err
	}

	bundleID, err := s.ensureBundleID(ctx, account, project)
	if err != nil {
		s.logReconcileFailure(account, project, udid, "bundle id", err)

		return err
	}

	cert, err := s.ensureCertificate(ctx, account)
	if err != nil {
		s.logReconcileFailure(account, project, udid, "certificate", err)

		return err
	}

	if err := s.ensureProfile(ctx, account, project, udid, bundleID, cert); err != nil {
		s.logReconcileFailure(account, project, udid, "profile", err)

		return err
	}

	return nil
}

func (s *reconcilerService) logReconcileFailure(account *entity.Account, project *entity.Project, udid, phase string, err error) {
	s.logger.Warn("Reconciliation attempt failed",
		slog.String("account", account.Account),
		slog.String("project", project.Project),
		slog.String("udid", udid),
		slog.String("phase", phase),
		slog.Any("error", err),
	)
}

// ensureDevice brings the udid onto the account. A udid already in the
// device store was registered by an earlier enrollment, so the whole
// remote sequence is skipped; otherwise the device is validated, the
// account's listing resynced, and the device added when absent.
func (s *reconcilerService) ensureDevice(ctx context.Context, account *entity.Account, udid string) error {
	if _, err := s.deviceRepo.FindByUDID(ctx, udid); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrDeviceNotFound) {
		return fmt.Errorf("failed to find device: %w", err)
	}

	if err := s.portal.ValidateDevice(ctx, account, udid, udid); err != nil {
		return domainerrors.ErrRemoteValidation.WrapMessage(err.Error())
	}

	devices, err := s.portal.ListDevices(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	registered := false
	for _, device := range devices {
		if device.DeviceNumber == udid {
			registered = true

			break
		}
	}
	if !registered {
		added, err := s.portal.AddDevice(ctx, account, udid, udid)
		if err != nil {
			return fmt.Errorf("failed to add device: %w", err)
		}
		devices = append(devices, *added)
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

	return nil
}

// ensureBundleID returns the project's app identifier under the account,
// registering one lazily with a random-suffixed identifier on first use.
func (s *reconcilerService) ensureBundleID(ctx context.Context, account *entity.Account, project *entity.Project) (*entity.BundleID, error) {
	sid := entity.BundleSID(account.Account, project.Project)
	existing, err := s.bundleRepo.FindBySID(ctx, sid)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrBundleIDNotFound) {
		return nil, fmt.Errorf("failed to find bundle id: %w", err)
	}

	name := entity.ProfileName(project.Project)
	identifier := project.BundlePrefix + "." + util.RandomSuffix(4)

	if err := s.portal.ValidateBundleID(ctx, account, name, identifier); err != nil {
		return nil, domainerrors.ErrRemoteValidation.WrapMessage(err.Error())
	}
	if err := s.portal.RegisterBundleID(ctx, account, name, identifier, project.CapabilityList()); err != nil {
		return nil, fmt.Errorf("failed to register bundle id: %w", err)
	}

	apps, err := s.portal.ListBundleIDs(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list bundle ids: %w", err)
	}
	for _, app := range apps {
		if app.Identifier != identifier {
			continue
		}
		bundleID := &entity.BundleID{
			SID:        sid,
			Account:    account.Account,
			Project:    project.Project,
			AppIDID:    app.AppIDID,
			Name:       app.Name,
			Prefix:     app.Prefix,
			Identifier: app.Identifier,
		}
		if _, err := s.registry.UpsertBundleID(ctx, bundleID); err != nil {
			return nil, err
		}

		return bundleID, nil
	}

	return nil, errors.Errorf("registered bundle id %s missing from portal listing", identifier)
}

// ensureCertificate returns a usable development certificate, resyncing
// from the portal once before declaring the precondition failed.
func (s *reconcilerService) ensureCertificate(ctx context.Context, account *entity.Account) (*entity.Certificate, error) {
	now := time.Now()
	cert, err := s.certRepo.FindUsable(ctx, account.Account, entity.CertTypeDevelopment, now)
	if err == nil {
		return cert, nil
	}
	if !errors.Is(err, repository.ErrCertificateNotFound) {
		return nil, fmt.Errorf("failed to find certificate: %w", err)
	}

	listed, err := s.portal.ListCertificates(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	for _, each := range listed {
		if _, err := s.registry.UpsertCertificate(ctx, &entity.Certificate{
			SID:       account.Account + ":" + each.Name,
			Account:   account.Account,
			Name:      each.Name,
			CertReqID: each.CertRequestID,
			CertID:    each.CertificateID,
			SN:        each.SerialNumber,
			TypeStr:   each.TypeString,
			Expire:    each.Expire,
		}); err != nil {
			return nil, err
		}
	}

	cert, err = s.certRepo.FindUsable(ctx, account.Account, entity.CertTypeDevelopment, now)
	if err != nil {
		if errors.Is(err, repository.ErrCertificateNotFound) {
			return nil, domainerrors.ErrNoCertificate
		}

		return nil, fmt.Errorf("failed to find certificate: %w", err)
	}

	return cert, nil
}

// ensureProfile brings the project's managed profile to a device set
// covering the new udid. The target set is the union of the recorded set,
// the account's full device list and the udid, so the whitelist only ever
// grows.
func (s *reconcilerService) ensureProfile(
	ctx context.Context,
	account *entity.Account,
	project *entity.Project,
	udid string,
	bundleID *entity.BundleID,
	cert *entity.Certificate,
) error {
	sid := entity.BundleSID(account.Account, project.Project)
	recorded, err := s.profileRepo.FindBySID(ctx, sid)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return fmt.Errorf("failed to find profile: %w", err)
	}

	name := entity.ProfileName(project.Project)
	summaries, err := s.portal.ListProfiles(ctx, account)
	if err != nil {
		return fmt.Errorf("failed to list profiles: %w", err)
	}
	var remoteID string
	var remoteExpire time.Time
	for _, summary := range summaries {
		if summary.Name == name {
			remoteID = summary.ProfileID
			remoteExpire = summary.Expire

			break
		}
	}

	if recorded != nil && recorded.Contains(udid) && remoteID != "" && remoteExpire.After(time.Now()) {
		return nil
	}

	target := unionDeviceSet(recorded, account.DeviceList(), udid)
	deviceIDs, err := s.portalDeviceIDs(ctx, target)
	if err != nil {
		return err
	}
	spec := service.ProfileSpec{
		Name:            name,
		AppIDID:         bundleID.AppIDID,
		AppIDName:       bundleID.Name,
		AppIDPrefix:     bundleID.Prefix,
		AppIDIdentifier: bundleID.Identifier,
		CertReqID:       cert.CertReqID,
		DeviceIDs:       deviceIDs,
	}

	var result *service.PortalProfile
	if remoteID != "" {
		result, err = s.portal.RegenProfile(ctx, account, remoteID, spec)
		if err != nil {
			return fmt.Errorf("failed to regenerate profile: %w", err)
		}
	} else {
		result, err = s.portal.CreateProfile(ctx, account, spec)
		if err != nil {
			return fmt.Errorf("failed to create profile: %w", err)
		}
	}

	blob := result.EncodedProfile
	if blob == "" {
		raw, err := s.portal.DownloadProfile(ctx, account, result.ProfileID)
		if err != nil {
			return fmt.Errorf("failed to download profile: %w", err)
		}
		blob = encodeProfile(raw)
	}

	if recorded == nil {
		recorded = &entity.Profile{
			SID:     sid,
			Account: account.Account,
			Project: project.Project,
		}
	}
	recorded.ProfileID = result.ProfileID
	recorded.Profile = blob
	recorded.Expire = result.Expire
	numbers := result.DeviceNumbers
	if len(numbers) == 0 {
		numbers = target
	}
	sort.Strings(numbers)
	recorded.SetDeviceList(numbers)
	if err := s.profileRepo.Save(ctx, recorded); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	s.logger.Info("Profile reconciled",
		slog.String("account", account.Account),
		slog.String("project", project.Project),
		slog.String("profile_id", recorded.ProfileID),
		slog.Int("devices", recorded.DevicesNum),
	)

	return nil
}

// unionDeviceSet merges the recorded whitelist, the account's device list
// and the new udid into a sorted, deduplicated set.
func unionDeviceSet(recorded *entity.Profile, accountDevices []string, udid string) []string {
	seen := map[string]struct{}{udid: {}}
	if recorded != nil {
		for _, each := range recorded.DeviceList() {
			seen[each] = struct{}{}
		}
	}
	for _, each := range accountDevices {
		seen[each] = struct{}{}
	}

	target := make([]string, 0, len(seen))
	for each := range seen {
		target = append(target, each)
	}
	sort.Strings(target)

	return target
}

// portalDeviceIDs maps whitelisted udids to the portal's device ids via the
// device store; udids the store does not know are skipped.
func (s *reconcilerService) portalDeviceIDs(ctx context.Context, udids []string) ([]string, error) {
	known, err := s.deviceRepo.FindByUDIDs(ctx, udids)
	if err != nil {
		return nil, fmt.Errorf("failed to find devices: %w", err)
	}

	ids := make([]string, 0, len(known))
	for _, device := range known {
		if device.DeviceID != "" {
			ids = append(ids, device.DeviceID)
		}
	}

	return ids, nil
}
