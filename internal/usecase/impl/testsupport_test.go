package impl

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"aspen/internal/domain/entity"
	"aspen/internal/domain/repository"
	"aspen/internal/domain/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAccountRepo is a map-backed repository.AccountRepository.
type fakeAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
	saves    int
}

func newFakeAccountRepo(accounts ...*entity.Account) *fakeAccountRepo {
	repo := &fakeAccountRepo{accounts: map[string]*entity.Account{}}
	for _, account := range accounts {
		repo.accounts[account.Account] = account
	}

	return repo
}

func (r *fakeAccountRepo) FindByAccount(_ context.Context, account string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.accounts[account]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	return found, nil
}

func (r *fakeAccountRepo) FindByPhone(_ context.Context, phone string) (*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.accounts {
		if account.Phone == phone {
			return account, nil
		}
	}

	return nil, repository.ErrAccountNotFound
}

func (r *fakeAccountRepo) FindBelowDeviceLimit(_ context.Context, limit int) ([]*entity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var eligible []*entity.Account
	for _, account := range r.accounts {
		if account.DevicesNum < limit {
			eligible = append(eligible, account)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].DevicesNum > eligible[j].DevicesNum
	})

	return eligible, nil
}

func (r *fakeAccountRepo) Save(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.accounts[account.Account] = account
	r.saves++

	return nil
}

// fakeDeviceRepo is a map-backed repository.DeviceRepository.
type fakeDeviceRepo struct {
	mu      sync.Mutex
	devices map[string]*entity.Device
	saves   int
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devices: map[string]*entity.Device{}}
}

func (r *fakeDeviceRepo) FindByUDID(_ context.Context, udid string) (*entity.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.devices[udid]
	if !ok {
		return nil, repository.ErrDeviceNotFound
	}

	return found, nil
}

func (r *fakeDeviceRepo) FindByUDIDs(_ context.Context, udids []string) ([]*entity.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []*entity.Device
	for _, udid := range udids {
		if device, ok := r.devices[udid]; ok {
			found = append(found, device)
		}
	}

	return found, nil
}

func (r *fakeDeviceRepo) Save(_ context.Context, device *entity.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[device.UDID] = device
	r.saves++

	return nil
}

// fakeBundleRepo is a map-backed repository.BundleIDRepository.
type fakeBundleRepo struct {
	mu      sync.Mutex
	bundles map[string]*entity.BundleID
	saves   int
}

func newFakeBundleRepo() *fakeBundleRepo {
	return &fakeBundleRepo{bundles: map[string]*entity.BundleID{}}
}

func (r *fakeBundleRepo) FindBySID(_ context.Context, sid string) (*entity.BundleID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.bundles[sid]
	if !ok {
		return nil, repository.ErrBundleIDNotFound
	}

	return found, nil
}

func (r *fakeBundleRepo) Save(_ context.Context, bundleID *entity.BundleID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bundles[bundleID.SID] = bundleID
	r.saves++

	return nil
}

// fakeCertRepo is a map-backed repository.CertificateRepository.
type fakeCertRepo struct {
	mu    sync.Mutex
	certs map[string]*entity.Certificate
	saves int
}

func newFakeCertRepo(certs ...*entity.Certificate) *fakeCertRepo {
	repo := &fakeCertRepo{certs: map[string]*entity.Certificate{}}
	for _, cert := range certs {
		repo.certs[cert.SID] = cert
	}

	return repo
}

func (r *fakeCertRepo) FindUsable(_ context.Context, account, typeStr string, now time.Time) (*entity.Certificate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cert := range r.certs {
		if cert.Account == account && cert.TypeStr == typeStr && cert.Expire.After(now) {
			return cert, nil
		}
	}

	return nil, repository.ErrCertificateNotFound
}

func (r *fakeCertRepo) Save(_ context.Context, cert *entity.Certificate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.certs[cert.SID] = cert
	r.saves++

	return nil
}

// fakeProfileRepo is a map-backed repository.ProfileRepository.
type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]*entity.Profile
	saves    int
}

func newFakeProfileRepo(profiles ...*entity.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{profiles: map[string]*entity.Profile{}}
	for _, profile := range profiles {
		repo.profiles[profile.SID] = profile
	}

	return repo
}

func (r *fakeProfileRepo) FindBySID(_ context.Context, sid string) (*entity.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found, ok := r.profiles[sid]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}

	return found, nil
}

func (r *fakeProfileRepo) Save(_ context.Context, profile *entity.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.profiles[profile.SID] = profile
	r.saves++

	return nil
}

// fakeEnrollmentRepo is a map-backed repository.EnrollmentRepository.
type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments []*entity.Enrollment
}

func newFakeEnrollmentRepo(enrollments ...*entity.Enrollment) *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: enrollments}
}

func (r *fakeEnrollmentRepo) FindByUUID(_ context.Context, uuid string) (*entity.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, enrollment := range r.enrollments {
		if enrollment.UUID == uuid {
			return enrollment, nil
		}
	}

	return nil, repository.ErrEnrollmentNotFound
}

func (r *fakeEnrollmentRepo) FindByUDID(_ context.Context, udid string) ([]*entity.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []*entity.Enrollment
	for _, enrollment := range r.enrollments {
		if enrollment.UDID == udid {
			found = append(found, enrollment)
		}
	}
	if len(found) == 0 {
		return nil, repository.ErrEnrollmentNotFound
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})

	return found, nil
}

func (r *fakeEnrollmentRepo) Save(_ context.Context, enrollment *entity.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.enrollments = append(r.enrollments, enrollment)

	return nil
}

func (r *fakeEnrollmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.enrollments)
}

// fakeProjectRepo is a map-backed repository.ProjectRepository.
type fakeProjectRepo struct {
	projects map[string]*entity.Project
}

func newFakeProjectRepo(projects ...*entity.Project) *fakeProjectRepo {
	repo := &fakeProjectRepo{projects: map[string]*entity.Project{}}
	for _, project := range projects {
		repo.projects[project.Project] = project
	}

	return repo
}

func (r *fakeProjectRepo) FindByName(_ context.Context, project string) (*entity.Project, error) {
	found, ok := r.projects[project]
	if !ok {
		return nil, repository.ErrProjectNotFound
	}

	return found, nil
}

// stubPortal is a function-field service.PortalGateway; nil fields mean the
// call is unexpected and panics the test.
type stubPortal struct {
	GetUserProfileFn   func(ctx context.Context, cookie string) (string, error)
	ValidateDeviceFn   func(ctx context.Context, account *entity.Account, udid, name string) error
	AddDeviceFn        func(ctx context.Context, account *entity.Account, udid, name string) (*service.PortalDevice, error)
	ListDevicesFn      func(ctx context.Context, account *entity.Account) ([]service.PortalDevice, error)
	ListBundleIDsFn    func(ctx context.Context, account *entity.Account) ([]service.PortalBundleID, error)
	ValidateBundleIDFn func(ctx context.Context, account *entity.Account, name, identifier string) error
	RegisterBundleIDFn func(ctx context.Context, account *entity.Account, name, identifier string, capabilities []string) error
	ListCertificatesFn func(ctx context.Context, account *entity.Account) ([]service.PortalCertificate, error)
	ListProfilesFn     func(ctx context.Context, account *entity.Account) ([]service.PortalProfileSummary, error)
	GetProfileDetailFn func(ctx context.Context, account *entity.Account, profileID string) (*service.PortalProfile, error)
	DownloadProfileFn  func(ctx context.Context, account *entity.Account, profileID string) ([]byte, error)
	RegenProfileFn     func(ctx context.Context, account *entity.Account, profileID string, spec service.ProfileSpec) (*service.PortalProfile, error)
	CreateProfileFn    func(ctx context.Context, account *entity.Account, spec service.ProfileSpec) (*service.PortalProfile, error)
}

func (s *stubPortal) GetUserProfile(ctx context.Context, cookie string) (string, error) {
	return s.GetUserProfileFn(ctx, cookie)
}

func (s *stubPortal) ValidateDevice(ctx context.Context, account *entity.Account, udid, name string) error {
	return s.ValidateDeviceFn(ctx, account, udid, name)
}

func (s *stubPortal) AddDevice(ctx context.Context, account *entity.Account, udid, name string) (*service.PortalDevice, error) {
	return s.AddDeviceFn(ctx, account, udid, name)
}

func (s *stubPortal) ListDevices(ctx context.Context, account *entity.Account) ([]service.PortalDevice, error) {
	return s.ListDevicesFn(ctx, account)
}

func (s *stubPortal) ListBundleIDs(ctx context.Context, account *entity.Account) ([]service.PortalBundleID, error) {
	return s.ListBundleIDsFn(ctx, account)
}

func (s *stubPortal) ValidateBundleID(ctx context.Context, account *entity.Account, name, identifier string) error {
	return s.ValidateBundleIDFn(ctx, account, name, identifier)
}

func (s *stubPortal) RegisterBundleID(ctx context.Context, account *entity.Account, name, identifier string, capabilities []string) error {
	return s.RegisterBundleIDFn(ctx, account, name, identifier, capabilities)
}

func (s *stubPortal) ListCertificates(ctx context.Context, account *entity.Account) ([]service.PortalCertificate, error) {
	return s.ListCertificatesFn(ctx, account)
}

func (s *stubPortal) ListProfiles(ctx context.Context, account *entity.Account) ([]service.PortalProfileSummary, error) {
	return s.ListProfilesFn(ctx, account)
}

func (s *stubPortal) GetProfileDetail(ctx context.Context, account *entity.Account, profileID string) (*service.PortalProfile, error) {
	return s.GetProfileDetailFn(ctx, account, profileID)
}

func (s *stubPortal) DownloadProfile(ctx context.Context, account *entity.Account, profileID string) ([]byte, error) {
	return s.DownloadProfileFn(ctx, account, profileID)
}

func (s *stubPortal) RegenProfile(ctx context.Context, account *entity.Account, profileID string, spec service.ProfileSpec) (*service.PortalProfile, error) {
	return s.RegenProfileFn(ctx, account, profileID, spec)
}

func (s *stubPortal) CreateProfile(ctx context.Context, account *entity.Account, spec service.ProfileSpec) (*service.PortalProfile, error) {
	return s.CreateProfileFn(ctx, account, spec)
}

// stubPublisher records every published event.
type stubPublisher struct {
	mu    sync.Mutex
	tasks []*service.PackageTask
	codes []*service.SecurityCode
}

func (p *stubPublisher) PublishPackageTask(_ context.Context, task *service.PackageTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tasks = append(p.tasks, task)

	return nil
}

func (p *stubPublisher) PublishSecurityCode(_ context.Context, code *service.SecurityCode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.codes = append(p.codes, code)

	return nil
}

// stubReconciler is a function-field usecase.ReconcilerUsecase.
type stubReconciler struct {
	ReconcileFn func(ctx context.Context, account *entity.Account, project *entity.Project, udid string) error
}

func (s *stubReconciler) Reconcile(ctx context.Context, account *entity.Account, project *entity.Project, udid string) error {
	return s.ReconcileFn(ctx, account, project, udid)
}

// stubAllocator is a function-field usecase.AllocatorUsecase.
type stubAllocator struct {
	calls      int
	AllocateFn func(ctx context.Context, udid string, project *entity.Project) (*entity.Account, error)
}

func (s *stubAllocator) Allocate(ctx context.Context, udid string, project *entity.Project) (*entity.Account, error) {
	s.calls++

	return s.AllocateFn(ctx, udid, project)
}
