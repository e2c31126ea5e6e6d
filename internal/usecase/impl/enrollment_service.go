package impl

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"aspen/config"
	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/repository"
	"aspen/internal/domain/service"
	"aspen/internal/usecase"
	"aspen/internal/util"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	tokenKeyPrefix = "uuid:"
	tokenTTL       = 24 * time.Hour
	tokenAttempts  = 100
)

// udidPattern pulls the udid out of the plist a device posts back after
// installing the harvest mobileconfig.
var udidPattern = regexp.MustCompile(`<key>UDID</key>\s*<string>([0-9A-Fa-f-]+)</string>`)

type enrollmentService struct {
	cache          service.KVCache
	publisher      service.EventPublisher
	allocator      usecase.AllocatorUsecase
	projectRepo    repository.ProjectRepository
	enrollmentRepo repository.EnrollmentRepository
	accountRepo    repository.AccountRepository
	certRepo       repository.CertificateRepository
	profileRepo    repository.ProfileRepository
	cfg            *config.Config
	logger         *slog.Logger
}

// NewEnrollmentService creates a new enrollment service instance.
func NewEnrollmentService(
	cache service.KVCache,
	publisher service.EventPublisher,
	allocator usecase.AllocatorUsecase,
	projectRepo repository.ProjectRepository,
	enrollmentRepo repository.EnrollmentRepository,
	accountRepo repository.AccountRepository,
	certRepo repository.CertificateRepository,
	profileRepo repository.ProfileRepository,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.EnrollmentUsecase {
	return &enrollmentService{
		cache:          cache,
		publisher:      publisher,
		allocator:      allocator,
		projectRepo:    projectRepo,
		enrollmentRepo: enrollmentRepo,
		accountRepo:    accountRepo,
		certRepo:       certRepo,
		profileRepo:    profileRepo,
		cfg:            cfg,
		logger:         logger,
	}
}

// NewToken mints a one-time enrollment token for a provisioned project.
func (s *enrollmentService) NewToken(ctx context.Context, project string) (string, error) {
	if _, err := s.projectRepo.FindByName(ctx, project); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return "", domainerrors.ErrProjectNotFound
		}

		return "", fmt.Errorf("failed to find project: %w", err)
	}

	for range tokenAttempts {
		token := uuid.NewString()
		ok, err := s.cache.SetNX(ctx, tokenKeyPrefix+token, project, tokenTTL)
		if err != nil {
			return "", fmt.Errorf("failed to reserve token: %w", err)
		}
		if ok {
			return token, nil
		}
	}

	return "", domainerrors.ErrTokenExhausted
}

// Redeem turns a token into an enrollment.
func (s *enrollmentService) Redeem(ctx context.Context, token, udid string, payload []byte) (*usecase.RedeemResult, error) {
	projectName, ok, err := s.cache.Get(ctx, tokenKeyPrefix+token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}
	if !ok {
		return nil, domainerrors.ErrInvalidToken
	}

	if udid == "" {
		match := udidPattern.FindSubmatch(payload)
		if match == nil {
			// A device that posted garbage will not retry with the same
			// token, so burn it.
			_ = s.cache.Delete(ctx, tokenKeyPrefix+token)

			return &usecase.RedeemResult{Succ: false, Reason: "no udid in device payload"}, nil
		}
		udid = string(match[1])
	}

	project, err := s.projectRepo.FindByName(ctx, projectName)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, domainerrors.ErrProjectNotFound
		}

		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	enrollment, err := s.resolveEnrollment(ctx, token, udid, project)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, tokenKeyPrefix+token)

	if err := s.publishPackageTask(ctx, enrollment, project); err != nil {
		return nil, err
	}

	return &usecase.RedeemResult{
		Succ:        true,
		UDID:        udid,
		Account:     enrollment.Account,
		RedirectURL: s.storeURL(project.Project, enrollment.UUID),
	}, nil
}

// resolveEnrollment reuses the device's previous enrollment for the project
// when one exists; artifact URLs handed out earlier stay valid that way.
// Otherwise the allocator picks an account and a fresh record is written.
func (s *enrollmentService) resolveEnrollment(ctx context.Context, token, udid string, project *entity.Project) (*entity.Enrollment, error) {
	prior, err := s.enrollmentRepo.FindByUDID(ctx, udid)
	if err != nil && !errors.Is(err, repository.ErrEnrollmentNotFound) {
		return nil, fmt.Errorf("failed to find enrollments: %w", err)
	}
	for _, each := range prior {
		if each.Project == project.Project {
			s.logger.Info("Enrollment reused",
				slog.String("udid", udid),
				slog.String("project", project.Project),
				slog.String("account", each.Account),
			)

			return each, nil
		}
	}

	account, err := s.allocator.Allocate(ctx, udid, project)
	if err != nil {
		return nil, err
	}

	enrollment := &entity.Enrollment{
		UUID:    token,
		UDID:    udid,
		Project: project.Project,
		Account: account.Account,
	}
	if err := s.enrollmentRepo.Save(ctx, enrollment); err != nil {
		return nil, fmt.Errorf("failed to save enrollment: %w", err)
	}
	s.logger.Info("Device enrolled",
		slog.String("udid", udid),
		slog.String("project", project.Project),
		slog.String("account", account.Account),
	)

	return enrollment, nil
}

// publishPackageTask hands the enrollment to the packaging pipeline with
// everything it needs to resign and repack the ipa.
func (s *enrollmentService) publishPackageTask(ctx context.Context, enrollment *entity.Enrollment, project *entity.Project) error {
	account, err := s.accountRepo.FindByAccount(ctx, enrollment.Account)
	if err != nil {
		return fmt.Errorf("failed to find account: %w", err)
	}
	cert, err := s.certRepo.FindUsable(ctx, enrollment.Account, entity.CertTypeDevelopment, time.Now())
	if err != nil {
		return fmt.Errorf("failed to find certificate: %w", err)
	}
	profile, err := s.profileRepo.FindBySID(ctx, entity.BundleSID(enrollment.Account, enrollment.Project))
	if err != nil {
		return fmt.Errorf("failed to find profile: %w", err)
	}
	blob, err := decodeProfile(profile.Profile)
	if err != nil {
		return fmt.Errorf("failed to decode profile blob: %w", err)
	}

	task := &service.PackageTask{
		Cert:      cert.Name,
		CertP12:   cert.Name + ".p12",
		MPURL:     s.entryURL("/apple/download_mp", enrollment.UUID),
		MPMD5:     util.MD5Hex(blob),
		Project:   project.Project,
		IPAURL:    s.entryURL("/apple/download_ipa", enrollment.UUID),
		IPAMD5:    project.MD5Sum,
		IPANew:    ipaFilename(account.TeamID, profile.DevicesNum),
		UploadURL: s.uploadURL(project.Project, enrollment.Account),
		TS:        time.Now().Unix(),
	}
	if err := s.publisher.PublishPackageTask(ctx, task); err != nil {
		return fmt.Errorf("failed to publish package task: %w", err)
	}

	return nil
}

// Info returns the project's landing metadata plus a fresh token.
func (s *enrollmentService) Info(ctx context.Context, projectName string) (*usecase.ProjectInfo, error) {
	project, err := s.projectRepo.FindByName(ctx, projectName)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, domainerrors.ErrProjectNotFound
		}

		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	token, err := s.NewToken(ctx, project.Project)
	if err != nil {
		return nil, err
	}

	return &usecase.ProjectInfo{
		Project:  project.Project,
		Comments: project.CommentMap(),
		Token:    token,
	}, nil
}

func (s *enrollmentService) entryURL(path, token string) string {
	return s.cfg.Assets.EntryURL + path + "?uuid=" + url.QueryEscape(token)
}

func (s *enrollmentService) uploadURL(project, account string) string {
	query := url.Values{}
	query.Set("project", project)
	query.Set("account", account)

	return s.cfg.Assets.EntryURL + "/apple/upload_ipa?" + query.Encode()
}

func (s *enrollmentService) storeURL(project, token string) string {
	query := url.Values{}
	query.Set("project", project)
	query.Set("uuid", token)

	return s.cfg.Assets.StoreURL + "?" + query.Encode()
}

// ipaFilename names the packaged artifact after the signing team plus the
// whitelist size it was built against.
func ipaFilename(teamID string, devicesNum int) string {
	return fmt.Sprintf("%s_%d.ipa", teamID, devicesNum)
}
