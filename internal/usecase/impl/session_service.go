package impl

import (
	"context"
	"fmt"
	"log/slog"

	"aspen/internal/domain/entity"
	"aspen/internal/domain/repository"
	"aspen/internal/domain/service"
	"aspen/internal/infra/capture"
	"aspen/internal/usecase"

	"github.com/pkg/errors"
)

type sessionService struct {
	portal      service.PortalGateway
	accountRepo repository.AccountRepository
	logger      *slog.Logger
}

// NewSessionService creates a new session service instance.
func NewSessionService(
	portal service.PortalGateway,
	accountRepo repository.AccountRepository,
	logger *slog.Logger,
) usecase.SessionUsecase {
	return &sessionService{
		portal:      portal,
		accountRepo: accountRepo,
		logger:      logger,
	}
}

// LoginByFastlane installs a session from a fastlane session export.
func (s *sessionService) LoginByFastlane(ctx context.Context, transcript string) (*usecase.SessionResult, error) {
	parsed, err := capture.ParseFastlane(transcript)
	if err != nil {
		return &usecase.SessionResult{Succ: false, Reason: err.Error()}, nil
	}

	return s.install(ctx, parsed)
}

// LoginByCurl installs a session from a browser-exported curl command.
func (s *sessionService) LoginByCurl(ctx context.Context, transcript string) (*usecase.SessionResult, error) {
	parsed, err := capture.ParseCurl(transcript)
	if err != nil {
		return &usecase.SessionResult{Succ: false, Reason: err.Error()}, nil
	}

	return s.install(ctx, parsed)
}

// install probes the captured session for its owning account and persists
// the material on that account. Probe failures are a structured result;
// pasted transcripts go stale all the time and that is not a server error.
func (s *sessionService) install(ctx context.Context, parsed *capture.Capture) (*usecase.SessionResult, error) {
	email, err := s.portal.GetUserProfile(ctx, parsed.CookieHeader())
	if err != nil {
		s.logger.Warn("Session probe rejected", slog.Any("error", err))

		return &usecase.SessionResult{Succ: false, Reason: "session rejected by the portal"}, nil
	}

	account, err := s.accountRepo.FindByAccount(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrAccountNotFound) {
			return nil, fmt.Errorf("failed to find account: %w", err)
		}
		account = &entity.Account{Account: email}
	}

	account.Cookie = parsed.CookieJSON()
	account.Headers = parsed.HeaderJSON()
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to save account: %w", err)
	}

	s.logger.Info("Session installed",
		slog.String("account", email),
		slog.Int("cookies", len(parsed.Cookies)),
	)

	return &usecase.SessionResult{Succ: true, Account: email}, nil
}
