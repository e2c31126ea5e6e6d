package impl

import (
	"context"
	"fmt"
	"log/slog"

	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/repository"
	"aspen/internal/usecase"
)

type allocatorService struct {
	accountRepo repository.AccountRepository
	reconciler  usecase.ReconcilerUsecase
	logger      *slog.Logger
}

// NewAllocatorService creates a new allocator service instance.
func NewAllocatorService(
	accountRepo repository.AccountRepository,
	reconciler usecase.ReconcilerUsecase,
	logger *slog.Logger,
) usecase.AllocatorUsecase {
	return &allocatorService{
		accountRepo: accountRepo,
		reconciler:  reconciler,
		logger:      logger,
	}
}

// Allocate tries eligible accounts fullest-first and returns the first one
// whose reconciliation succeeds. An empty pool is capacity exhaustion; a
// pool where every attempt failed surfaces the last failure.
func (s *allocatorService) Allocate(ctx context.Context, udid string, project *entity.Project) (*entity.Account, error) {
	candidates, err := s.accountRepo.FindBelowDeviceLimit(ctx, entity.DeviceLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find eligible accounts: %w", err)
	}
	if len(candidates) == 0 {
		return nil, domainerrors.ErrCapacityExhausted
	}

	var lastErr error
	for attempt, account := range candidates {
		s.logger.Info("Allocation attempt",
			slog.Int("attempt", attempt+1),
			slog.String("account", account.Account),
			slog.Int("devices_num", account.DevicesNum),
			slog.String("udid", udid),
			slog.String("project", project.Project),
		)
		if err := s.reconciler.Reconcile(ctx, account, project, udid); err != nil {
			lastErr = err

			continue
		}

		return account, nil
	}

	return nil, fmt.Errorf("every eligible account failed reconciliation: %w", lastErr)
}
