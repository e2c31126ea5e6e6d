package usecase

import (
	"context"

	"aspen/internal/domain/entity"
)

// AllocatorUsecase picks the developer account that will host a new device
// enrollment. Eligible accounts are tried fullest-first so the pool drains
// one account at a time; the first account whose reconciliation succeeds
// wins.
type AllocatorUsecase interface {
	// Allocate binds udid to an account able to serve project, running the
	// full reconciliation against each candidate until one succeeds.
	Allocate(ctx context.Context, udid string, project *entity.Project) (*entity.Account, error)
}
