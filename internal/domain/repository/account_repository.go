// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrAccountNotFound is returned when an account is not found.
var ErrAccountNotFound = errors.New("account not found")

// AccountRepository defines database operations for developer accounts.
type AccountRepository interface {
	// FindByAccount retrieves an account by its email.
	FindByAccount(ctx context.Context, account string) (*entity.Account, error)

	// FindByPhone retrieves the account bound to a phone number.
	FindByPhone(ctx context.Context, phone string) (*entity.Account, error)

	// FindBelowDeviceLimit retrieves accounts with spare device capacity,
	// ordered by descending device count (fullest eligible account first).
	FindBelowDeviceLimit(ctx context.Context, limit int) ([]*entity.Account, error)

	// Save creates or updates an account record keyed by its email.
	Save(ctx context.Context, account *entity.Account) error
}
