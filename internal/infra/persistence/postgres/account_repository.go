// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"

	"aspen/internal/domain/entity"
	domainerrors "aspen/internal/domain/errors"
	"aspen/internal/domain/repository"
	"aspen/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements the repository.AccountRepository interface.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{
		db: db,
	}
}

// FindByAccount retrieves an account by its email.
func (repo *accountRepository) FindByAccount(ctx context.Context, account string) (*entity.Account, error) {
	var accountM model.AccountModel

	if err := repo.db.WithContext(ctx).
		Where("account = ?", account).
		First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	return accountM.ToDomain(), nil
}

// FindByPhone retrieves the account bound to a phone number.
func (repo *accountRepository) FindByPhone(ctx context.Context, phone string) (*entity.Account, error) {
	var accountM model.AccountModel

	if err := repo.db.WithContext(ctx).
		Where("phone = ?", phone).
		First(&accountM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account by phone")
	}

	return accountM.ToDomain(), nil
}

// FindBelowDeviceLimit retrieves accounts with spare device capacity,
// fullest eligible account first so spare accounts stay empty for bursts.
func (repo *accountRepository) FindBelowDeviceLimit(ctx context.Context, limit int) ([]*entity.Account, error) {
	var accountModels []*model.AccountModel

	if err := repo.db.WithContext(ctx).
		Where("devices_num < ?", limit).
		Order("devices_num DESC").
		Find(&accountModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find accounts below device limit")
	}

	accounts := make([]*entity.Account, 0, len(accountModels))
	for _, accountM := range accountModels {
		accounts = append(accounts, accountM.ToDomain())
	}

	return accounts, nil
}

// Save creates or updates an account record keyed by its email.
func (repo *accountRepository) Save(ctx context.Context, account *entity.Account) error {
	accountM := model.FromAccountDomain(account)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account"}},
			UpdateAll: true,
		}).
		Create(accountM).Error; err != nil {
		if isNotNullConstraintViolation(err) {
			return domainerrors.NewDatabaseExecuteError(err, "missing required account fields")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to save account")
	}

	account.CreatedAt = accountM.CreatedAt
	account.UpdatedAt = accountM.UpdatedAt

	return nil
}
