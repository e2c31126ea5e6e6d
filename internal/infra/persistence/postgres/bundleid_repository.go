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

// bundleIDRepository implements the repository.BundleIDRepository interface.
type bundleIDRepository struct {
	db *gorm.DB
}

// NewBundleIDRepository is the constructor for bundleIDRepository.
func NewBundleIDRepository(db *gorm.DB) repository.BundleIDRepository {
	return &bundleIDRepository{
		db: db,
	}
}

// FindBySID retrieves the bundle id for an (account, project) pair.
func (repo *bundleIDRepository) FindBySID(ctx context.Context, sid string) (*entity.BundleID, error) {
	var bundleM model.BundleIDModel

	if err := repo.db.WithContext(ctx).
		Where("sid = ?", sid).
		First(&bundleM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrBundleIDNotFound
		}

		return nil, errors.Wrap(err, "failed to find bundle id")
	}

	return bundleM.ToDomain(), nil
}

// Save creates or updates a bundle id record keyed by sid.
func (repo *bundleIDRepository) Save(ctx context.Context, bundleID *entity.BundleID) error {
	bundleM := model.FromBundleIDDomain(bundleID)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sid"}},
			UpdateAll: true,
		}).
		Create(bundleM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to save bundle id")
	}

	bundleID.CreatedAt = bundleM.CreatedAt

	return nil
}
