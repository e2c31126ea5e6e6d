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

// enrollmentRepository implements the repository.EnrollmentRepository interface.
type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository is the constructor for enrollmentRepository.
func NewEnrollmentRepository(db *gorm.DB) repository.EnrollmentRepository {
	return &enrollmentRepository{
		db: db,
	}
}

// FindByUUID retrieves an enrollment by its token.
func (repo *enrollmentRepository) FindByUUID(ctx context.Context, uuid string) (*entity.Enrollment, error) {
	var enrollmentM model.EnrollmentModel

	if err := repo.db.WithContext(ctx).
		Where("uuid = ?", uuid).
		First(&enrollmentM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrEnrollmentNotFound
		}

		return nil, errors.Wrap(err, "failed to find enrollment by uuid")
	}

	return enrollmentM.ToDomain(), nil
}

// FindByUDID retrieves all enrollments for a device, newest first.
func (repo *enrollmentRepository) FindByUDID(ctx context.Context, udid string) ([]*entity.Enrollment, error) {
	var enrollmentModels []*model.EnrollmentModel

	if err := repo.db.WithContext(ctx).
		Where("udid = ?", udid).
		Order("created_at DESC").
		Find(&enrollmentModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find enrollments by udid")
	}

	enrollments := make([]*entity.Enrollment, 0, len(enrollmentModels))
	for _, enrollmentM := range enrollmentModels {
		enrollments = append(enrollments, enrollmentM.ToDomain())
	}

	return enrollments, nil
}

// Save creates or updates an enrollment record keyed by uuid.
func (repo *enrollmentRepository) Save(ctx context.Context, enrollment *entity.Enrollment) error {
	enrollmentM := model.FromEnrollmentDomain(enrollment)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uuid"}},
			UpdateAll: true,
		}).
		Create(enrollmentM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to save enrollment")
	}

	enrollment.CreatedAt = enrollmentM.CreatedAt

	return nil
}
