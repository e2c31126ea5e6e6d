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

// deviceRepository implements the repository.DeviceRepository interface.
type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository is the constructor for deviceRepository.
func NewDeviceRepository(db *gorm.DB) repository.DeviceRepository {
	return &deviceRepository{
		db: db,
	}
}

// FindByUDID retrieves a device by its hardware identifier.
func (repo *deviceRepository) FindByUDID(ctx context.Context, udid string) (*entity.Device, error) {
	var deviceM model.DeviceModel

	if err := repo.db.WithContext(ctx).
		Where("udid = ?", udid).
		First(&deviceM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrDeviceNotFound
		}

		return nil, errors.Wrap(err, "failed to find device by udid")
	}

	return deviceM.ToDomain(), nil
}

// FindByUDIDs retrieves the devices present among the given identifiers.
func (repo *deviceRepository) FindByUDIDs(ctx context.Context, udids []string) ([]*entity.Device, error) {
	if len(udids) == 0 {
		return nil, nil
	}

	var deviceModels []*model.DeviceModel

	if err := repo.db.WithContext(ctx).
		Where("udid IN ?", udids).
		Find(&deviceModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find devices by udids")
	}

	devices := make([]*entity.Device, 0, len(deviceModels))
	for _, deviceM := range deviceModels {
		devices = append(devices, deviceM.ToDomain())
	}

	return devices, nil
}

// Save creates or updates a device record keyed by udid.
func (repo *deviceRepository) Save(ctx context.Context, device *entity.Device) error {
	deviceM := model.FromDeviceDomain(device)

	if err := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "udid"}},
			UpdateAll: true,
		}).
		Create(deviceM).Error; err != nil {
		if isNotNullConstraintViolation(err) {
			return domainerrors.NewDatabaseExecuteError(err, "missing required device fields")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to save device")
	}

	device.CreatedAt = deviceM.CreatedAt

	return nil
}
