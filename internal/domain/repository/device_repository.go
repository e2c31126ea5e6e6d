package repository

import (
	"context"

	"aspen/internal/domain/entity"

	"github.com/pkg/errors"
)

// ErrDeviceNotFound is returned when a device is not found.
var ErrDeviceNotFound = errors.New("device not found")

// DeviceRepository defines database operations for registered devices.
type DeviceRepository interface {
	// FindByUDID retrieves a device by its hardware identifier.
	FindByUDID(ctx context.Context, udid string) (*entity.Device, error)

	// FindByUDIDs retrieves the devices present among the given identifiers.
	// Missing udids are simply absent from the result.
	FindByUDIDs(ctx context.Context, udids []string) ([]*entity.Device, error)

	// Save creates or updates a device record keyed by udid.
	Save(ctx context.Context, device *entity.Device) error
}
