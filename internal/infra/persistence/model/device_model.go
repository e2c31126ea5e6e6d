package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// DeviceModel is the GORM-specific struct for the 'ios_devices' table.
type DeviceModel struct {
	UDID      string `gorm:"type:varchar(64);primary_key"`
	DeviceID  string `gorm:"type:varchar(64);not null"`
	Model     string `gorm:"type:varchar(128);not null;default:''"`
	SN        string `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (DeviceModel) TableName() string {
	return "ios_devices"
}

// FromDeviceDomain converts a domain entity to its model.
func FromDeviceDomain(device *entity.Device) *DeviceModel {
	return &DeviceModel{
		UDID:      device.UDID,
		DeviceID:  device.DeviceID,
		Model:     device.Model,
		SN:        device.SN,
		CreatedAt: device.CreatedAt,
	}
}

// ToDomain converts the model to its domain entity.
func (m *DeviceModel) ToDomain() *entity.Device {
	return &entity.Device{
		UDID:      m.UDID,
		DeviceID:  m.DeviceID,
		Model:     m.Model,
		SN:        m.SN,
		CreatedAt: m.CreatedAt,
	}
}
