package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// ProfileModel is the GORM-specific struct for the 'ios_profiles' table.
// Profile holds the base64 mobileprovision blob, which comfortably exceeds
// varchar bounds.
type ProfileModel struct {
	SID        string `gorm:"type:varchar(255);primary_key"`
	Account    string `gorm:"type:varchar(255);index;not null"`
	Project    string `gorm:"type:varchar(128);not null;default:''"`
	ProfileID  string `gorm:"type:varchar(64);not null;default:''"`
	Profile    string `gorm:"type:text"`
	Devices    string `gorm:"type:text"`
	DevicesNum int    `gorm:"not null;default:0"`
	Expire     time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (ProfileModel) TableName() string {
	return "ios_profiles"
}

// FromProfileDomain converts a domain entity to its model.
func FromProfileDomain(profile *entity.Profile) *ProfileModel {
	return &ProfileModel{
		SID:        profile.SID,
		Account:    profile.Account,
		Project:    profile.Project,
		ProfileID:  profile.ProfileID,
		Profile:    profile.Profile,
		Devices:    profile.Devices,
		DevicesNum: profile.DevicesNum,
		Expire:     profile.Expire,
		CreatedAt:  profile.CreatedAt,
		UpdatedAt:  profile.UpdatedAt,
	}
}

// ToDomain converts the model to its domain entity.
func (m *ProfileModel) ToDomain() *entity.Profile {
	return &entity.Profile{
		SID:        m.SID,
		Account:    m.Account,
		Project:    m.Project,
		ProfileID:  m.ProfileID,
		Profile:    m.Profile,
		Devices:    m.Devices,
		DevicesNum: m.DevicesNum,
		Expire:     m.Expire,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
