package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// BundleIDModel is the GORM-specific struct for the 'ios_bundle_ids' table.
type BundleIDModel struct {
	SID        string `gorm:"type:varchar(255);primary_key"`
	Account    string `gorm:"type:varchar(255);index;not null"`
	Project    string `gorm:"type:varchar(128);not null;default:''"`
	AppIDID    string `gorm:"type:varchar(64);not null"`
	Name       string `gorm:"type:varchar(128);not null;default:''"`
	Prefix     string `gorm:"type:varchar(64);not null;default:''"`
	Identifier string `gorm:"type:varchar(255);not null;default:''"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (BundleIDModel) TableName() string {
	return "ios_bundle_ids"
}

// FromBundleIDDomain converts a domain entity to its model.
func FromBundleIDDomain(bundleID *entity.BundleID) *BundleIDModel {
	return &BundleIDModel{
		SID:        bundleID.SID,
		Account:    bundleID.Account,
		Project:    bundleID.Project,
		AppIDID:    bundleID.AppIDID,
		Name:       bundleID.Name,
		Prefix:     bundleID.Prefix,
		Identifier: bundleID.Identifier,
		CreatedAt:  bundleID.CreatedAt,
	}
}

// ToDomain converts the model to its domain entity.
func (m *BundleIDModel) ToDomain() *entity.BundleID {
	return &entity.BundleID{
		SID:        m.SID,
		Account:    m.Account,
		Project:    m.Project,
		AppIDID:    m.AppIDID,
		Name:       m.Name,
		Prefix:     m.Prefix,
		Identifier: m.Identifier,
		CreatedAt:  m.CreatedAt,
	}
}
