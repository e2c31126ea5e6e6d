package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// EnrollmentModel is the GORM-specific struct for the 'ios_enrollments'
// table.
type EnrollmentModel struct {
	UUID      string `gorm:"type:varchar(64);primary_key"`
	UDID      string `gorm:"type:varchar(64);index;not null"`
	Project   string `gorm:"type:varchar(128);not null"`
	Account   string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (EnrollmentModel) TableName() string {
	return "ios_enrollments"
}

// FromEnrollmentDomain converts a domain entity to its model.
func FromEnrollmentDomain(enrollment *entity.Enrollment) *EnrollmentModel {
	return &EnrollmentModel{
		UUID:      enrollment.UUID,
		UDID:      enrollment.UDID,
		Project:   enrollment.Project,
		Account:   enrollment.Account,
		CreatedAt: enrollment.CreatedAt,
	}
}

// ToDomain converts the model to its domain entity.
func (m *EnrollmentModel) ToDomain() *entity.Enrollment {
	return &entity.Enrollment{
		UUID:      m.UUID,
		UDID:      m.UDID,
		Project:   m.Project,
		Account:   m.Account,
		CreatedAt: m.CreatedAt,
	}
}
