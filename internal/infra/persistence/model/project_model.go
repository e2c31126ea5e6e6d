package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// ProjectModel is the GORM-specific struct for the 'ios_projects' table.
type ProjectModel struct {
	Project      string `gorm:"type:varchar(128);primary_key"`
	BundlePrefix string `gorm:"type:varchar(128);not null;default:''"`
	Capability   string `gorm:"type:text"`
	MD5Sum       string `gorm:"type:varchar(32);not null;default:''"`
	Comments     string `gorm:"type:text"`
	CreatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (ProjectModel) TableName() string {
	return "ios_projects"
}

// ToDomain converts the model to its domain entity.
func (m *ProjectModel) ToDomain() *entity.Project {
	return &entity.Project{
		Project:      m.Project,
		BundlePrefix: m.BundlePrefix,
		Capability:   m.Capability,
		MD5Sum:       m.MD5Sum,
		Comments:     m.Comments,
		CreatedAt:    m.CreatedAt,
	}
}
