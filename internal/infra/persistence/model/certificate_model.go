package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// CertificateModel is the GORM-specific struct for the 'ios_certificates'
// table.
type CertificateModel struct {
	SID       string `gorm:"type:varchar(255);primary_key"`
	Account   string `gorm:"type:varchar(255);index;not null"`
	Name      string `gorm:"type:varchar(128);not null;default:''"`
	CertReqID string `gorm:"type:varchar(64);not null"`
	CertID    string `gorm:"type:varchar(64);not null;default:''"`
	SN        string `gorm:"type:varchar(64);not null;default:''"`
	TypeStr   string `gorm:"type:varchar(32);index;not null;default:''"`
	Expire    time.Time `gorm:"index"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (CertificateModel) TableName() string {
	return "ios_certificates"
}

// FromCertificateDomain converts a domain entity to its model.
func FromCertificateDomain(cert *entity.Certificate) *CertificateModel {
	return &CertificateModel{
		SID:       cert.SID,
		Account:   cert.Account,
		Name:      cert.Name,
		CertReqID: cert.CertReqID,
		CertID:    cert.CertID,
		SN:        cert.SN,
		TypeStr:   cert.TypeStr,
		Expire:    cert.Expire,
		CreatedAt: cert.CreatedAt,
	}
}

// ToDomain converts the model to its domain entity.
func (m *CertificateModel) ToDomain() *entity.Certificate {
	return &entity.Certificate{
		SID:       m.SID,
		Account:   m.Account,
		Name:      m.Name,
		CertReqID: m.CertReqID,
		CertID:    m.CertID,
		SN:        m.SN,
		TypeStr:   m.TypeStr,
		Expire:    m.Expire,
		CreatedAt: m.CreatedAt,
	}
}
