package model

import (
	"time"

	"aspen/internal/domain/entity"
)

// AccountModel is the GORM-specific struct for the 'ios_accounts' table.
// It mirrors one developer-portal account and its captured session.
type AccountModel struct {
	Account    string `gorm:"type:varchar(255);primary_key"`
	TeamID     string `gorm:"type:varchar(64);not null;default:''"`
	Phone      string `gorm:"type:varchar(32);index;not null;default:''"`
	Cookie     string `gorm:"type:text"`
	Headers    string `gorm:"type:text"`
	Devices    string `gorm:"type:text"`
	DevicesNum int    `gorm:"not null;default:0;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "ios_accounts"
}

// FromAccountDomain converts a domain entity to its model.
func FromAccountDomain(account *entity.Account) *AccountModel {
	return &AccountModel{
		Account:    account.Account,
		TeamID:     account.TeamID,
		Phone:      account.Phone,
		Cookie:     account.Cookie,
		Headers:    account.Headers,
		Devices:    account.Devices,
		DevicesNum: account.DevicesNum,
		CreatedAt:  account.CreatedAt,
		UpdatedAt:  account.UpdatedAt,
	}
}

// ToDomain converts the model to its domain entity.
func (m *AccountModel) ToDomain() *entity.Account {
	return &entity.Account{
		Account:    m.Account,
		TeamID:     m.TeamID,
		Phone:      m.Phone,
		Cookie:     m.Cookie,
		Headers:    m.Headers,
		Devices:    m.Devices,
		DevicesNum: m.DevicesNum,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
