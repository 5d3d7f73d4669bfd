package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Branch представляет филиал (парковку) в сети парковок
type Branch struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля филиала
	Name     string `json:"name" gorm:"not null;type:varchar(200)"`
	Address  string `json:"address" gorm:"type:text"`
	Capacity int    `json:"capacity" gorm:"default:0"` // Количество парковочных мест

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели Branch
func (Branch) TableName() string {
	return "branches"
}

// Business представляет аффилированную коммерцию (магазин, ресторан и т.д.),
// которая дарит своим клиентам бесплатные часы парковки
type Business struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля коммерции
	Name         string `json:"name" gorm:"not null;type:varchar(200)"`
	TaxID        string `json:"tax_id" gorm:"type:varchar(50)"`
	ContactName  string `json:"contact_name" gorm:"type:varchar(200)"`
	ContactEmail string `json:"contact_email" gorm:"type:varchar(200)"`

	// Тариф, по которому коммерция оплачивает подаренные часы при расчете
	RatePerHour decimal.Decimal `json:"rate_per_hour" gorm:"type:decimal(15,2);not null"`

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели Business
func (Business) TableName() string {
	return "businesses"
}

// BusinessBranchAffiliation представляет аффилиацию коммерции с филиалом.
// Коммерция может дарить бесплатные часы только в филиалах, с которыми аффилирована
type BusinessBranchAffiliation struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	BusinessID uint      `json:"business_id" gorm:"not null;index:idx_affiliation_business_branch"`
	Business   *Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	BranchID   uint      `json:"branch_id" gorm:"not null;index:idx_affiliation_business_branch"`
	Branch     *Branch   `json:"branch,omitempty" gorm:"foreignKey:BranchID"`

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели BusinessBranchAffiliation
func (BusinessBranchAffiliation) TableName() string {
	return "business_branch_affiliations"
}
