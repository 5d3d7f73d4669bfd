package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateBase представляет базовый почасовой тариф парковки для всей сети
type RateBase struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Стоимость одного часа парковки
	AmountPerHour decimal.Decimal `json:"amount_per_hour" gorm:"type:decimal(15,2);not null"`

	// Период действия тарифа
	StartDate time.Time  `json:"start_date" gorm:"not null"`
	EndDate   *time.Time `json:"end_date"` // null - бессрочный тариф

	// Статус тарифа. Инвариант: не более одного активного базового тарифа
	// в любой момент времени (обеспечивается при создании нового тарифа)
	IsActive bool `json:"is_active" gorm:"default:false;index"`

	Description string `json:"description" gorm:"type:text"`
}

// TableName задает имя таблицы для модели RateBase
func (RateBase) TableName() string {
	return "rate_bases"
}

// IsCurrentlyActive проверяет, действует ли тариф в указанный момент времени
func (r *RateBase) IsCurrentlyActive(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	if now.Before(r.StartDate) {
		return false
	}
	if r.EndDate != nil && !now.Before(*r.EndDate) {
		return false
	}
	return true
}

// RateBranch представляет переопределение почасового тарифа для конкретного филиала.
// Отсутствие записи означает, что филиал использует базовый тариф RateBase
type RateBranch struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связь с филиалом
	BranchID uint    `json:"branch_id" gorm:"not null;index"`
	Branch   *Branch `json:"branch,omitempty" gorm:"foreignKey:BranchID"`

	// Стоимость одного часа парковки в филиале
	AmountPerHour decimal.Decimal `json:"amount_per_hour" gorm:"type:decimal(15,2);not null"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	Description string `json:"description" gorm:"type:text"`
}

// TableName задает имя таблицы для модели RateBranch
func (RateBranch) TableName() string {
	return "rate_branches"
}
