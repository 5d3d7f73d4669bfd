package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы заявки на смену номерного знака
const (
	PlateChangeStatusPending  = "pending"
	PlateChangeStatusApproved = "approved"
	PlateChangeStatusRejected = "rejected"
)

// ChargeReason представляет закрытый набор кодов причин административного сбора.
// Закрытое перечисление вместо свободных строк: отсутствующая конфигурация
// обнаруживается по известному коду, а не по опечатке
type ChargeReason string

const (
	// ChargeReasonNoCharge - сбор не начисляется
	ChargeReasonNoCharge ChargeReason = "NO_CHARGE"
	// ChargeReasonFirstChange6To12Months - первая повторная смена через 6-12 месяцев
	ChargeReasonFirstChange6To12Months ChargeReason = "FIRST_CHANGE_6_TO_12_MONTHS"
	// ChargeReasonSecondChangeYear - вторая и последующие смены в течение года
	ChargeReasonSecondChangeYear ChargeReason = "SECOND_CHANGE_YEAR"
	// ChargeReasonRepeatedRequests - сбор за обработку при множестве отклоненных заявок
	ChargeReasonRepeatedRequests ChargeReason = "REPEATED_REQUESTS"
	// ChargeReasonCombined - синтетический код для суммы нескольких сборов
	ChargeReasonCombined ChargeReason = "COMBINED_CHARGES"
)

// PlateChangeReason представляет причину смены номерного знака (справочник)
type PlateChangeReason struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Name        string `json:"name" gorm:"uniqueIndex;not null;type:varchar(100)"` // sold, stolen, damaged...
	Description string `json:"description" gorm:"type:text"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели PlateChangeReason
func (PlateChangeReason) TableName() string {
	return "plate_change_reasons"
}

// PlateChangeRequest представляет заявку на смену номерного знака абонемента.
// Рассматривается ровно один раз: pending -> approved | rejected
type PlateChangeRequest struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	SubscriptionID uint               `json:"subscription_id" gorm:"not null;index"`
	Subscription   *Subscription      `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`
	ReasonID       uint               `json:"reason_id" gorm:"not null"`
	Reason         *PlateChangeReason `json:"reason,omitempty" gorm:"foreignKey:ReasonID"`

	// Старый и новый номерные знаки
	OldLicensePlate string `json:"old_license_plate" gorm:"not null;type:varchar(20)"`
	NewLicensePlate string `json:"new_license_plate" gorm:"not null;type:varchar(20)"`

	// Статус и результат рассмотрения
	Status     string     `json:"status" gorm:"default:'pending';type:varchar(20);index"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	ReviewedBy *uint      `json:"reviewed_by"`
	ReviewNote string     `json:"review_note" gorm:"type:text"`

	// Административный сбор, рассчитанный при создании заявки
	HasAdministrativeCharge       bool            `json:"has_administrative_charge" gorm:"default:false"`
	AdministrativeChargeAmount    decimal.Decimal `json:"administrative_charge_amount" gorm:"type:decimal(15,2);default:0"`
	AdministrativeChargeReason    string          `json:"administrative_charge_reason" gorm:"type:text"`
	AdministrativeChargeReasonKey string          `json:"administrative_charge_reason_key" gorm:"type:varchar(50)"`
}

// TableName задает имя таблицы для модели PlateChangeRequest
func (PlateChangeRequest) TableName() string {
	return "plate_change_requests"
}

// IsPending проверяет, ожидает ли заявка рассмотрения
func (r *PlateChangeRequest) IsPending() bool {
	return r.Status == PlateChangeStatusPending
}

// AdministrativeChargeConfig представляет конфигурацию административного сбора
// для одного кода причины (статический справочник)
type AdministrativeChargeConfig struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	ReasonCode   ChargeReason    `json:"reason_code" gorm:"uniqueIndex;not null;type:varchar(50)"`
	ChargeAmount decimal.Decimal `json:"charge_amount" gorm:"type:decimal(15,2);not null"`
	Description  string          `json:"description" gorm:"type:text"`
	IsActive     bool            `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели AdministrativeChargeConfig
func (AdministrativeChargeConfig) TableName() string {
	return "administrative_charge_configs"
}

// AdministrativeCharge представляет рассчитанный административный сбор
// (объект-значение, отдельно не хранится)
type AdministrativeCharge struct {
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	ReasonCode ChargeReason    `json:"reason_code"`
}

// NoCharge возвращает канонический нулевой сбор
func NoCharge() AdministrativeCharge {
	return AdministrativeCharge{
		Amount:     decimal.Zero,
		Reason:     "",
		ReasonCode: ChargeReasonNoCharge,
	}
}

// HasCharge проверяет, начислен ли сбор
func (c AdministrativeCharge) HasCharge() bool {
	return c.Amount.GreaterThan(decimal.Zero)
}

// Combine объединяет два сбора: если один из них нулевой, возвращается другой,
// иначе суммы складываются, а причины объединяются под синтетическим кодом
func (c AdministrativeCharge) Combine(other AdministrativeCharge) AdministrativeCharge {
	if !c.HasCharge() {
		return other
	}
	if !other.HasCharge() {
		return c
	}
	return AdministrativeCharge{
		Amount:     c.Amount.Add(other.Amount),
		Reason:     fmt.Sprintf("%s; %s", c.Reason, other.Reason),
		ReasonCode: ChargeReasonCombined,
	}
}
