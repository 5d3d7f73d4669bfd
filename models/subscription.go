package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Статусы абонемента
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusCancelled = "cancelled"
)

// SubscriptionPlan представляет тарифный план абонемента (неизменяемый справочник)
type SubscriptionPlan struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля плана
	Name        string `json:"name" gorm:"uniqueIndex;not null;type:varchar(100)"`
	Description string `json:"description" gorm:"type:text"`

	// Включенные часы парковки в месяц
	MonthlyHours decimal.Decimal `json:"monthly_hours" gorm:"type:decimal(10,2);not null"`

	// Базовая стоимость месяца и скидки
	Price                              decimal.Decimal `json:"price" gorm:"type:decimal(15,2);not null"`
	MonthlyDiscountPercentage          decimal.Decimal `json:"monthly_discount_percentage" gorm:"type:decimal(5,2);default:0"`
	AnnualAdditionalDiscountPercentage decimal.Decimal `json:"annual_additional_discount_percentage" gorm:"type:decimal(5,2);default:0"`

	IsActive bool `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели SubscriptionPlan
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Subscription представляет абонемент на парковку для одного номерного знака.
// При продлении не мутируется, а замещается новой записью
type Subscription struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	PlanID uint              `json:"plan_id" gorm:"not null"`
	Plan   *SubscriptionPlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	UserID uint              `json:"user_id" gorm:"not null;index"`
	User   *User             `json:"user,omitempty" gorm:"foreignKey:UserID"`

	// Номерной знак, на который оформлен абонемент
	LicensePlate string `json:"license_plate" gorm:"not null;index;type:varchar(20)"`

	// Снимок базового тарифа на момент покупки. Неизменяем, используется
	// для тарификации перерасхода независимо от последующих изменений тарифов
	FrozenRateBase decimal.Decimal `json:"frozen_rate_base" gorm:"type:decimal(15,2);not null"`

	// Период действия абонемента
	StartDate time.Time `json:"start_date" gorm:"not null"`
	EndDate   time.Time `json:"end_date" gorm:"not null;index"`

	// Потребленные часы в текущем расчетном цикле.
	// Монотонно неубывающие внутри цикла, сбрасываются ежемесячной задачей
	ConsumedHours decimal.Decimal `json:"consumed_hours" gorm:"type:decimal(10,2);default:0"`

	// Флаги одноразовых уведомлений о порогах потребления. Хранятся в БД и
	// обновляются в той же транзакции, что и ConsumedHours, поэтому гарантия
	// "не более одного уведомления на порог за цикл" переживает перезапуск
	Notified80Percent  bool `json:"notified_80_percent" gorm:"column:notified_80_percent;default:false"`
	Notified100Percent bool `json:"notified_100_percent" gorm:"column:notified_100_percent;default:false"`

	// Годовой абонемент и автопродление
	IsAnnual         bool `json:"is_annual" gorm:"default:false"`
	AutoRenewEnabled bool `json:"auto_renew_enabled" gorm:"default:false;index"`

	// Итоговая стоимость с учетом скидок
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(15,2);not null"`

	Status string `json:"status" gorm:"default:'active';type:varchar(20);index"`
}

// TableName задает имя таблицы для модели Subscription
func (Subscription) TableName() string {
	return "subscriptions"
}

// IsActiveAt проверяет, действует ли абонемент в указанный момент времени
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		!now.Before(s.StartDate) && now.Before(s.EndDate)
}

// RemainingHours возвращает остаток включенных часов в текущем цикле (не меньше нуля)
func (s *Subscription) RemainingHours(plan *SubscriptionPlan) decimal.Decimal {
	remaining := plan.MonthlyHours.Sub(s.ConsumedHours)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ConsumptionPercentage возвращает процент потребления включенных часов
func (s *Subscription) ConsumptionPercentage(plan *SubscriptionPlan) decimal.Decimal {
	if plan.MonthlyHours.IsZero() {
		return decimal.Zero
	}
	return s.ConsumedHours.Div(plan.MonthlyHours).Mul(decimal.NewFromInt(100))
}

// SubscriptionUsage представляет потребление часов абонемента одним талоном.
// Таблица только для добавления (аудиторский след)
type SubscriptionUsage struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	SubscriptionID uint    `json:"subscription_id" gorm:"not null;index"`
	TicketID       uint    `json:"ticket_id" gorm:"not null;index"`
	Ticket         *Ticket `json:"ticket,omitempty" gorm:"foreignKey:TicketID"`

	// Интервал визита и списанные часы
	EntryTime     time.Time       `json:"entry_time" gorm:"not null"`
	ExitTime      time.Time       `json:"exit_time" gorm:"not null"`
	HoursConsumed decimal.Decimal `json:"hours_consumed" gorm:"type:decimal(10,2);not null"`
}

// TableName задает имя таблицы для модели SubscriptionUsage
func (SubscriptionUsage) TableName() string {
	return "subscription_usages"
}

// SubscriptionOverage представляет перерасход часов абонемента одним талоном
// сверх месячного лимита. Таблица только для добавления
type SubscriptionOverage struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	SubscriptionID uint `json:"subscription_id" gorm:"not null;index"`
	TicketID       uint `json:"ticket_id" gorm:"not null;index"`

	// Часы сверх лимита и их тарификация по замороженному тарифу
	OverageHours  decimal.Decimal `json:"overage_hours" gorm:"type:decimal(10,2);not null"`
	AppliedRate   decimal.Decimal `json:"applied_rate" gorm:"type:decimal(15,2);not null"`
	ChargedAmount decimal.Decimal `json:"charged_amount" gorm:"type:decimal(15,2);not null"`
}

// TableName задает имя таблицы для модели SubscriptionOverage
func (SubscriptionOverage) TableName() string {
	return "subscription_overages"
}
