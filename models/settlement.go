package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BusinessFreeHours представляет подарок бесплатных часов от аффилированной
// коммерции по конкретному талону. Флаг IsSettled переводится в true ровно
// один раз при включении подарка в расчет (Settlement)
type BusinessFreeHours struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	TicketID   uint      `json:"ticket_id" gorm:"not null;index"`
	Ticket     *Ticket   `json:"ticket,omitempty" gorm:"foreignKey:TicketID"`
	BusinessID uint      `json:"business_id" gorm:"not null;index:idx_free_hours_business_branch"`
	Business   *Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	BranchID   uint      `json:"branch_id" gorm:"not null;index:idx_free_hours_business_branch"`

	// Подаренные часы и момент подарка
	GrantedHours decimal.Decimal `json:"granted_hours" gorm:"type:decimal(10,2);not null"`
	GrantedAt    time.Time       `json:"granted_at" gorm:"not null;index"`

	// Включен ли подарок в расчет. Переход только false -> true
	IsSettled bool `json:"is_settled" gorm:"default:false;index"`
}

// TableName задает имя таблицы для модели BusinessFreeHours
func (BusinessFreeHours) TableName() string {
	return "business_free_hours"
}

// BusinessSettlementHistory представляет расчет с аффилированной коммерцией
// за период [PeriodStart, PeriodEnd). Неизменяем после создания
type BusinessSettlementHistory struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связи
	BusinessID uint      `json:"business_id" gorm:"not null;index"`
	Business   *Business `json:"business,omitempty" gorm:"foreignKey:BusinessID"`
	BranchID   uint      `json:"branch_id" gorm:"not null;index"`
	Branch     *Branch   `json:"branch,omitempty" gorm:"foreignKey:BranchID"`

	// Период расчета
	PeriodStart time.Time `json:"period_start" gorm:"not null"`
	PeriodEnd   time.Time `json:"period_end" gorm:"not null"`

	// Агрегаты по включенным подаркам
	TotalHours  decimal.Decimal `json:"total_hours" gorm:"type:decimal(10,2);not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(15,2);not null"`
	TicketCount int             `json:"ticket_count" gorm:"not null"`

	Observations string `json:"observations" gorm:"type:text"`

	// Детализация по талонам
	Details []SettlementTicketDetail `json:"details,omitempty" gorm:"foreignKey:SettlementID"`
}

// TableName задает имя таблицы для модели BusinessSettlementHistory
func (BusinessSettlementHistory) TableName() string {
	return "business_settlement_histories"
}

// SettlementTicketDetail представляет одну строку детализации расчета:
// вклад одного талона в итоговые часы
type SettlementTicketDetail struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Связь с расчетом
	SettlementID uint `json:"settlement_id" gorm:"not null;index"`
	TicketID     uint `json:"ticket_id" gorm:"not null"`

	// Снимок данных талона на момент расчета
	Folio        string          `json:"folio" gorm:"not null;type:varchar(50)"`
	LicensePlate string          `json:"license_plate" gorm:"not null;type:varchar(20)"`
	Hours        decimal.Decimal `json:"hours" gorm:"type:decimal(10,2);not null"`
}

// TableName задает имя таблицы для модели SettlementTicketDetail
func (SettlementTicketDetail) TableName() string {
	return "settlement_ticket_details"
}
