package models

import (
	"time"

	"gorm.io/gorm"
)

// Статусы парковочного талона
const (
	TicketStatusInProgress = "in_progress" // Автомобиль на парковке
	TicketStatusCompleted  = "completed"   // Выезд оформлен, терминальный статус
	TicketStatusLost       = "lost"        // Талон заявлен утерянным, терминальный статус
)

// VehicleType представляет тип транспортного средства (справочник)
type VehicleType struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	Name        string `json:"name" gorm:"uniqueIndex;not null;type:varchar(50)"` // car, motorcycle, truck
	Description string `json:"description" gorm:"type:text"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// TableName задает имя таблицы для модели VehicleType
func (VehicleType) TableName() string {
	return "vehicle_types"
}

// Ticket представляет парковочный талон: один въезд и один выезд автомобиля
type Ticket struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Уникальный человекочитаемый номер талона
	Folio string `json:"folio" gorm:"uniqueIndex;not null;type:varchar(50)"`

	// Основные поля талона
	LicensePlate  string       `json:"license_plate" gorm:"not null;index;type:varchar(20)"`
	VehicleTypeID uint         `json:"vehicle_type_id" gorm:"not null"`
	VehicleType   *VehicleType `json:"vehicle_type,omitempty" gorm:"foreignKey:VehicleTypeID"`
	BranchID      uint         `json:"branch_id" gorm:"not null;index"`
	Branch        *Branch      `json:"branch,omitempty" gorm:"foreignKey:BranchID"`

	// Привязка к абонементу, если номерной знак подписан
	SubscriptionID *uint         `json:"subscription_id" gorm:"index"`
	Subscription   *Subscription `json:"subscription,omitempty" gorm:"foreignKey:SubscriptionID"`

	// Время въезда и выезда. ExitTime устанавливается ровно один раз,
	// только из статуса in_progress; ExitTime >= EntryTime
	EntryTime time.Time  `json:"entry_time" gorm:"not null;index"`
	ExitTime  *time.Time `json:"exit_time"`

	// Статус талона: in_progress -> completed | lost
	Status string `json:"status" gorm:"default:'in_progress';type:varchar(20);index"`
}

// TableName задает имя таблицы для модели Ticket
func (Ticket) TableName() string {
	return "tickets"
}

// IsOpen проверяет, открыт ли талон (автомобиль еще на парковке)
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusInProgress && t.ExitTime == nil
}

// Duration возвращает длительность пребывания. Для открытого талона - ноль
func (t *Ticket) Duration() time.Duration {
	if t.ExitTime == nil {
		return 0
	}
	return t.ExitTime.Sub(t.EntryTime)
}
