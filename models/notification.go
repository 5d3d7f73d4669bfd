package models

import (
	"time"

	"gorm.io/gorm"
)

// Каналы отправки уведомлений
const (
	NotificationChannelEmail    = "email"
	NotificationChannelTelegram = "telegram"
)

// Статусы уведомлений
const (
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"
)

// NotificationLog представляет журнал отправленных уведомлений.
// Отправка выполняется в режиме fire-and-forget, журнал - единственный след
type NotificationLog struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`

	// Основные поля
	Type         string     `json:"type" gorm:"not null"`              // Тип уведомления
	Channel      string     `json:"channel" gorm:"not null"`           // Канал отправки
	Recipient    string     `json:"recipient" gorm:"not null"`         // Получатель
	Subject      string     `json:"subject"`                           // Тема (для email)
	Message      string     `json:"message" gorm:"type:text;not null"` // Текст сообщения
	Status       string     `json:"status" gorm:"default:'sent'"`      // sent, failed
	ErrorMessage string     `json:"error_message" gorm:"type:text"`    // Сообщение об ошибке
	SentAt       *time.Time `json:"sent_at"`                           // Время отправки

	// Связанные сущности
	RelatedID   *uint  `json:"related_id"`           // ID связанной сущности
	RelatedType string `json:"related_type"`         // Тип связанной сущности
	UserID      *uint  `json:"user_id" gorm:"index"` // ID пользователя-получателя
}

// TableName задает имя таблицы для модели NotificationLog
func (NotificationLog) TableName() string {
	return "notification_logs"
}
