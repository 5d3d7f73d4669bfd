package services

import (
	"crypto/tls"
	"fmt"
	"log"
	"net/smtp"
	"time"

	"gorm.io/gorm"

	"backend_parking/config"
	"backend_parking/models"
)

// Notifier - контракт отправки уведомлений. Отдельный интерфейс позволяет
// подменять реальную отправку в тестах планировщика
type Notifier interface {
	SendEmail(recipient, subject, htmlBody string, userID *uint, relatedType string, relatedID *uint) error
}

// NotificationService представляет сервис для отправки уведомлений.
// Отправка отвязана от вызывающей транзакции: сбой почтового провайдера
// никогда не блокирует корректность расчетов
type NotificationService struct {
	DB       *gorm.DB
	smtp     config.SMTPConfig
	telegram *TelegramClient
}

// NewNotificationService создает новый экземпляр NotificationService
func NewNotificationService(db *gorm.DB, cfg *config.Config) *NotificationService {
	service := &NotificationService{
		DB:   db,
		smtp: cfg.External.SMTP,
	}

	// Telegram канал для операторов опционален
	telegram, err := NewTelegramClient(cfg.External.TelegramBotToken, cfg.External.TelegramChatID)
	if err != nil {
		log.Printf("⚠️  Telegram канал недоступен: %v", err)
	} else {
		service.telegram = telegram
	}

	return service
}

// SendEmail отправляет email и записывает результат в журнал уведомлений
func (s *NotificationService) SendEmail(recipient, subject, htmlBody string, userID *uint, relatedType string, relatedID *uint) error {
	sendErr := s.sendSMTP(recipient, subject, htmlBody)

	// Журналируем результат. Ошибка журналирования не важнее ошибки отправки
	now := time.Now()
	logEntry := &models.NotificationLog{
		Type:        relatedType,
		Channel:     models.NotificationChannelEmail,
		Recipient:   recipient,
		Subject:     subject,
		Message:     htmlBody,
		Status:      models.NotificationStatusSent,
		SentAt:      &now,
		RelatedID:   relatedID,
		RelatedType: relatedType,
		UserID:      userID,
	}
	if sendErr != nil {
		logEntry.Status = models.NotificationStatusFailed
		logEntry.ErrorMessage = sendErr.Error()
	}

	if err := s.DB.Create(logEntry).Error; err != nil {
		log.Printf("Предупреждение: ошибка записи в журнал уведомлений: %v", err)
	}

	return sendErr
}

// SendEmailAsync отправляет email в режиме fire-and-forget:
// ошибки логируются, но не распространяются
func (s *NotificationService) SendEmailAsync(recipient, subject, htmlBody string, userID *uint, relatedType string, relatedID *uint) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Паника при отправке email: %v", r)
			}
		}()

		if err := s.SendEmail(recipient, subject, htmlBody, userID, relatedType, relatedID); err != nil {
			log.Printf("Ошибка отправки email на %s: %v", recipient, err)
		}
	}()
}

// sendSMTP выполняет фактическую отправку через SMTP
func (s *NotificationService) sendSMTP(recipient, subject, htmlBody string) error {
	if s.smtp.Host == "" {
		return fmt.Errorf("SMTP не настроен")
	}

	auth := smtp.PlainAuth("", s.smtp.User, s.smtp.Password, s.smtp.Host)

	// Формируем сообщение
	msg := fmt.Sprintf("From: %s <%s>\r\n", s.smtp.FromName, s.smtp.From)
	msg += fmt.Sprintf("To: %s\r\n", recipient)
	msg += fmt.Sprintf("Subject: %s\r\n", subject)
	msg += "Content-Type: text/html; charset=UTF-8\r\n"
	msg += "\r\n"
	msg += htmlBody

	addr := fmt.Sprintf("%s:%d", s.smtp.Host, s.smtp.Port)

	if s.smtp.TLS {
		// Используем TLS
		tlsConfig := &tls.Config{
			InsecureSkipVerify: false,
			ServerName:         s.smtp.Host,
		}

		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("ошибка TLS подключения: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, s.smtp.Host)
		if err != nil {
			return fmt.Errorf("ошибка создания SMTP клиента: %w", err)
		}
		defer client.Quit()

		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("ошибка аутентификации: %w", err)
		}

		if err = client.Mail(s.smtp.From); err != nil {
			return fmt.Errorf("ошибка установки отправителя: %w", err)
		}

		if err = client.Rcpt(recipient); err != nil {
			return fmt.Errorf("ошибка установки получателя: %w", err)
		}

		w, err := client.Data()
		if err != nil {
			return fmt.Errorf("ошибка получения writer: %w", err)
		}

		if _, err = w.Write([]byte(msg)); err != nil {
			return fmt.Errorf("ошибка записи сообщения: %w", err)
		}

		if err = w.Close(); err != nil {
			return fmt.Errorf("ошибка закрытия writer: %w", err)
		}

		return nil
	}

	// Обычный SMTP без TLS
	if err := smtp.SendMail(addr, auth, s.smtp.From, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("ошибка отправки email: %w", err)
	}

	return nil
}

// NotifyOperator отправляет служебное сообщение операторам в Telegram.
// Канал best-effort: недоступность Telegram только логируется
func (s *NotificationService) NotifyOperator(message string) {
	if s.telegram == nil {
		return
	}
	if err := s.telegram.SendMessage(message); err != nil {
		log.Printf("Ошибка отправки Telegram уведомления: %v", err)
	}
}

// HandleUsageThresholdEvent обрабатывает доменное событие пересечения порога
// потребления: уведомляет владельца абонемента по email, а при исчерпании
// лимита дополнительно предупреждает операторов
func (s *NotificationService) HandleUsageThresholdEvent(event SubscriptionUsageEvent) {
	if event.UserEmail == "" {
		log.Printf("Предупреждение: у абонемента %d нет email владельца, уведомление пропущено", event.SubscriptionID)
		return
	}

	subscriptionID := event.SubscriptionID

	var subject, body string
	switch event.Threshold {
	case UsageThresholdExceeded:
		subject = "Лимит часов абонемента исчерпан"
		body = fmt.Sprintf(
			"<p>Вы использовали все включенные часы абонемента: %s из %s.</p>"+
				"<p>Дальнейшая парковка тарифицируется по замороженному тарифу абонемента.</p>",
			event.HoursConsumed.StringFixed(2), event.MonthlyHours.StringFixed(2))

		s.NotifyOperator(fmt.Sprintf("Абонемент %d исчерпал месячный лимит часов", subscriptionID))
	default:
		subject = "Использовано 80% часов абонемента"
		body = fmt.Sprintf(
			"<p>Вы использовали %s%% включенных часов абонемента: %s из %s.</p>",
			event.Percentage.StringFixed(0), event.HoursConsumed.StringFixed(2), event.MonthlyHours.StringFixed(2))
	}

	s.SendEmailAsync(event.UserEmail, subject, body, &event.UserID, "subscription_usage", &subscriptionID)
}
