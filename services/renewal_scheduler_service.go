package services

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"backend_parking/config"
	"backend_parking/models"
)

// RenewalResult описывает исход обработки одного абонемента в проходе
// автопродления. Проход всегда возвращает результат по каждому кандидату
type RenewalResult struct {
	SubscriptionID    uint   `json:"subscription_id"`
	NewSubscriptionID uint   `json:"new_subscription_id,omitempty"`
	Renewed           bool   `json:"renewed"`
	Error             string `json:"error,omitempty"`
	EmailSent         bool   `json:"email_sent"`
}

// RenewalSchedulerService управляет фоновыми задачами жизненного цикла
// абонементов: ежедневным автопродлением и ежемесячным сбросом циклов
type RenewalSchedulerService struct {
	subscriptionService *SubscriptionService
	notifier            Notifier
	config              *config.Config
	cron                *cron.Cron
}

// NewRenewalSchedulerService создает новый экземпляр RenewalSchedulerService
func NewRenewalSchedulerService(subscriptionService *SubscriptionService, notifier Notifier, cfg *config.Config) *RenewalSchedulerService {
	return &RenewalSchedulerService{
		subscriptionService: subscriptionService,
		notifier:            notifier,
		config:              cfg,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// Start запускает планировщик фоновых задач
func (rs *RenewalSchedulerService) Start() error {
	if _, err := rs.cron.AddFunc(rs.config.Scheduler.AutoRenewalSpec, func() {
		results, err := rs.ProcessAutoRenewals(time.Now())
		if err != nil {
			log.Printf("❌ Ошибка прохода автопродления: %v", err)
			return
		}
		renewed := 0
		for _, r := range results {
			if r.Renewed {
				renewed++
			}
		}
		log.Printf("✅ Автопродление: обработано %d, продлено %d", len(results), renewed)
	}); err != nil {
		return fmt.Errorf("ошибка планирования автопродления: %w", err)
	}

	if _, err := rs.cron.AddFunc(rs.config.Scheduler.CycleResetSpec, func() {
		if err := rs.subscriptionService.ResetMonthlyCycles(); err != nil {
			log.Printf("❌ Ошибка сброса расчетных циклов: %v", err)
			return
		}
		log.Printf("✅ Расчетные циклы абонементов сброшены")
	}); err != nil {
		return fmt.Errorf("ошибка планирования сброса циклов: %w", err)
	}

	rs.cron.Start()
	log.Printf("🚀 Планировщик абонементов запущен")
	return nil
}

// Stop останавливает планировщик
func (rs *RenewalSchedulerService) Stop() {
	if rs.cron != nil {
		rs.cron.Stop()
		log.Printf("Планировщик абонементов остановлен")
	}
}

// ProcessAutoRenewals выполняет один проход автопродления: находит
// абонементы с включенным автопродлением, истекающие в ближайшем окне,
// и продлевает каждый. Сбой одного абонемента не прерывает проход -
// остальные кандидаты обрабатываются в любом случае
func (rs *RenewalSchedulerService) ProcessAutoRenewals(now time.Time) ([]RenewalResult, error) {
	endWindow := now.AddDate(0, 0, rs.config.Scheduler.RenewalWindowDays)

	expiring, err := rs.subscriptionService.FindExpiringWithAutoRenew(now, endWindow)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истекающих абонементов: %w", err)
	}

	results := make([]RenewalResult, 0, len(expiring))
	for i := range expiring {
		results = append(results, rs.renewOne(&expiring[i]))
	}

	return results, nil
}

// renewOne продлевает один абонемент с изоляцией паник и ошибок
func (rs *RenewalSchedulerService) renewOne(previous *models.Subscription) (result RenewalResult) {
	result = RenewalResult{SubscriptionID: previous.ID}

	defer func() {
		if r := recover(); r != nil {
			result.Renewed = false
			result.Error = fmt.Sprintf("паника при продлении: %v", r)
			log.Printf("❌ Паника при продлении абонемента %d: %v", previous.ID, r)
		}
	}()

	renewed, err := rs.subscriptionService.Renew(previous)
	if err != nil {
		result.Error = err.Error()
		log.Printf("⚠️  Не удалось продлить абонемент %d: %v", previous.ID, err)
		result.EmailSent = rs.sendRenewalEmail(previous, nil, err)
		return result
	}

	result.Renewed = true
	result.NewSubscriptionID = renewed.ID
	result.EmailSent = rs.sendRenewalEmail(previous, renewed, nil)
	return result
}

// sendRenewalEmail уведомляет владельца об исходе продления.
// Сбой отправки не считается сбоем продления
func (rs *RenewalSchedulerService) sendRenewalEmail(previous, renewed *models.Subscription, renewErr error) bool {
	if rs.notifier == nil || previous.User == nil || previous.User.Email == "" {
		return false
	}

	subscriptionID := previous.ID

	var subject, body string
	if renewErr != nil {
		subject = "Не удалось продлить абонемент"
		body = fmt.Sprintf(
			"<p>Автоматическое продление абонемента для номера %s не выполнено.</p>"+
				"<p>Абонемент действует до %s. Пожалуйста, продлите его вручную.</p>",
			previous.LicensePlate, previous.EndDate.Format("02.01.2006"))
	} else {
		subject = "Абонемент продлен"
		body = fmt.Sprintf(
			"<p>Абонемент для номера %s автоматически продлен.</p>"+
				"<p>Новый период: с %s по %s. Стоимость: %s.</p>",
			renewed.LicensePlate,
			renewed.StartDate.Format("02.01.2006"),
			renewed.EndDate.Format("02.01.2006"),
			renewed.TotalPrice.StringFixed(2))
	}

	if err := rs.notifier.SendEmail(previous.User.Email, subject, body, &previous.UserID, "subscription_renewal", &subscriptionID); err != nil {
		log.Printf("Ошибка отправки уведомления о продлении абонемента %d: %v", previous.ID, err)
		return false
	}
	return true
}
