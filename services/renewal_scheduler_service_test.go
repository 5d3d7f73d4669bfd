package services

import (
	"sync"
	"testing"
	"time"

	"backend_parking/config"
	"backend_parking/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// recordingNotifier записывает отправленные email для проверки в тестах
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string // темы писем в порядке отправки
	email []string // получатели
}

func (rn *recordingNotifier) SendEmail(recipient, subject, htmlBody string, userID *uint, relatedType string, relatedID *uint) error {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	rn.sent = append(rn.sent, subject)
	rn.email = append(rn.email, recipient)
	return nil
}

func schedulerTestConfig() *config.Config {
	return &config.Config{
		Scheduler: config.SchedulerConfig{
			AutoRenewalSpec:   "0 0 3 * * *",
			CycleResetSpec:    "0 0 0 1 * *",
			RenewalWindowDays: 7,
		},
	}
}

// seedExpiringSubscription создает абонемент с автопродлением, истекающий через 3 дня
func seedExpiringSubscription(t *testing.T, db *gorm.DB, user *models.User, plan *models.SubscriptionPlan, plate string) *models.Subscription {
	t.Helper()
	subscription := &models.Subscription{
		PlanID:           plan.ID,
		UserID:           user.ID,
		LicensePlate:     plate,
		FrozenRateBase:   decimal.NewFromInt(25),
		StartDate:        time.Now().AddDate(0, -1, 3),
		EndDate:          time.Now().AddDate(0, 0, 3),
		ConsumedHours:    decimal.Zero,
		AutoRenewEnabled: true,
		TotalPrice:       plan.Price,
		Status:           models.SubscriptionStatusActive,
	}
	if err := db.Create(subscription).Error; err != nil {
		t.Fatalf("Не удалось создать истекающий абонемент: %v", err)
	}
	return subscription
}

func TestRenewalScheduler_ProcessAutoRenewals(t *testing.T) {
	db := setupServiceTestDB(t)
	seedBaseRate(t, db, 25)
	subscriptionService := newSubscriptionService(db)
	notifier := &recordingNotifier{}
	scheduler := NewRenewalSchedulerService(subscriptionService, notifier, schedulerTestConfig())

	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	first := seedExpiringSubscription(t, db, user, plan, "REN-001")
	second := seedExpiringSubscription(t, db, user, plan, "REN-002")

	results, err := scheduler.ProcessAutoRenewals(time.Now())
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.True(t, result.Renewed)
		assert.NotZero(t, result.NewSubscriptionID)
		assert.True(t, result.EmailSent)
		assert.Empty(t, result.Error)
	}

	// По каждому продлению отправлено письмо об успехе
	assert.Len(t, notifier.sent, 2)

	// Новые записи созданы, старые не мутированы
	var count int64
	require.NoError(t, db.Model(&models.Subscription{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.Equal(t, models.SubscriptionStatusActive, reloaded.Status)
	_ = second
}

func TestRenewalScheduler_FailureDoesNotStopBatch(t *testing.T) {
	db := setupServiceTestDB(t)
	seedBaseRate(t, db, 25)
	subscriptionService := newSubscriptionService(db)
	notifier := &recordingNotifier{}
	scheduler := NewRenewalSchedulerService(subscriptionService, notifier, schedulerTestConfig())

	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)

	// План второго абонемента деактивирован: его продление упадет.
	// Деактивация отдельным Update: при Create нулевое значение IsActive
	// было бы заменено значением по умолчанию true
	deadPlan := &models.SubscriptionPlan{
		Name:         "Закрытый",
		MonthlyHours: decimal.NewFromInt(10),
		Price:        decimal.NewFromInt(500),
	}
	require.NoError(t, db.Create(deadPlan).Error)
	require.NoError(t, db.Model(deadPlan).Update("is_active", false).Error)

	seedExpiringSubscription(t, db, user, plan, "REN-003")
	seedExpiringSubscription(t, db, user, deadPlan, "REN-004")
	seedExpiringSubscription(t, db, user, plan, "REN-005")

	results, err := scheduler.ProcessAutoRenewals(time.Now())
	require.NoError(t, err)
	require.Len(t, results, 3)

	renewed, failed := 0, 0
	for _, result := range results {
		if result.Renewed {
			renewed++
		} else {
			failed++
			assert.NotEmpty(t, result.Error)
		}
		// Письмо отправляется и об успехе, и о сбое
		assert.True(t, result.EmailSent)
	}
	assert.Equal(t, 2, renewed)
	assert.Equal(t, 1, failed)
	assert.Len(t, notifier.sent, 3)
}

func TestRenewalScheduler_WindowExcludesDistantSubscriptions(t *testing.T) {
	db := setupServiceTestDB(t)
	seedBaseRate(t, db, 25)
	subscriptionService := newSubscriptionService(db)
	scheduler := NewRenewalSchedulerService(subscriptionService, &recordingNotifier{}, schedulerTestConfig())

	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)

	// Истекает через 3 дня - входит в окно
	seedExpiringSubscription(t, db, user, plan, "REN-006")

	// Истекает через месяц - вне окна
	distant := seedSubscription(t, db, user, plan, "REN-007", 25)
	require.NoError(t, db.Model(distant).Update("auto_renew_enabled", true).Error)

	// Без автопродления - не кандидат
	seedSubscription(t, db, user, plan, "REN-008", 25)

	results, err := scheduler.ProcessAutoRenewals(time.Now())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Renewed)
}
