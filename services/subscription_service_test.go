package services

import (
	"errors"
	"testing"
	"time"

	"backend_parking/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSubscriptionService(db *gorm.DB) *SubscriptionService {
	return NewSubscriptionService(db, NewRateService(db, nil))
}

func TestSubscriptionService_Purchase_MonthlyPrice(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	seedBaseRate(t, db, 25)
	user := seedUser(t, db, "owner@example.com")

	plan := &models.SubscriptionPlan{
		Name:                      "Стандарт",
		MonthlyHours:              decimal.NewFromInt(40),
		Price:                     decimal.NewFromInt(1000),
		MonthlyDiscountPercentage: decimal.NewFromInt(10),
		IsActive:                  true,
	}
	require.NoError(t, db.Create(plan).Error)

	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	subscription, err := service.Purchase(user.ID, plan.ID, "AAA-111", false, false, start)
	require.NoError(t, err)

	// 1000 минус 10% скидки плана
	assert.Equal(t, "900.00", subscription.TotalPrice.StringFixed(2))
	assert.Equal(t, start.AddDate(0, 1, 0), subscription.EndDate)
	assert.Equal(t, "25.00", subscription.FrozenRateBase.StringFixed(2))
	assert.True(t, subscription.ConsumedHours.IsZero())
}

func TestSubscriptionService_Purchase_AnnualPrice(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	seedBaseRate(t, db, 25)
	user := seedUser(t, db, "owner@example.com")

	plan := &models.SubscriptionPlan{
		Name:                               "Стандарт",
		MonthlyHours:                       decimal.NewFromInt(40),
		Price:                              decimal.NewFromInt(1000),
		MonthlyDiscountPercentage:          decimal.NewFromInt(10),
		AnnualAdditionalDiscountPercentage: decimal.NewFromInt(5),
		IsActive:                           true,
	}
	require.NoError(t, db.Create(plan).Error)

	start := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	subscription, err := service.Purchase(user.ID, plan.ID, "AAA-112", true, true, start)
	require.NoError(t, err)

	// 900 * 12 месяцев минус 5% годовой скидки = 10260
	assert.Equal(t, "10260.00", subscription.TotalPrice.StringFixed(2))
	assert.Equal(t, start.AddDate(1, 0, 0), subscription.EndDate)
	assert.True(t, subscription.AutoRenewEnabled)
}

func TestSubscriptionService_Purchase_PlateAlreadySubscribed(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	seedBaseRate(t, db, 25)
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	seedSubscription(t, db, user, plan, "AAA-113", 25)

	_, err := service.Purchase(user.ID, plan.ID, "AAA-113", false, false, time.Now())
	assert.True(t, errors.Is(err, ErrBusinessRule))
}

func TestSubscriptionService_Renew_AtExactEndDateAllowed(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	seedBaseRate(t, db, 25)
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	previous := seedSubscription(t, db, user, plan, "AAA-114", 25)

	// Продление стартует ровно в момент окончания прежнего абонемента
	// и не конфликтует с ним
	renewed, err := service.Renew(previous)
	require.NoError(t, err)
	assert.Equal(t, previous.EndDate, renewed.StartDate)
	assert.Equal(t, previous.LicensePlate, renewed.LicensePlate)
	assert.NotEqual(t, previous.ID, renewed.ID)
}

func TestSubscriptionService_ConsumeHours_Overage(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	subscription := seedSubscription(t, db, user, plan, "AAA-115", 25)

	// 9 из 10 часов уже потреблено
	require.NoError(t, db.Model(subscription).Update("consumed_hours", decimal.NewFromInt(9)).Error)

	exit := time.Now()
	entry := exit.Add(-3 * time.Hour)
	ticket := &models.Ticket{
		Folio: "T1-OVR", LicensePlate: "AAA-115", VehicleTypeID: 1, BranchID: 1,
		EntryTime: entry, ExitTime: &exit, Status: models.TicketStatusCompleted,
	}
	require.NoError(t, db.Create(ticket).Error)

	result, err := service.ConsumeHours(db, subscription.ID, ticket, decimal.NewFromInt(3))
	require.NoError(t, err)

	// Из визита в 3 часа списывается остаток лимита (1 час),
	// перерасход 2 часа тарифицируется по замороженному тарифу
	assert.Equal(t, "1.00", result.HoursConsumed.StringFixed(2))
	assert.Equal(t, "2.00", result.OverageHours.StringFixed(2))
	assert.Equal(t, "50.00", result.OverageCharge.StringFixed(2))

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, subscription.ID).Error)
	assert.Equal(t, "10.00", reloaded.ConsumedHours.StringFixed(2))

	var overage models.SubscriptionOverage
	require.NoError(t, db.Where("subscription_id = ?", subscription.ID).First(&overage).Error)
	assert.Equal(t, "25.00", overage.AppliedRate.StringFixed(2))
	assert.Equal(t, "50.00", overage.ChargedAmount.StringFixed(2))

	var usageCount int64
	require.NoError(t, db.Model(&models.SubscriptionUsage{}).
		Where("subscription_id = ?", subscription.ID).Count(&usageCount).Error)
	assert.Equal(t, int64(1), usageCount)
}

func TestSubscriptionService_ConsumeHours_ThresholdEventsFireOnce(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	subscription := seedSubscription(t, db, user, plan, "AAA-116", 25)

	var received []SubscriptionUsageEvent
	ResetUsageListeners()
	defer ResetUsageListeners()
	RegisterUsageListener(func(event SubscriptionUsageEvent) {
		received = append(received, event)
	})

	makeTicket := func(folio string, hours int) *models.Ticket {
		exit := time.Now()
		entry := exit.Add(-time.Duration(hours) * time.Hour)
		ticket := &models.Ticket{
			Folio: folio, LicensePlate: "AAA-116", VehicleTypeID: 1, BranchID: 1,
			EntryTime: entry, ExitTime: &exit, Status: models.TicketStatusCompleted,
		}
		require.NoError(t, db.Create(ticket).Error)
		return ticket
	}

	// 0 -> 8 часов: пересечение порога 80%
	_, err := service.ConsumeHours(db, subscription.ID, makeTicket("T1-TH1", 8), decimal.NewFromInt(8))
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, UsageThresholdWarning, received[0].Threshold)
	assert.Equal(t, user.Email, received[0].UserEmail)

	// 8 -> 9 часов: порог 80% уже уведомлен, событий нет
	_, err = service.ConsumeHours(db, subscription.ID, makeTicket("T1-TH2", 1), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Len(t, received, 1)

	// 9 -> 10 часов: пересечение порога 100%
	_, err = service.ConsumeHours(db, subscription.ID, makeTicket("T1-TH3", 1), decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Len(t, received, 2)
	assert.Equal(t, UsageThresholdExceeded, received[1].Threshold)
}

func TestSubscriptionService_ConsumeHours_BothThresholdsInOneJump(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	subscription := seedSubscription(t, db, user, plan, "AAA-117", 25)

	var received []int
	ResetUsageListeners()
	defer ResetUsageListeners()
	RegisterUsageListener(func(event SubscriptionUsageEvent) {
		received = append(received, event.Threshold)
	})

	exit := time.Now()
	entry := exit.Add(-12 * time.Hour)
	ticket := &models.Ticket{
		Folio: "T1-TH4", LicensePlate: "AAA-117", VehicleTypeID: 1, BranchID: 1,
		EntryTime: entry, ExitTime: &exit, Status: models.TicketStatusCompleted,
	}
	require.NoError(t, db.Create(ticket).Error)

	// Один визит перепрыгивает оба порога: оба события доставляются
	_, err := service.ConsumeHours(db, subscription.ID, ticket, decimal.NewFromInt(12))
	require.NoError(t, err)
	assert.Equal(t, []int{UsageThresholdWarning, UsageThresholdExceeded}, received)
}

func TestSubscriptionService_NotificationFlagColumnsMatchSchema(t *testing.T) {
	db := setupServiceTestDB(t)

	// Имена колонок флагов зафиксированы тегами column: по этим именам
	// пишут map-обновления в ConsumeHours и ResetMonthlyCycles
	assert.True(t, db.Migrator().HasColumn(&models.Subscription{}, "notified_80_percent"))
	assert.True(t, db.Migrator().HasColumn(&models.Subscription{}, "notified_100_percent"))
}

func TestSubscriptionService_ResetMonthlyCycles(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	subscription := seedSubscription(t, db, user, plan, "AAA-118", 25)

	require.NoError(t, db.Model(subscription).Updates(map[string]interface{}{
		"consumed_hours":       decimal.NewFromInt(10),
		"notified_80_percent":  true,
		"notified_100_percent": true,
	}).Error)

	require.NoError(t, service.ResetMonthlyCycles())

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, subscription.ID).Error)
	assert.True(t, reloaded.ConsumedHours.IsZero())
	assert.False(t, reloaded.Notified80Percent)
	assert.False(t, reloaded.Notified100Percent)
}

func TestSubscriptionService_GetActiveByPlate_NilWhenAbsent(t *testing.T) {
	db := setupServiceTestDB(t)
	service := newSubscriptionService(db)

	subscription, err := service.GetActiveByPlate("NO-SUCH", time.Now())
	require.NoError(t, err)
	assert.Nil(t, subscription)
}
