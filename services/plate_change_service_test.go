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

func seedChargeConfigs(t *testing.T, db *gorm.DB) {
	t.Helper()
	configs := []models.AdministrativeChargeConfig{
		{ReasonCode: models.ChargeReasonFirstChange6To12Months, ChargeAmount: decimal.NewFromInt(150), Description: "Первая повторная смена в окне 6-12 месяцев", IsActive: true},
		{ReasonCode: models.ChargeReasonSecondChangeYear, ChargeAmount: decimal.NewFromInt(300), Description: "Вторая и последующие смены за год", IsActive: true},
		{ReasonCode: models.ChargeReasonRepeatedRequests, ChargeAmount: decimal.NewFromInt(100), Description: "Сбор за обработку повторных заявок", IsActive: true},
	}
	for _, c := range configs {
		config := c
		require.NoError(t, db.Create(&config).Error)
	}
}

func seedPlateChangeFixture(t *testing.T, db *gorm.DB) (*models.Subscription, *models.PlateChangeReason) {
	t.Helper()
	user := seedUser(t, db, "owner@example.com")
	plan := seedPlan(t, db, "Базовый", 10, 1000)
	subscription := seedSubscription(t, db, user, plan, "PLT-001", 25)
	reason := &models.PlateChangeReason{Name: "sold", IsActive: true}
	require.NoError(t, db.Create(reason).Error)
	return subscription, reason
}

// seedApprovedChange создает одобренную заявку, рассмотренную в указанный момент
func seedApprovedChange(t *testing.T, db *gorm.DB, subscriptionID, reasonID uint, reviewedAt time.Time) {
	t.Helper()
	request := &models.PlateChangeRequest{
		SubscriptionID:  subscriptionID,
		ReasonID:        reasonID,
		OldLicensePlate: "OLD",
		NewLicensePlate: "NEW",
		Status:          models.PlateChangeStatusApproved,
		ReviewedAt:      &reviewedAt,
	}
	require.NoError(t, db.Create(request).Error)
}

func seedRejectedChanges(t *testing.T, db *gorm.DB, subscriptionID, reasonID uint, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		request := &models.PlateChangeRequest{
			SubscriptionID:  subscriptionID,
			ReasonID:        reasonID,
			OldLicensePlate: "OLD",
			NewLicensePlate: "NEW",
			Status:          models.PlateChangeStatusRejected,
		}
		require.NoError(t, db.Create(request).Error)
	}
}

func TestPlateChangeService_Charge_NoApprovedChanges(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, charge.HasCharge())
}

func TestPlateChangeService_Charge_After12MonthsFree(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	now := time.Now()
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -13, 0))

	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, now)
	require.NoError(t, err)
	assert.False(t, charge.HasCharge())
}

func TestPlateChangeService_Charge_FirstChangeIn6To12Months(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	now := time.Now()
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -8, 0))

	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, now)
	require.NoError(t, err)
	assert.True(t, charge.HasCharge())
	assert.Equal(t, models.ChargeReasonFirstChange6To12Months, charge.ReasonCode)
	assert.Equal(t, "150.00", charge.Amount.StringFixed(2))
}

func TestPlateChangeService_Charge_SecondChangeWithinYear(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	now := time.Now()
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -10, 0))
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -4, 0))

	// Две одобренные смены за год: верхняя ставка, даже внутри окна 6-12
	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.ChargeReasonSecondChangeYear, charge.ReasonCode)
	assert.Equal(t, "300.00", charge.Amount.StringFixed(2))
}

func TestPlateChangeService_Charge_FirstRepeatBefore6MonthsFree(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	now := time.Now()
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -3, 0))

	// Первая повторная смена раньше 6 месяцев бесплатна
	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, now)
	require.NoError(t, err)
	assert.False(t, charge.HasCharge())
}

func TestPlateChangeService_Charge_RepeatedRequestsCombined(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	now := time.Now()
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -8, 0))
	seedRejectedChanges(t, db, subscription.ID, reason.ID, 3)

	// Сбор лестницы комбинируется со сбором за повторные заявки
	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.ChargeReasonCombined, charge.ReasonCode)
	assert.Equal(t, "250.00", charge.Amount.StringFixed(2))
}

func TestPlateChangeService_Charge_RepeatedRequestsAlone(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	seedRejectedChanges(t, db, subscription.ID, reason.ID, 3)

	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.ChargeReasonRepeatedRequests, charge.ReasonCode)
	assert.Equal(t, "100.00", charge.Amount.StringFixed(2))
}

func TestPlateChangeService_Charge_MissingConfigDegradesToZero(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	// Конфигурация сборов намеренно не заполнена
	subscription, reason := seedPlateChangeFixture(t, db)

	now := time.Now()
	seedApprovedChange(t, db, subscription.ID, reason.ID, now.AddDate(0, -8, 0))

	charge, err := service.CalculateAdministrativeCharge(subscription.ID, reason.ID, now)
	require.NoError(t, err)
	assert.False(t, charge.HasCharge())
}

func TestPlateChangeService_CreateRequest(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	request, err := service.CreateRequest(subscription.ID, reason.ID, "PLT-002", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PlateChangeStatusPending, request.Status)
	assert.Equal(t, "PLT-001", request.OldLicensePlate)
	assert.False(t, request.HasAdministrativeCharge)

	// Вторая нерассмотренная заявка не допускается
	_, err = service.CreateRequest(subscription.ID, reason.ID, "PLT-003", time.Now())
	assert.True(t, errors.Is(err, ErrBusinessRule))

	// Новый знак должен отличаться от текущего
	_, err = service.CreateRequest(subscription.ID, reason.ID, "PLT-001", time.Now())
	assert.True(t, errors.Is(err, ErrBusinessRule))
}

func TestPlateChangeService_ReviewRequest_ApproveChangesPlate(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	request, err := service.CreateRequest(subscription.ID, reason.ID, "PLT-004", time.Now())
	require.NoError(t, err)

	reviewed, err := service.ReviewRequest(request.ID, 7, true, "документы в порядке", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PlateChangeStatusApproved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, uint(7), *reviewed.ReviewedBy)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, subscription.ID).Error)
	assert.Equal(t, "PLT-004", reloaded.LicensePlate)

	// Повторное рассмотрение отклоняется
	_, err = service.ReviewRequest(request.ID, 7, false, "", time.Now())
	assert.True(t, errors.Is(err, ErrBusinessRule))
}

func TestPlateChangeService_ReviewRequest_RejectKeepsPlate(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewPlateChangeService(db)
	seedChargeConfigs(t, db)
	subscription, reason := seedPlateChangeFixture(t, db)

	request, err := service.CreateRequest(subscription.ID, reason.ID, "PLT-005", time.Now())
	require.NoError(t, err)

	reviewed, err := service.ReviewRequest(request.ID, 7, false, "нет документов", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.PlateChangeStatusRejected, reviewed.Status)

	var reloaded models.Subscription
	require.NoError(t, db.First(&reloaded, subscription.ID).Error)
	assert.Equal(t, "PLT-001", reloaded.LicensePlate)
}

func TestWholeMonthsBetween(t *testing.T) {
	from := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, wholeMonthsBetween(from, time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, wholeMonthsBetween(from, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 11, wholeMonthsBetween(from, time.Date(2027, 1, 14, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, wholeMonthsBetween(from, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)))
	// Обратный порядок дат не дает отрицательных месяцев
	assert.Equal(t, 0, wholeMonthsBetween(from, from.AddDate(0, 0, -10)))
}
