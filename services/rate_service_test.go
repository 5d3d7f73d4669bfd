package services

import (
	"errors"
	"testing"
	"time"

	"backend_parking/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateService_CreateBaseRate_DeactivatesPrevious(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)

	first, err := service.CreateBaseRate(decimal.NewFromInt(20), time.Now().AddDate(0, -2, 0), nil, "старый тариф")
	require.NoError(t, err)

	second, err := service.CreateBaseRate(decimal.NewFromInt(25), time.Now().AddDate(0, -1, 0), nil, "новый тариф")
	require.NoError(t, err)

	// Прежний тариф деактивирован, активен ровно один
	var reloaded models.RateBase
	require.NoError(t, db.First(&reloaded, first.ID).Error)
	assert.False(t, reloaded.IsActive)

	active, err := service.GetActiveBaseRate(time.Now())
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	assert.Equal(t, "25.00", active.AmountPerHour.StringFixed(2))
}

func TestRateService_CreateBaseRate_Validation(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)

	_, err := service.CreateBaseRate(decimal.Zero, time.Now(), nil, "")
	assert.True(t, errors.Is(err, ErrBusinessRule))

	end := time.Now().AddDate(0, 0, -1)
	_, err = service.CreateBaseRate(decimal.NewFromInt(10), time.Now(), &end, "")
	assert.True(t, errors.Is(err, ErrBusinessRule))
}

func TestRateService_GetActiveBaseRate_MissingIsConfigurationError(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)

	_, err := service.GetActiveBaseRate(time.Now())
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRateService_GetActiveBaseRate_ExpiredWindow(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)

	// Тариф с флагом is_active, но истекшим окном действия
	end := time.Now().AddDate(0, 0, -1)
	rate := &models.RateBase{
		AmountPerHour: decimal.NewFromInt(20),
		StartDate:     time.Now().AddDate(0, -2, 0),
		EndDate:       &end,
		IsActive:      true,
	}
	require.NoError(t, db.Create(rate).Error)

	_, err := service.GetActiveBaseRate(time.Now())
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRateService_ResolveRateForBranch_BranchOverrideWins(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)
	branch := seedBranch(t, db, "Центральный")

	// Базовый тариф создан позже переопределения, но переопределение
	// филиала все равно побеждает
	_, err := service.CreateBranchRate(branch.ID, decimal.NewFromInt(35), "особый тариф")
	require.NoError(t, err)
	_, err = service.CreateBaseRate(decimal.NewFromInt(20), time.Now().AddDate(0, -1, 0), nil, "")
	require.NoError(t, err)

	rate, err := service.ResolveRateForBranch(branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "35.00", rate.StringFixed(2))
}

func TestRateService_ResolveRateForBranch_FallsBackToBase(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)
	branch := seedBranch(t, db, "Северный")
	seedBaseRate(t, db, 22)

	rate, err := service.ResolveRateForBranch(branch.ID)
	require.NoError(t, err)
	assert.Equal(t, "22.00", rate.StringFixed(2))
}

func TestRateService_ResolveRateForBranch_NoRatesAtAll(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)
	branch := seedBranch(t, db, "Южный")

	_, err := service.ResolveRateForBranch(branch.ID)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRateService_CreateBranchRate_UnknownBranch(t *testing.T) {
	db := setupServiceTestDB(t)
	service := NewRateService(db, nil)

	_, err := service.CreateBranchRate(999, decimal.NewFromInt(30), "")
	assert.True(t, errors.Is(err, ErrNotFound))
}
