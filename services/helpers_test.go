package services

import (
	"testing"
	"time"

	"backend_parking/models"
	"backend_parking/testutils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// setupServiceTestDB создает тестовую БД в памяти
func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := testutils.SetupTestDB()
	if err != nil {
		t.Fatalf("Не удалось создать тестовую БД: %v", err)
	}
	return db
}

// seedBranch создает активный филиал
func seedBranch(t *testing.T, db *gorm.DB, name string) *models.Branch {
	t.Helper()
	branch := &models.Branch{Name: name, IsActive: true}
	if err := db.Create(branch).Error; err != nil {
		t.Fatalf("Не удалось создать филиал: %v", err)
	}
	return branch
}

// seedVehicleType создает тип транспортного средства
func seedVehicleType(t *testing.T, db *gorm.DB, name string) *models.VehicleType {
	t.Helper()
	vt := &models.VehicleType{Name: name, IsActive: true}
	if err := db.Create(vt).Error; err != nil {
		t.Fatalf("Не удалось создать тип ТС: %v", err)
	}
	return vt
}

// seedBaseRate создает действующий базовый тариф
func seedBaseRate(t *testing.T, db *gorm.DB, amountPerHour float64) *models.RateBase {
	t.Helper()
	rate := &models.RateBase{
		AmountPerHour: decimal.NewFromFloat(amountPerHour),
		StartDate:     time.Now().AddDate(0, -1, 0),
		IsActive:      true,
	}
	if err := db.Create(rate).Error; err != nil {
		t.Fatalf("Не удалось создать базовый тариф: %v", err)
	}
	return rate
}

// seedUser создает пользователя
func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Password: "hash", IsActive: true}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Не удалось создать пользователя: %v", err)
	}
	return user
}

// seedPlan создает активный план абонемента
func seedPlan(t *testing.T, db *gorm.DB, name string, monthlyHours, price float64) *models.SubscriptionPlan {
	t.Helper()
	plan := &models.SubscriptionPlan{
		Name:         name,
		MonthlyHours: decimal.NewFromFloat(monthlyHours),
		Price:        decimal.NewFromFloat(price),
		IsActive:     true,
	}
	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Не удалось создать план: %v", err)
	}
	return plan
}

// seedSubscription создает действующий абонемент с замороженным тарифом
func seedSubscription(t *testing.T, db *gorm.DB, user *models.User, plan *models.SubscriptionPlan, plate string, frozenRate float64) *models.Subscription {
	t.Helper()
	subscription := &models.Subscription{
		PlanID:         plan.ID,
		UserID:         user.ID,
		LicensePlate:   plate,
		FrozenRateBase: decimal.NewFromFloat(frozenRate),
		StartDate:      time.Now().AddDate(0, 0, -10),
		EndDate:        time.Now().AddDate(0, 1, 0),
		ConsumedHours:  decimal.Zero,
		TotalPrice:     plan.Price,
		Status:         models.SubscriptionStatusActive,
	}
	if err := db.Create(subscription).Error; err != nil {
		t.Fatalf("Не удалось создать абонемент: %v", err)
	}
	return subscription
}

// seedOpenTicket создает открытый талон
func seedOpenTicket(t *testing.T, db *gorm.DB, branch *models.Branch, vt *models.VehicleType, plate, folio string, entryTime time.Time) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		Folio:         folio,
		LicensePlate:  plate,
		VehicleTypeID: vt.ID,
		BranchID:      branch.ID,
		EntryTime:     entryTime,
		Status:        models.TicketStatusInProgress,
	}
	if err := db.Create(ticket).Error; err != nil {
		t.Fatalf("Не удалось создать талон: %v", err)
	}
	return ticket
}

// seedBusiness создает коммерцию, аффилированную с филиалом
func seedBusiness(t *testing.T, db *gorm.DB, branch *models.Branch, name string, ratePerHour float64) *models.Business {
	t.Helper()
	business := &models.Business{
		Name:        name,
		RatePerHour: decimal.NewFromFloat(ratePerHour),
		IsActive:    true,
	}
	if err := db.Create(business).Error; err != nil {
		t.Fatalf("Не удалось создать коммерцию: %v", err)
	}
	affiliation := &models.BusinessBranchAffiliation{
		BusinessID: business.ID,
		BranchID:   branch.ID,
		IsActive:   true,
	}
	if err := db.Create(affiliation).Error; err != nil {
		t.Fatalf("Не удалось создать аффилиацию: %v", err)
	}
	return business
}
