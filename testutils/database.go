package testutils

import (
	"backend_parking/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB создает и настраивает тестовую базу данных в памяти
// Эта функция должна использоваться во всех тестах для обеспечения консистентности
func SetupTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// База :memory: живет в рамках одного соединения: ограничиваем пул,
	// чтобы каждый запрос видел мигрированную схему
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	// Выполняем миграции в правильном порядке
	err = db.AutoMigrate(
		// Базовые справочники
		&models.User{},
		&models.Branch{},
		&models.Business{},
		&models.BusinessBranchAffiliation{},
		&models.VehicleType{},

		// Тарифы
		&models.RateBase{},
		&models.RateBranch{},

		// Абонементы
		&models.SubscriptionPlan{},
		&models.Subscription{},
		&models.SubscriptionUsage{},
		&models.SubscriptionOverage{},

		// Талоны
		&models.Ticket{},

		// Взаиморасчеты с бизнесами
		&models.BusinessFreeHours{},
		&models.BusinessSettlementHistory{},
		&models.SettlementTicketDetail{},

		// Смена номеров
		&models.PlateChangeReason{},
		&models.PlateChangeRequest{},
		&models.AdministrativeChargeConfig{},

		// Уведомления
		&models.NotificationLog{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
