package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// DatabaseIndex представляет индекс базы данных
type DatabaseIndex struct {
	Name    string
	Table   string
	Columns []string
	Unique  bool
	Type    string // btree, gin
}

// PerformanceIndexes индексы для оптимизации производительности
var PerformanceIndexes = []DatabaseIndex{
	// Индексы для таблицы tickets
	{
		Name:    "idx_tickets_branch_status",
		Table:   "tickets",
		Columns: []string{"branch_id", "status"},
		Type:    "btree",
	},
	{
		Name:    "idx_tickets_plate_status",
		Table:   "tickets",
		Columns: []string{"license_plate", "status"},
		Type:    "btree",
	},
	{
		Name:    "idx_tickets_entry_time",
		Table:   "tickets",
		Columns: []string{"entry_time"},
		Type:    "btree",
	},

	// Индексы для таблицы subscriptions
	{
		Name:    "idx_subscriptions_plate_status",
		Table:   "subscriptions",
		Columns: []string{"license_plate", "status"},
		Type:    "btree",
	},
	{
		Name:    "idx_subscriptions_renewal",
		Table:   "subscriptions",
		Columns: []string{"auto_renew_enabled", "end_date"},
		Type:    "btree",
	},

	// Индексы для таблицы business_free_hours
	{
		Name:    "idx_free_hours_settlement_scan",
		Table:   "business_free_hours",
		Columns: []string{"business_id", "branch_id", "is_settled", "granted_at"},
		Type:    "btree",
	},

	// Индексы для таблицы plate_change_requests
	{
		Name:    "idx_plate_changes_subscription_status",
		Table:   "plate_change_requests",
		Columns: []string{"subscription_id", "status"},
		Type:    "btree",
	},
	{
		Name:    "idx_plate_changes_reviewed_at",
		Table:   "plate_change_requests",
		Columns: []string{"reviewed_at"},
		Type:    "btree",
	},

	// Индексы для таблицы rate_bases
	{
		Name:    "idx_rate_bases_active",
		Table:   "rate_bases",
		Columns: []string{"is_active", "start_date"},
		Type:    "btree",
	},
}

// CreatePerformanceIndexes создает индексы для оптимизации производительности
func CreatePerformanceIndexes(db *gorm.DB) error {
	log.Printf("Creating performance indexes...")

	for _, index := range PerformanceIndexes {
		if err := CreateIndex(db, index); err != nil {
			log.Printf("Failed to create index %s: %v", index.Name, err)
			// Продолжаем создание других индексов даже если один упал
			continue
		}
		log.Printf("Created index: %s", index.Name)
	}

	log.Printf("Performance indexes creation completed")
	return nil
}

// CreateIndex создает отдельный индекс
func CreateIndex(db *gorm.DB, index DatabaseIndex) error {
	uniqueStr := ""
	if index.Unique {
		uniqueStr = "UNIQUE "
	}

	columns := ""
	for i, col := range index.Columns {
		if i > 0 {
			columns += ", "
		}
		columns += col
	}

	sql := fmt.Sprintf(
		"CREATE %sINDEX IF NOT EXISTS %s ON %s (%s)",
		uniqueStr, index.Name, index.Table, columns,
	)

	return db.Exec(sql).Error
}

// DropIndex удаляет индекс
func DropIndex(db *gorm.DB, indexName string) error {
	sql := fmt.Sprintf("DROP INDEX IF EXISTS %s", indexName)
	return db.Exec(sql).Error
}
