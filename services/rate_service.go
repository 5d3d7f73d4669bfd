package services

import (
	"errors"
	"log"
	"time"

	"backend_parking/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RateService предоставляет функции для управления тарифами и разрешения
// применимого почасового тарифа для филиала
type RateService struct {
	db    *gorm.DB
	cache *CacheService
}

// NewRateService создает новый экземпляр RateService
func NewRateService(db *gorm.DB, cache *CacheService) *RateService {
	return &RateService{
		db:    db,
		cache: cache,
	}
}

// CreateBaseRate создает новый базовый тариф и деактивирует предыдущий
// активный. Так обеспечивается инвариант: не более одного активного
// базового тарифа в любой момент времени
func (rs *RateService) CreateBaseRate(amountPerHour decimal.Decimal, startDate time.Time, endDate *time.Time, description string) (*models.RateBase, error) {
	if amountPerHour.LessThanOrEqual(decimal.Zero) {
		return nil, NewBusinessRuleError("стоимость часа должна быть положительной")
	}
	if endDate != nil && !endDate.After(startDate) {
		return nil, NewBusinessRuleError("дата окончания тарифа должна быть позже даты начала")
	}

	rate := &models.RateBase{
		AmountPerHour: amountPerHour,
		StartDate:     startDate,
		EndDate:       endDate,
		IsActive:      true,
		Description:   description,
	}

	err := rs.db.Transaction(func(tx *gorm.DB) error {
		// Деактивируем предыдущий активный тариф
		if err := tx.Model(&models.RateBase{}).
			Where("is_active = ?", true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		return tx.Create(rate).Error
	})
	if err != nil {
		return nil, err
	}

	// Тарифы изменились - сбрасываем кэш
	if rs.cache != nil {
		if err := rs.cache.InvalidateAllRates(); err != nil {
			log.Printf("Предупреждение: не удалось инвалидировать кэш тарифов: %v", err)
		}
	}

	return rate, nil
}

// GetActiveBaseRate возвращает единственный действующий базовый тариф.
// Его отсутствие - фатальная ошибка конфигурации: без базового тарифа
// невозможен ни один расчет стоимости выезда
func (rs *RateService) GetActiveBaseRate(now time.Time) (*models.RateBase, error) {
	return getActiveBaseRate(rs.db, now)
}

// getActiveBaseRate выполняет поиск активного базового тарифа через
// переданный обработчик БД, чтобы чтение могло участвовать в транзакции
// вызывающей стороны
func getActiveBaseRate(db *gorm.DB, now time.Time) (*models.RateBase, error) {
	var rate models.RateBase
	err := db.Where("is_active = ?", true).First(&rate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewConfigurationError("отсутствует активный базовый тариф")
		}
		return nil, err
	}

	if !rate.IsCurrentlyActive(now) {
		return nil, NewConfigurationError("активный базовый тариф не действует на текущий момент")
	}

	return &rate, nil
}

// CreateBranchRate создает переопределение тарифа для филиала,
// деактивируя предыдущее переопределение этого филиала
func (rs *RateService) CreateBranchRate(branchID uint, amountPerHour decimal.Decimal, description string) (*models.RateBranch, error) {
	if amountPerHour.LessThanOrEqual(decimal.Zero) {
		return nil, NewBusinessRuleError("стоимость часа должна быть положительной")
	}

	var branch models.Branch
	if err := rs.db.First(&branch, branchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("филиал %d не найден", branchID)
		}
		return nil, err
	}

	rate := &models.RateBranch{
		BranchID:      branchID,
		AmountPerHour: amountPerHour,
		IsActive:      true,
		Description:   description,
	}

	err := rs.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RateBranch{}).
			Where("branch_id = ? AND is_active = ?", branchID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		return tx.Create(rate).Error
	})
	if err != nil {
		return nil, err
	}

	if rs.cache != nil {
		if err := rs.cache.InvalidateBranchRate(branchID); err != nil {
			log.Printf("Предупреждение: не удалось инвалидировать кэш тарифа филиала %d: %v", branchID, err)
		}
	}

	return rate, nil
}

// ResolveRateForBranch разрешает применимый почасовой тариф для филиала:
// активное переопределение филиала всегда побеждает базовый тариф,
// независимо от того, что было создано позже
func (rs *RateService) ResolveRateForBranch(branchID uint) (decimal.Decimal, error) {
	// Сначала пробуем кэш
	if rs.cache != nil {
		if cached, err := rs.cache.GetCachedBranchRate(branchID); err == nil {
			return cached, nil
		}
	}

	rate, err := rs.resolveRateForBranch(rs.db, branchID)
	if err != nil {
		return decimal.Zero, err
	}

	if rs.cache != nil {
		if err := rs.cache.CacheBranchRate(branchID, rate); err != nil {
			log.Printf("Предупреждение: не удалось закэшировать тариф филиала %d: %v", branchID, err)
		}
	}

	return rate, nil
}

// ResolveRateForBranchTx разрешает тариф филиала внутри транзакции tx.
// Кэш не участвует: чтение тарифа остается в границах транзакции
// вызывающей стороны и видит согласованный с ней снимок данных
func (rs *RateService) ResolveRateForBranchTx(tx *gorm.DB, branchID uint) (decimal.Decimal, error) {
	return rs.resolveRateForBranch(tx, branchID)
}

// resolveRateForBranch выполняет разрешение тарифа без кэша через
// переданный обработчик БД
func (rs *RateService) resolveRateForBranch(db *gorm.DB, branchID uint) (decimal.Decimal, error) {
	var branchRate models.RateBranch
	err := db.Where("branch_id = ? AND is_active = ?", branchID, true).First(&branchRate).Error
	if err == nil {
		return branchRate.AmountPerHour, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, err
	}

	base, err := getActiveBaseRate(db, time.Now())
	if err != nil {
		return decimal.Zero, err
	}

	return base.AmountPerHour, nil
}
