package services

import (
	"errors"
	"fmt"
	"time"

	"backend_parking/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Пороги уведомлений о потреблении включенных часов, в процентах
const (
	UsageThresholdWarning  = 80
	UsageThresholdExceeded = 100
)

// SubscriptionService предоставляет функции для работы с абонементами:
// покупка, продление и учет потребления включенных часов
type SubscriptionService struct {
	db          *gorm.DB
	rateService *RateService
}

// NewSubscriptionService создает новый экземпляр SubscriptionService
func NewSubscriptionService(db *gorm.DB, rateService *RateService) *SubscriptionService {
	return &SubscriptionService{
		db:          db,
		rateService: rateService,
	}
}

// ConsumptionResult содержит результат списания часов визита с абонемента
type ConsumptionResult struct {
	HoursConsumed decimal.Decimal `json:"hours_consumed"` // Списано из включенных часов
	OverageHours  decimal.Decimal `json:"overage_hours"`  // Часы сверх месячного лимита
	OverageCharge decimal.Decimal `json:"overage_charge"` // Стоимость перерасхода по замороженному тарифу
}

// Purchase оформляет новый абонемент: замораживает текущий базовый тариф,
// рассчитывает стоимость со скидками плана и создает запись абонемента
func (ss *SubscriptionService) Purchase(userID, planID uint, licensePlate string, isAnnual, autoRenew bool, startDate time.Time) (*models.Subscription, error) {
	var user models.User
	if err := ss.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("пользователь %d не найден", userID)
		}
		return nil, err
	}

	var plan models.SubscriptionPlan
	if err := ss.db.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("тарифный план %d не найден", planID)
		}
		return nil, err
	}
	if !plan.IsActive {
		return nil, NewBusinessRuleError("тарифный план \"%s\" не активен", plan.Name)
	}

	// Один номерной знак - не более одного действующего абонемента
	var existing models.Subscription
	err := ss.db.Where("license_plate = ? AND status = ? AND end_date > ?",
		licensePlate, models.SubscriptionStatusActive, startDate).First(&existing).Error
	if err == nil {
		return nil, NewBusinessRuleError("для номерного знака %s уже действует абонемент", licensePlate)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Замораживаем текущий базовый тариф. Перерасход будет тарифицироваться
	// по этому снимку независимо от последующих изменений тарифов
	baseRate, err := ss.rateService.GetActiveBaseRate(time.Now())
	if err != nil {
		return nil, err
	}

	totalPrice, endDate := ss.calculatePrice(&plan, isAnnual, startDate)

	subscription := &models.Subscription{
		PlanID:           planID,
		UserID:           userID,
		LicensePlate:     licensePlate,
		FrozenRateBase:   baseRate.AmountPerHour,
		StartDate:        startDate,
		EndDate:          endDate,
		ConsumedHours:    decimal.Zero,
		IsAnnual:         isAnnual,
		AutoRenewEnabled: autoRenew,
		TotalPrice:       totalPrice,
		Status:           models.SubscriptionStatusActive,
	}

	if err := ss.db.Create(subscription).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания абонемента: %w", err)
	}

	return subscription, nil
}

// calculatePrice рассчитывает итоговую стоимость абонемента со скидками плана
func (ss *SubscriptionService) calculatePrice(plan *models.SubscriptionPlan, isAnnual bool, startDate time.Time) (decimal.Decimal, time.Time) {
	hundred := decimal.NewFromInt(100)

	// Месячная стоимость со скидкой плана
	monthly := plan.Price.Mul(hundred.Sub(plan.MonthlyDiscountPercentage)).Div(hundred)

	if !isAnnual {
		return RoundMoney(monthly), startDate.AddDate(0, 1, 0)
	}

	// Годовой абонемент: 12 месяцев с дополнительной годовой скидкой
	annual := monthly.Mul(decimal.NewFromInt(12)).
		Mul(hundred.Sub(plan.AnnualAdditionalDiscountPercentage)).Div(hundred)
	return RoundMoney(annual), startDate.AddDate(1, 0, 0)
}

// Renew продлевает абонемент: создает новую запись через логику покупки
// с тем же планом, номерным знаком, годовым признаком и флагом автопродления.
// Старая запись не мутируется, а замещается новой
func (ss *SubscriptionService) Renew(previous *models.Subscription) (*models.Subscription, error) {
	return ss.Purchase(previous.UserID, previous.PlanID, previous.LicensePlate,
		previous.IsAnnual, previous.AutoRenewEnabled, previous.EndDate)
}

// GetActiveByPlate возвращает действующий абонемент для номерного знака
// или nil, если знак не подписан
func (ss *SubscriptionService) GetActiveByPlate(licensePlate string, now time.Time) (*models.Subscription, error) {
	var subscription models.Subscription
	err := ss.db.Where("license_plate = ? AND status = ? AND start_date <= ? AND end_date > ?",
		licensePlate, models.SubscriptionStatusActive, now, now).First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

// ConsumeHours списывает часы визита с месячного лимита абонемента внутри
// транзакции tx. Часы сверх остатка лимита тарифицируются как перерасход
// по замороженному тарифу. Обновление ConsumedHours сериализуется между
// конкурентными талонами оптимистичным повтором: условное обновление
// по прочитанному значению, при проигрыше гонки - повторное чтение
func (ss *SubscriptionService) ConsumeHours(tx *gorm.DB, subscriptionID uint, ticket *models.Ticket, hours decimal.Decimal) (*ConsumptionResult, error) {
	const maxAttempts = 5

	for attempt := 0; attempt < maxAttempts; attempt++ {
		var subscription models.Subscription
		err := tx.Preload("Plan").Preload("User").First(&subscription, subscriptionID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, NewNotFoundError("абонемент %d не найден", subscriptionID)
			}
			return nil, err
		}
		if subscription.Plan == nil {
			return nil, NewConfigurationError("у абонемента %d отсутствует тарифный план", subscriptionID)
		}

		plan := subscription.Plan
		remaining := subscription.RemainingHours(plan)
		consumedThisVisit := decimal.Min(hours, remaining)
		overageHours := hours.Sub(consumedThisVisit)
		newConsumed := subscription.ConsumedHours.Add(consumedThisVisit)

		updates := map[string]interface{}{
			"consumed_hours": newConsumed,
		}

		// Пороговые уведомления: флаги хранятся в БД и обновляются в той же
		// транзакции, что и ConsumedHours, поэтому гарантия "не более одного
		// уведомления на порог за цикл" переживает перезапуск процесса
		percentage := decimal.Zero
		if !plan.MonthlyHours.IsZero() {
			percentage = newConsumed.Div(plan.MonthlyHours).Mul(decimal.NewFromInt(100))
		}

		var events []SubscriptionUsageEvent
		if percentage.GreaterThanOrEqual(decimal.NewFromInt(UsageThresholdWarning)) && !subscription.Notified80Percent {
			updates["notified_80_percent"] = true
			events = append(events, ss.buildUsageEvent(&subscription, newConsumed, percentage, UsageThresholdWarning))
		}
		if percentage.GreaterThanOrEqual(decimal.NewFromInt(UsageThresholdExceeded)) && !subscription.Notified100Percent {
			updates["notified_100_percent"] = true
			events = append(events, ss.buildUsageEvent(&subscription, newConsumed, percentage, UsageThresholdExceeded))
		}

		res := tx.Model(&models.Subscription{}).
			Where("id = ? AND consumed_hours = ?", subscription.ID, subscription.ConsumedHours).
			Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Конкурентный талон обновил счетчик первым - перечитываем
			continue
		}

		// Аудиторский след визита
		usage := &models.SubscriptionUsage{
			SubscriptionID: subscription.ID,
			TicketID:       ticket.ID,
			EntryTime:      ticket.EntryTime,
			ExitTime:       *ticket.ExitTime,
			HoursConsumed:  consumedThisVisit,
		}
		if err := tx.Create(usage).Error; err != nil {
			return nil, fmt.Errorf("ошибка создания записи потребления: %w", err)
		}

		result := &ConsumptionResult{
			HoursConsumed: consumedThisVisit,
			OverageHours:  overageHours,
			OverageCharge: decimal.Zero,
		}

		if overageHours.GreaterThan(decimal.Zero) {
			result.OverageCharge = RoundMoney(overageHours.Mul(subscription.FrozenRateBase))

			overage := &models.SubscriptionOverage{
				SubscriptionID: subscription.ID,
				TicketID:       ticket.ID,
				OverageHours:   overageHours,
				AppliedRate:    subscription.FrozenRateBase,
				ChargedAmount:  result.OverageCharge,
			}
			if err := tx.Create(overage).Error; err != nil {
				return nil, fmt.Errorf("ошибка создания записи перерасхода: %w", err)
			}
		}

		// Доставка событий отвязана от транзакции (best-effort)
		for _, event := range events {
			DispatchUsageEvent(event)
		}

		return result, nil
	}

	return nil, fmt.Errorf("не удалось сериализовать обновление абонемента %d: превышено число попыток", subscriptionID)
}

// buildUsageEvent формирует доменное событие пересечения порога потребления
func (ss *SubscriptionService) buildUsageEvent(subscription *models.Subscription, consumed, percentage decimal.Decimal, threshold int) SubscriptionUsageEvent {
	event := SubscriptionUsageEvent{
		SubscriptionID: subscription.ID,
		UserID:         subscription.UserID,
		HoursConsumed:  consumed,
		MonthlyHours:   subscription.Plan.MonthlyHours,
		Percentage:     percentage,
		Threshold:      threshold,
	}
	if subscription.User != nil {
		event.UserEmail = subscription.User.Email
	}
	return event
}

// ResetMonthlyCycles сбрасывает расчетные циклы всех действующих абонементов:
// обнуляет потребленные часы и флаги пороговых уведомлений.
// Вызывается ежемесячной задачей планировщика
func (ss *SubscriptionService) ResetMonthlyCycles() error {
	res := ss.db.Model(&models.Subscription{}).
		Where("status = ?", models.SubscriptionStatusActive).
		Updates(map[string]interface{}{
			"consumed_hours":       decimal.Zero,
			"notified_80_percent":  false,
			"notified_100_percent": false,
		})
	if res.Error != nil {
		return fmt.Errorf("ошибка сброса расчетных циклов: %w", res.Error)
	}
	return nil
}

// FindExpiringWithAutoRenew возвращает абонементы с включенным автопродлением,
// срок действия которых истекает в окне [startWindow, endWindow]
func (ss *SubscriptionService) FindExpiringWithAutoRenew(startWindow, endWindow time.Time) ([]models.Subscription, error) {
	var subscriptions []models.Subscription
	err := ss.db.Preload("Plan").Preload("User").
		Where("auto_renew_enabled = ? AND status = ? AND end_date >= ? AND end_date <= ?",
			true, models.SubscriptionStatusActive, startWindow, endWindow).
		Order("end_date ASC").
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска истекающих абонементов: %w", err)
	}
	return subscriptions, nil
}
