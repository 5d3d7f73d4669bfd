package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"backend_parking/models"

	"gorm.io/gorm"
)

// Пороги эскалации административного сбора
const (
	// Месяцев с последней одобренной смены, после которых сбор не начисляется
	chargeFreeAfterMonths = 12
	// Нижняя граница окна пониженного сбора за первую повторную смену
	reducedChargeFromMonths = 6
	// Отклоненных заявок, после которых начисляется сбор за обработку
	repeatedRequestsThreshold = 2
)

// PlateChangeService предоставляет функции для заявок на смену номерного
// знака абонемента и эскалации административного сбора
type PlateChangeService struct {
	db *gorm.DB
}

// NewPlateChangeService создает новый экземпляр PlateChangeService
func NewPlateChangeService(db *gorm.DB) *PlateChangeService {
	return &PlateChangeService{db: db}
}

// CalculateAdministrativeCharge рассчитывает административный сбор для новой
// заявки на смену номерного знака по истории заявок абонемента.
//
// Лестница эскалации (строго в этом порядке):
//  1. Нет одобренных смен - сбора нет.
//  2. С последней одобренной смены прошло >= 12 месяцев - сбора нет.
//  3. Одобренных смен >= 2 - сбор SECOND_CHANGE_YEAR (верхняя ставка).
//  4. Прошло от 6 до 12 месяцев - сбор FIRST_CHANGE_6_TO_12_MONTHS (нижняя ставка).
//  5. Иначе (первая повторная смена раньше 6 месяцев) - сбора нет.
//
// Шаг 5 намеренно воспроизводит исходное правило: первая повторная смена
// раньше 6 месяцев бесплатна, а та же смена между 6 и 12 месяцами платная.
// Не "исправлять" без подтверждения бизнеса (см. DESIGN.md).
//
// Независимо от лестницы, при более чем 2 отклоненных заявках добавляется
// сбор за обработку REPEATED_REQUESTS
func (ps *PlateChangeService) CalculateAdministrativeCharge(subscriptionID, reasonID uint, requestDate time.Time) (models.AdministrativeCharge, error) {
	_ = reasonID // Причина смены не влияет на сбор, но входит в контракт операции

	var approved []models.PlateChangeRequest
	err := ps.db.Where("subscription_id = ? AND status = ?",
		subscriptionID, models.PlateChangeStatusApproved).
		Order("reviewed_at DESC").
		Find(&approved).Error
	if err != nil {
		return models.NoCharge(), fmt.Errorf("ошибка получения одобренных заявок: %w", err)
	}

	charge := models.NoCharge()

	if len(approved) > 0 && approved[0].ReviewedAt != nil {
		monthsSinceLastChange := wholeMonthsBetween(*approved[0].ReviewedAt, requestDate)

		switch {
		case monthsSinceLastChange >= chargeFreeAfterMonths:
			// Сбора нет
		case len(approved) >= 2:
			charge = ps.lookupCharge(models.ChargeReasonSecondChangeYear)
		case monthsSinceLastChange >= reducedChargeFromMonths:
			charge = ps.lookupCharge(models.ChargeReasonFirstChange6To12Months)
		default:
			// Первая повторная смена раньше 6 месяцев - сбора нет
		}
	}

	var rejectedCount int64
	err = ps.db.Model(&models.PlateChangeRequest{}).
		Where("subscription_id = ? AND status = ?", subscriptionID, models.PlateChangeStatusRejected).
		Count(&rejectedCount).Error
	if err != nil {
		return models.NoCharge(), fmt.Errorf("ошибка подсчета отклоненных заявок: %w", err)
	}

	if rejectedCount > repeatedRequestsThreshold {
		charge = charge.Combine(ps.lookupCharge(models.ChargeReasonRepeatedRequests))
	}

	return charge, nil
}

// lookupCharge находит конфигурацию сбора по коду причины. Отсутствующая
// или неактивная конфигурация деградирует до нулевого сбора, а не ломает
// заявку
func (ps *PlateChangeService) lookupCharge(reasonCode models.ChargeReason) models.AdministrativeCharge {
	var config models.AdministrativeChargeConfig
	err := ps.db.Where("reason_code = ? AND is_active = ?", reasonCode, true).
		First(&config).Error
	if err != nil {
		log.Printf("Предупреждение: конфигурация сбора %s не найдена, сбор не начисляется", reasonCode)
		return models.NoCharge()
	}

	return models.AdministrativeCharge{
		Amount:     config.ChargeAmount,
		Reason:     config.Description,
		ReasonCode: reasonCode,
	}
}

// wholeMonthsBetween возвращает число полных месяцев между двумя датами
func wholeMonthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// CreateRequest создает заявку на смену номерного знака с рассчитанным
// административным сбором. Для абонемента не может существовать более
// одной нерассмотренной заявки
func (ps *PlateChangeService) CreateRequest(subscriptionID, reasonID uint, newLicensePlate string, requestDate time.Time) (*models.PlateChangeRequest, error) {
	var subscription models.Subscription
	if err := ps.db.First(&subscription, subscriptionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("абонемент %d не найден", subscriptionID)
		}
		return nil, err
	}

	var reason models.PlateChangeReason
	if err := ps.db.First(&reason, reasonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("причина смены %d не найдена", reasonID)
		}
		return nil, err
	}

	if newLicensePlate == "" || newLicensePlate == subscription.LicensePlate {
		return nil, NewBusinessRuleError("новый номерной знак должен отличаться от текущего")
	}

	// Не более одной нерассмотренной заявки на абонемент
	var pending models.PlateChangeRequest
	err := ps.db.Where("subscription_id = ? AND status = ?",
		subscriptionID, models.PlateChangeStatusPending).First(&pending).Error
	if err == nil {
		return nil, NewBusinessRuleError("для абонемента уже существует нерассмотренная заявка на смену знака")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	charge, err := ps.CalculateAdministrativeCharge(subscriptionID, reasonID, requestDate)
	if err != nil {
		return nil, err
	}

	request := &models.PlateChangeRequest{
		SubscriptionID:                subscriptionID,
		ReasonID:                      reasonID,
		OldLicensePlate:               subscription.LicensePlate,
		NewLicensePlate:               newLicensePlate,
		Status:                        models.PlateChangeStatusPending,
		HasAdministrativeCharge:       charge.HasCharge(),
		AdministrativeChargeAmount:    charge.Amount,
		AdministrativeChargeReason:    charge.Reason,
		AdministrativeChargeReasonKey: string(charge.ReasonCode),
	}

	if err := ps.db.Create(request).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания заявки: %w", err)
	}

	return request, nil
}

// ReviewRequest рассматривает заявку ровно один раз: pending -> approved
// или rejected. При одобрении номерной знак абонемента заменяется новым
// в той же транзакции
func (ps *PlateChangeService) ReviewRequest(requestID, reviewerID uint, approve bool, note string, reviewedAt time.Time) (*models.PlateChangeRequest, error) {
	var request models.PlateChangeRequest

	err := ps.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&request, requestID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("заявка %d не найдена", requestID)
			}
			return err
		}

		if !request.IsPending() {
			return NewBusinessRuleError("заявка %d уже рассмотрена", requestID)
		}

		status := models.PlateChangeStatusRejected
		if approve {
			status = models.PlateChangeStatusApproved
		}

		if err := tx.Model(&request).Updates(map[string]interface{}{
			"status":      status,
			"reviewed_at": reviewedAt,
			"reviewed_by": reviewerID,
			"review_note": note,
		}).Error; err != nil {
			return fmt.Errorf("ошибка обновления заявки: %w", err)
		}
		request.Status = status
		request.ReviewedAt = &reviewedAt
		request.ReviewedBy = &reviewerID
		request.ReviewNote = note

		if approve {
			if err := tx.Model(&models.Subscription{}).
				Where("id = ?", request.SubscriptionID).
				Update("license_plate", request.NewLicensePlate).Error; err != nil {
				return fmt.Errorf("ошибка замены номерного знака абонемента: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}
