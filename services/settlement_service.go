package services

import (
	"errors"
	"fmt"
	"time"

	"backend_parking/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SettlementService предоставляет функции для учета подаренных коммерциями
// бесплатных часов и их периодического расчета
type SettlementService struct {
	db *gorm.DB
}

// NewSettlementService создает новый экземпляр SettlementService
func NewSettlementService(db *gorm.DB) *SettlementService {
	return &SettlementService{db: db}
}

// IsAffiliated проверяет действующую аффилиацию коммерции с филиалом
func (ss *SettlementService) IsAffiliated(businessID, branchID uint) (bool, error) {
	var count int64
	err := ss.db.Model(&models.BusinessBranchAffiliation{}).
		Where("business_id = ? AND branch_id = ? AND is_active = ?", businessID, branchID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ApplyFreeHours записывает подарок бесплатных часов от коммерции по открытому
// талону. Коммерция должна быть активно аффилирована с филиалом талона
func (ss *SettlementService) ApplyFreeHours(ticketID, businessID uint, hours decimal.Decimal, grantedAt time.Time) (*models.BusinessFreeHours, error) {
	if hours.LessThanOrEqual(decimal.Zero) {
		return nil, NewBusinessRuleError("количество подаренных часов должно быть положительным")
	}

	var ticket models.Ticket
	if err := ss.db.First(&ticket, ticketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("талон %d не найден", ticketID)
		}
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, NewBusinessRuleError("часы можно дарить только по открытому талону")
	}

	var business models.Business
	if err := ss.db.First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("коммерция %d не найдена", businessID)
		}
		return nil, err
	}

	affiliated, err := ss.IsAffiliated(businessID, ticket.BranchID)
	if err != nil {
		return nil, err
	}
	if !affiliated {
		return nil, NewBusinessRuleError("коммерция \"%s\" не аффилирована с филиалом талона", business.Name)
	}

	grant := &models.BusinessFreeHours{
		TicketID:     ticketID,
		BusinessID:   businessID,
		BranchID:     ticket.BranchID,
		GrantedHours: hours,
		GrantedAt:    grantedAt,
		IsSettled:    false,
	}

	if err := ss.db.Create(grant).Error; err != nil {
		return nil, fmt.Errorf("ошибка записи подаренных часов: %w", err)
	}

	return grant, nil
}

// GenerateSettlement формирует расчет с коммерцией за период
// [periodStart, periodEnd): агрегирует нерассчитанные подарки, создает
// запись расчета с детализацией по талонам и помечает подарки включенными.
// Создание расчета и пометка подарков выполняются в одной транзакции:
// при сбое не остается ни осиротевших расчетов, ни дважды посчитанных часов
func (ss *SettlementService) GenerateSettlement(businessID, branchID uint, periodStart, periodEnd time.Time, observations string) (*models.BusinessSettlementHistory, error) {
	if !periodEnd.After(periodStart) {
		return nil, NewBusinessRuleError("конец периода должен быть позже начала")
	}

	var business models.Business
	if err := ss.db.First(&business, businessID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("коммерция %d не найдена", businessID)
		}
		return nil, err
	}

	var branch models.Branch
	if err := ss.db.First(&branch, branchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("филиал %d не найден", branchID)
		}
		return nil, err
	}

	var settlement *models.BusinessSettlementHistory

	err := ss.db.Transaction(func(tx *gorm.DB) error {
		// Нерассчитанные подарки коммерции в филиале за период.
		// Уже включенные в расчет подарки (is_settled = true) не выбираются
		// повторно: повторная генерация за тот же период без новых подарков
		// завершается ошибкой "нет нерассчитанных часов"
		var grants []models.BusinessFreeHours
		err := tx.Preload("Ticket").
			Where("business_id = ? AND branch_id = ? AND is_settled = ? AND granted_at >= ? AND granted_at < ?",
				businessID, branchID, false, periodStart, periodEnd).
			Order("granted_at ASC").
			Find(&grants).Error
		if err != nil {
			return fmt.Errorf("ошибка получения нерассчитанных часов: %w", err)
		}

		if len(grants) == 0 {
			return NewBusinessRuleError("нет нерассчитанных часов за период")
		}

		// Агрегируем часы по талонам: одна строка детализации на талон
		totalHours := decimal.Zero
		grantIDs := make([]uint, 0, len(grants))
		ticketOrder := make([]uint, 0, len(grants))
		hoursByTicket := make(map[uint]decimal.Decimal)
		ticketByID := make(map[uint]*models.Ticket)

		for i := range grants {
			grant := &grants[i]
			totalHours = totalHours.Add(grant.GrantedHours)
			grantIDs = append(grantIDs, grant.ID)

			if _, seen := hoursByTicket[grant.TicketID]; !seen {
				ticketOrder = append(ticketOrder, grant.TicketID)
				ticketByID[grant.TicketID] = grant.Ticket
			}
			hoursByTicket[grant.TicketID] = hoursByTicket[grant.TicketID].Add(grant.GrantedHours)
		}

		settlement = &models.BusinessSettlementHistory{
			BusinessID:   businessID,
			BranchID:     branchID,
			PeriodStart:  periodStart,
			PeriodEnd:    periodEnd,
			TotalHours:   totalHours,
			TotalAmount:  RoundMoney(totalHours.Mul(business.RatePerHour)),
			TicketCount:  len(ticketOrder),
			Observations: observations,
		}

		if err := tx.Create(settlement).Error; err != nil {
			return fmt.Errorf("ошибка создания расчета: %w", err)
		}

		for _, ticketID := range ticketOrder {
			detail := &models.SettlementTicketDetail{
				SettlementID: settlement.ID,
				TicketID:     ticketID,
				Hours:        hoursByTicket[ticketID],
			}
			if ticket := ticketByID[ticketID]; ticket != nil {
				detail.Folio = ticket.Folio
				detail.LicensePlate = ticket.LicensePlate
			}
			if err := tx.Create(detail).Error; err != nil {
				return fmt.Errorf("ошибка создания детализации расчета: %w", err)
			}
		}

		// Помечаем подарки включенными только после создания записи расчета
		res := tx.Model(&models.BusinessFreeHours{}).
			Where("id IN ?", grantIDs).
			Update("is_settled", true)
		if res.Error != nil {
			return fmt.Errorf("ошибка пометки подаренных часов: %w", res.Error)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlement, nil
}

// GetSettlementHistory возвращает историю расчетов с пагинацией
func (ss *SettlementService) GetSettlementHistory(businessID, branchID *uint, limit, offset int) ([]models.BusinessSettlementHistory, int64, error) {
	query := ss.db.Model(&models.BusinessSettlementHistory{})
	if businessID != nil {
		query = query.Where("business_id = ?", *businessID)
	}
	if branchID != nil {
		query = query.Where("branch_id = ?", *branchID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчета расчетов: %w", err)
	}

	listQuery := query.Preload("Business").Preload("Branch").Preload("Details").
		Order("created_at DESC")
	if limit > 0 {
		listQuery = listQuery.Limit(limit)
	}
	if offset > 0 {
		listQuery = listQuery.Offset(offset)
	}

	var settlements []models.BusinessSettlementHistory
	if err := listQuery.Find(&settlements).Error; err != nil {
		return nil, 0, fmt.Errorf("ошибка получения истории расчетов: %w", err)
	}

	return settlements, total, nil
}
