package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"backend_parking/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LostTicketReportWindow - окно, в течение которого принимается
// заявление об утере талона, считая от въезда
const LostTicketReportWindow = 24 * time.Hour

// TicketService предоставляет функции для работы с парковочными талонами:
// регистрация въезда, оформление выезда и расчет стоимости
type TicketService struct {
	db                  *gorm.DB
	rateService         *RateService
	subscriptionService *SubscriptionService
}

// NewTicketService создает новый экземпляр TicketService
func NewTicketService(db *gorm.DB, rateService *RateService, subscriptionService *SubscriptionService) *TicketService {
	return &TicketService{
		db:                  db,
		rateService:         rateService,
		subscriptionService: subscriptionService,
	}
}

// TicketChargeResponse содержит полную разбивку стоимости выезда
type TicketChargeResponse struct {
	TicketID uint   `json:"ticket_id"`
	Folio    string `json:"folio"`

	// Часы: общее пребывание, подаренные коммерциями, тарифицируемые
	TotalHours       decimal.Decimal `json:"total_hours"`
	FreeHoursGranted decimal.Decimal `json:"free_hours_granted"`
	BillableHours    decimal.Decimal `json:"billable_hours"`

	// Почасовая тарификация (для талонов без абонемента)
	RateApplied decimal.Decimal `json:"rate_applied"`
	Subtotal    decimal.Decimal `json:"subtotal"`

	// Списание с абонемента (для подписанных номерных знаков)
	SubscriptionHoursConsumed decimal.Decimal `json:"subscription_hours_consumed"`
	SubscriptionOverageHours  decimal.Decimal `json:"subscription_overage_hours"`
	SubscriptionOverageCharge decimal.Decimal `json:"subscription_overage_charge"`

	// Итого к оплате
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// RegisterEntry регистрирует въезд автомобиля: создает открытый талон
// с уникальным номером. Если номерной знак подписан, талон привязывается
// к действующему абонементу
func (ts *TicketService) RegisterEntry(licensePlate string, vehicleTypeID, branchID uint, entryTime time.Time) (*models.Ticket, error) {
	var branch models.Branch
	if err := ts.db.First(&branch, branchID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("филиал %d не найден", branchID)
		}
		return nil, err
	}
	if !branch.IsActive {
		return nil, NewBusinessRuleError("филиал \"%s\" не работает", branch.Name)
	}

	var vehicleType models.VehicleType
	if err := ts.db.First(&vehicleType, vehicleTypeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("тип транспортного средства %d не найден", vehicleTypeID)
		}
		return nil, err
	}

	// Один автомобиль - не более одного открытого талона
	var open models.Ticket
	err := ts.db.Where("license_plate = ? AND status = ?", licensePlate, models.TicketStatusInProgress).
		First(&open).Error
	if err == nil {
		return nil, NewBusinessRuleError("для номерного знака %s уже открыт талон %s", licensePlate, open.Folio)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ticket := &models.Ticket{
		Folio:         generateFolio(branchID),
		LicensePlate:  licensePlate,
		VehicleTypeID: vehicleTypeID,
		BranchID:      branchID,
		EntryTime:     entryTime,
		Status:        models.TicketStatusInProgress,
	}

	// Привязываем действующий абонемент, если номерной знак подписан
	subscription, err := ts.subscriptionService.GetActiveByPlate(licensePlate, entryTime)
	if err != nil {
		return nil, err
	}
	if subscription != nil {
		ticket.SubscriptionID = &subscription.ID
	}

	if err := ts.db.Create(ticket).Error; err != nil {
		return nil, fmt.Errorf("ошибка создания талона: %w", err)
	}

	return ticket, nil
}

// generateFolio генерирует уникальный человекочитаемый номер талона
func generateFolio(branchID uint) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:10]
	return fmt.Sprintf("T%d-%s", branchID, suffix)
}

// ProcessExit оформляет выезд автомобиля: устанавливает время выезда
// (ровно один раз, только из статуса in_progress) и рассчитывает стоимость.
// Чтение и запись выполняются в одной транзакции: частичное применение
// (перерасход записан, а счетчик часов не обновлен) нарушило бы инвариант,
// что ConsumedHours равен сумме записей потребления
func (ts *TicketService) ProcessExit(ticketID uint, exitTime time.Time) (*TicketChargeResponse, error) {
	var response *TicketChargeResponse

	err := ts.db.Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.First(&ticket, ticketID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("талон %d не найден", ticketID)
			}
			return err
		}

		if !ticket.IsOpen() {
			return NewBusinessRuleError("талон %s уже закрыт", ticket.Folio)
		}
		if exitTime.Before(ticket.EntryTime) {
			return NewBusinessRuleError("время выезда не может быть раньше времени въезда")
		}

		if err := tx.Model(&ticket).Updates(map[string]interface{}{
			"exit_time": exitTime,
			"status":    models.TicketStatusCompleted,
		}).Error; err != nil {
			return fmt.Errorf("ошибка закрытия талона: %w", err)
		}
		ticket.ExitTime = &exitTime
		ticket.Status = models.TicketStatusCompleted

		charge, err := ts.calculateCharge(tx, &ticket)
		if err != nil {
			return err
		}

		response = charge
		return nil
	})
	if err != nil {
		return nil, err
	}

	return response, nil
}

// calculateCharge рассчитывает стоимость закрытого талона внутри транзакции tx
func (ts *TicketService) calculateCharge(tx *gorm.DB, ticket *models.Ticket) (*TicketChargeResponse, error) {
	response := &TicketChargeResponse{
		TicketID:                  ticket.ID,
		Folio:                     ticket.Folio,
		FreeHoursGranted:          decimal.Zero,
		BillableHours:             decimal.Zero,
		RateApplied:               decimal.Zero,
		Subtotal:                  decimal.Zero,
		SubscriptionHoursConsumed: decimal.Zero,
		SubscriptionOverageHours:  decimal.Zero,
		SubscriptionOverageCharge: decimal.Zero,
		TotalAmount:               decimal.Zero,
	}

	// Общее пребывание в часах, усеченное до 2 знаков: доля минуты
	// за границей 2 знаков никогда не тарифицируется
	response.TotalHours = TruncateHours(ticket.ExitTime.Sub(ticket.EntryTime))

	// Подаренные коммерциями часы учитываются независимо от того,
	// включены ли они уже в какой-либо расчет с коммерцией
	var freeHours []models.BusinessFreeHours
	if err := tx.Where("ticket_id = ?", ticket.ID).Find(&freeHours).Error; err != nil {
		return nil, fmt.Errorf("ошибка получения подаренных часов: %w", err)
	}
	for _, grant := range freeHours {
		response.FreeHoursGranted = response.FreeHoursGranted.Add(grant.GrantedHours)
	}

	// Тарифицируемые часы: общее пребывание минус подарки, не меньше нуля
	response.BillableHours = MaxZero(response.TotalHours.Sub(response.FreeHoursGranted))

	// Подписанный номерной знак: часы списываются с абонемента,
	// к оплате - только перерасход сверх месячного лимита.
	// Абонемент, истекший между въездом и выездом, не участвует в расчете
	if ticket.SubscriptionID != nil {
		var subscription models.Subscription
		if err := tx.First(&subscription, *ticket.SubscriptionID).Error; err != nil {
			return nil, fmt.Errorf("ошибка получения абонемента талона: %w", err)
		}

		if subscription.IsActiveAt(*ticket.ExitTime) {
			consumption, err := ts.subscriptionService.ConsumeHours(tx, subscription.ID, ticket, response.BillableHours)
			if err != nil {
				return nil, err
			}

			response.SubscriptionHoursConsumed = consumption.HoursConsumed
			response.SubscriptionOverageHours = consumption.OverageHours
			response.SubscriptionOverageCharge = consumption.OverageCharge
			response.TotalAmount = consumption.OverageCharge
			return response, nil
		}
	}

	// Обычный талон: почасовая тарификация по тарифу филиала.
	// Тариф читается через tx, чтобы расчет выезда целиком оставался
	// в границах одной транзакции
	rate, err := ts.rateService.ResolveRateForBranchTx(tx, ticket.BranchID)
	if err != nil {
		return nil, err
	}

	response.RateApplied = rate
	response.Subtotal = RoundMoney(response.BillableHours.Mul(rate))
	response.TotalAmount = response.Subtotal

	return response, nil
}

// ReportLostTicket оформляет заявление об утере талона. Принимается только
// в течение 24 часов с момента въезда; к оплате - полные сутки по тарифу
// филиала. Чтение тарифа и закрытие талона выполняются в одной транзакции,
// как и при обычном выезде
func (ts *TicketService) ReportLostTicket(folio string, reportedAt time.Time) (*TicketChargeResponse, error) {
	var response *TicketChargeResponse

	err := ts.db.Transaction(func(tx *gorm.DB) error {
		var ticket models.Ticket
		if err := tx.Where("folio = ?", folio).First(&ticket).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NewNotFoundError("талон %s не найден", folio)
			}
			return err
		}

		if !ticket.IsOpen() {
			return NewBusinessRuleError("талон %s уже закрыт", ticket.Folio)
		}
		if reportedAt.Sub(ticket.EntryTime) > LostTicketReportWindow {
			return NewBusinessRuleError("заявление об утере талона принимается только в течение 24 часов с момента въезда")
		}

		rate, err := ts.rateService.ResolveRateForBranchTx(tx, ticket.BranchID)
		if err != nil {
			return err
		}

		err = tx.Model(&ticket).Updates(map[string]interface{}{
			"exit_time": reportedAt,
			"status":    models.TicketStatusLost,
		}).Error
		if err != nil {
			return fmt.Errorf("ошибка оформления утери талона: %w", err)
		}

		// Утерянный талон оплачивается как полные сутки
		fullDay := decimal.NewFromInt(24)
		amount := RoundMoney(fullDay.Mul(rate))

		response = &TicketChargeResponse{
			TicketID:      ticket.ID,
			Folio:         ticket.Folio,
			TotalHours:    fullDay,
			BillableHours: fullDay,
			RateApplied:   rate,
			Subtotal:      amount,
			TotalAmount:   amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return response, nil
}

// GetByFolio возвращает талон по его номеру
func (ts *TicketService) GetByFolio(folio string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := ts.db.Preload("Branch").Preload("VehicleType").Preload("Subscription").
		Where("folio = ?", folio).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewNotFoundError("талон %s не найден", folio)
		}
		return nil, err
	}
	return &ticket, nil
}
