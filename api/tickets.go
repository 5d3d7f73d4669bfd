package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"backend_parking/services"
)

// TicketAPI предоставляет API для работы с парковочными талонами
type TicketAPI struct {
	ticketService *services.TicketService
}

// NewTicketAPI создает новый экземпляр TicketAPI
func NewTicketAPI(ticketService *services.TicketService) *TicketAPI {
	return &TicketAPI{ticketService: ticketService}
}

// RegisterRoutes регистрирует маршруты для API талонов
func (ta *TicketAPI) RegisterRoutes(router *gin.RouterGroup) {
	tickets := router.Group("/tickets")
	{
		tickets.POST("/entry", ta.RegisterEntry)
		tickets.POST("/:id/exit", ta.ProcessExit)
		tickets.POST("/lost", ta.ReportLost)
		tickets.GET("/folio/:folio", ta.GetByFolio)
	}
}

// RegisterEntryRequest представляет запрос на регистрацию въезда
type RegisterEntryRequest struct {
	LicensePlate  string     `json:"license_plate" binding:"required"`
	VehicleTypeID uint       `json:"vehicle_type_id" binding:"required"`
	BranchID      uint       `json:"branch_id" binding:"required"`
	EntryTime     *time.Time `json:"entry_time"`
}

// RegisterEntry регистрирует въезд автомобиля и выдает талон
func (ta *TicketAPI) RegisterEntry(c *gin.Context) {
	var req RegisterEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	entryTime := time.Now()
	if req.EntryTime != nil {
		entryTime = *req.EntryTime
	}

	ticket, err := ta.ticketService.RegisterEntry(req.LicensePlate, req.VehicleTypeID, req.BranchID, entryTime)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, ticket)
}

// ProcessExitRequest представляет запрос на обработку выезда
type ProcessExitRequest struct {
	ExitTime *time.Time `json:"exit_time"`
}

// ProcessExit закрывает талон и считает начисление
func (ta *TicketAPI) ProcessExit(c *gin.Context) {
	ticketID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req ProcessExitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	exitTime := time.Now()
	if req.ExitTime != nil {
		exitTime = *req.ExitTime
	}

	charge, err := ta.ticketService.ProcessExit(ticketID, exitTime)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, charge)
}

// ReportLostRequest представляет заявление об утере талона
type ReportLostRequest struct {
	Folio      string     `json:"folio" binding:"required"`
	ReportedAt *time.Time `json:"reported_at"`
}

// ReportLost оформляет утерю талона с фиксированным начислением
func (ta *TicketAPI) ReportLost(c *gin.Context) {
	var req ReportLostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	reportedAt := time.Now()
	if req.ReportedAt != nil {
		reportedAt = *req.ReportedAt
	}

	charge, err := ta.ticketService.ReportLostTicket(req.Folio, reportedAt)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, charge)
}

// GetByFolio возвращает талон по фолио
func (ta *TicketAPI) GetByFolio(c *gin.Context) {
	ticket, err := ta.ticketService.GetByFolio(c.Param("folio"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, ticket)
}
