package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"backend_parking/services"
)

// SettlementAPI предоставляет API для подарков часов и взаиморасчетов
type SettlementAPI struct {
	settlementService *services.SettlementService
	reportService     *services.ReportService
}

// NewSettlementAPI создает новый экземпляр SettlementAPI
func NewSettlementAPI(settlementService *services.SettlementService, reportService *services.ReportService) *SettlementAPI {
	return &SettlementAPI{
		settlementService: settlementService,
		reportService:     reportService,
	}
}

// RegisterRoutes регистрирует маршруты для API взаиморасчетов
func (sa *SettlementAPI) RegisterRoutes(router *gin.RouterGroup) {
	settlements := router.Group("/settlements")
	{
		settlements.POST("/free-hours", sa.ApplyFreeHours)
		settlements.POST("", sa.GenerateSettlement)
		settlements.GET("", sa.GetHistory)
		settlements.GET("/:id/export", sa.ExportSettlement)
	}
}

// ApplyFreeHoursRequest представляет запрос на начисление бесплатных часов
type ApplyFreeHoursRequest struct {
	TicketID   uint            `json:"ticket_id" binding:"required"`
	BusinessID uint            `json:"business_id" binding:"required"`
	Hours      decimal.Decimal `json:"hours" binding:"required"`
	GrantedAt  *time.Time      `json:"granted_at"`
}

// ApplyFreeHours применяет подарок бесплатных часов бизнеса к талону
func (sa *SettlementAPI) ApplyFreeHours(c *gin.Context) {
	var req ApplyFreeHoursRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	grantedAt := time.Now()
	if req.GrantedAt != nil {
		grantedAt = *req.GrantedAt
	}

	grant, err := sa.settlementService.ApplyFreeHours(req.TicketID, req.BusinessID, req.Hours, grantedAt)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, grant)
}

// GenerateSettlementRequest представляет запрос на формирование расчета
type GenerateSettlementRequest struct {
	BusinessID   uint      `json:"business_id" binding:"required"`
	BranchID     uint      `json:"branch_id" binding:"required"`
	PeriodStart  time.Time `json:"period_start" binding:"required"`
	PeriodEnd    time.Time `json:"period_end" binding:"required"`
	Observations string    `json:"observations"`
}

// GenerateSettlement формирует расчет по нерассчитанным подаркам за период
func (sa *SettlementAPI) GenerateSettlement(c *gin.Context) {
	var req GenerateSettlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	settlement, err := sa.settlementService.GenerateSettlement(req.BusinessID, req.BranchID, req.PeriodStart, req.PeriodEnd, req.Observations)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, settlement)
}

// GetHistory возвращает историю расчетов с пагинацией
func (sa *SettlementAPI) GetHistory(c *gin.Context) {
	var businessID, branchID *uint
	if raw := c.Query("business_id"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
			id := uint(parsed)
			businessID = &id
		}
	}
	if raw := c.Query("branch_id"); raw != "" {
		if parsed, err := strconv.ParseUint(raw, 10, 32); err == nil {
			id := uint(parsed)
			branchID = &id
		}
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	history, total, err := sa.settlementService.GetSettlementHistory(businessID, branchID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   history,
		"total":  total,
	})
}

// ExportSettlement выгружает расчет в Excel или PDF
func (sa *SettlementAPI) ExportSettlement(c *gin.Context) {
	settlementID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "xlsx")
	fileName := services.SuggestedSettlementFileName(settlementID, format)
	c.Header("Content-Disposition", "attachment; filename="+fileName)

	switch format {
	case "xlsx":
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := sa.reportService.ExportSettlementToExcel(settlementID, c.Writer); err != nil {
			respondError(c, err)
		}
	case "pdf":
		c.Header("Content-Type", "application/pdf")
		if err := sa.reportService.ExportSettlementToPDF(settlementID, c.Writer); err != nil {
			respondError(c, err)
		}
	default:
		respondBadRequest(c, "Неподдерживаемый формат выгрузки: "+format)
	}
}
