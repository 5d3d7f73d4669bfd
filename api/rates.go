package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"backend_parking/services"
)

// RateAPI предоставляет API для управления тарифами
type RateAPI struct {
	rateService *services.RateService
}

// NewRateAPI создает новый экземпляр RateAPI
func NewRateAPI(rateService *services.RateService) *RateAPI {
	return &RateAPI{rateService: rateService}
}

// RegisterRoutes регистрирует маршруты для API тарифов
func (ra *RateAPI) RegisterRoutes(router *gin.RouterGroup) {
	rates := router.Group("/rates")
	{
		rates.POST("/base", ra.CreateBaseRate)
		rates.POST("/branch", ra.CreateBranchRate)
		rates.GET("/resolve/:branch_id", ra.ResolveRate)
	}
}

// CreateBaseRateRequest представляет запрос на создание базового тарифа
type CreateBaseRateRequest struct {
	AmountPerHour decimal.Decimal `json:"amount_per_hour" binding:"required"`
	StartDate     time.Time       `json:"start_date" binding:"required"`
	EndDate       *time.Time      `json:"end_date"`
	Description   string          `json:"description"`
}

// CreateBaseRate создает новый базовый тариф сети
func (ra *RateAPI) CreateBaseRate(c *gin.Context) {
	var req CreateBaseRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	rate, err := ra.rateService.CreateBaseRate(req.AmountPerHour, req.StartDate, req.EndDate, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, rate)
}

// CreateBranchRateRequest представляет запрос на создание тарифа филиала
type CreateBranchRateRequest struct {
	BranchID      uint            `json:"branch_id" binding:"required"`
	AmountPerHour decimal.Decimal `json:"amount_per_hour" binding:"required"`
	Description   string          `json:"description"`
}

// CreateBranchRate создает переопределение тарифа для филиала
func (ra *RateAPI) CreateBranchRate(c *gin.Context) {
	var req CreateBranchRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	rate, err := ra.rateService.CreateBranchRate(req.BranchID, req.AmountPerHour, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, rate)
}

// ResolveRate возвращает действующий тариф для филиала
func (ra *RateAPI) ResolveRate(c *gin.Context) {
	branchID, ok := parseUintParam(c, "branch_id")
	if !ok {
		return
	}

	rate, err := ra.rateService.ResolveRateForBranch(branchID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"branch_id":       branchID,
		"amount_per_hour": rate,
	})
}
