package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"backend_parking/services"
)

// PlateChangeAPI предоставляет API для заявок на смену номера
type PlateChangeAPI struct {
	plateChangeService *services.PlateChangeService
}

// NewPlateChangeAPI создает новый экземпляр PlateChangeAPI
func NewPlateChangeAPI(plateChangeService *services.PlateChangeService) *PlateChangeAPI {
	return &PlateChangeAPI{plateChangeService: plateChangeService}
}

// RegisterRoutes регистрирует маршруты для API смены номеров
func (pa *PlateChangeAPI) RegisterRoutes(router *gin.RouterGroup) {
	plateChanges := router.Group("/plate-changes")
	{
		plateChanges.POST("", pa.CreateRequest)
		plateChanges.POST("/:id/review", pa.ReviewRequest)
		plateChanges.GET("/charge-preview", pa.PreviewCharge)
	}
}

// CreatePlateChangeRequest представляет запрос на смену номера
type CreatePlateChangeRequest struct {
	SubscriptionID  uint   `json:"subscription_id" binding:"required"`
	ReasonID        uint   `json:"reason_id" binding:"required"`
	NewLicensePlate string `json:"new_license_plate" binding:"required"`
}

// CreateRequest создает заявку на смену номера с расчетом админ. сбора
func (pa *PlateChangeAPI) CreateRequest(c *gin.Context) {
	var req CreatePlateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	request, err := pa.plateChangeService.CreateRequest(req.SubscriptionID, req.ReasonID, req.NewLicensePlate, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, request)
}

// ReviewPlateChangeRequest представляет решение по заявке
type ReviewPlateChangeRequest struct {
	ReviewerID uint   `json:"reviewer_id" binding:"required"`
	Approve    *bool  `json:"approve" binding:"required"`
	Note       string `json:"note"`
}

// ReviewRequest рассматривает заявку на смену номера
func (pa *PlateChangeAPI) ReviewRequest(c *gin.Context) {
	requestID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req ReviewPlateChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	request, err := pa.plateChangeService.ReviewRequest(requestID, req.ReviewerID, *req.Approve, req.Note, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, request)
}

// PreviewCharge считает административный сбор без создания заявки
func (pa *PlateChangeAPI) PreviewCharge(c *gin.Context) {
	subscriptionID, ok := parseUintQuery(c, "subscription_id")
	if !ok {
		return
	}
	reasonID, ok := parseUintQuery(c, "reason_id")
	if !ok {
		return
	}

	charge, err := pa.plateChangeService.CalculateAdministrativeCharge(subscriptionID, reasonID, time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, charge)
}
