package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"backend_parking/models"
	"backend_parking/services"
)

// SubscriptionAPI предоставляет API для работы с абонементами
type SubscriptionAPI struct {
	db                  *gorm.DB
	subscriptionService *services.SubscriptionService
}

// NewSubscriptionAPI создает новый экземпляр SubscriptionAPI
func NewSubscriptionAPI(db *gorm.DB, subscriptionService *services.SubscriptionService) *SubscriptionAPI {
	return &SubscriptionAPI{db: db, subscriptionService: subscriptionService}
}

// RegisterRoutes регистрирует маршруты для API абонементов
func (sa *SubscriptionAPI) RegisterRoutes(router *gin.RouterGroup) {
	subscriptions := router.Group("/subscriptions")
	{
		subscriptions.POST("", sa.Purchase)
		subscriptions.POST("/:id/renew", sa.Renew)
		subscriptions.GET("/plans", sa.GetPlans)
		subscriptions.GET("/by-plate/:plate", sa.GetActiveByPlate)
	}

	users := router.Group("/users")
	{
		users.POST("", sa.CreateUser)
	}
}

// PurchaseRequest представляет запрос на покупку абонемента
type PurchaseRequest struct {
	UserID       uint       `json:"user_id" binding:"required"`
	PlanID       uint       `json:"plan_id" binding:"required"`
	LicensePlate string     `json:"license_plate" binding:"required"`
	IsAnnual     bool       `json:"is_annual"`
	AutoRenew    bool       `json:"auto_renew"`
	StartDate    *time.Time `json:"start_date"`
}

// Purchase оформляет покупку абонемента
func (sa *SubscriptionAPI) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	startDate := time.Now()
	if req.StartDate != nil {
		startDate = *req.StartDate
	}

	subscription, err := sa.subscriptionService.Purchase(req.UserID, req.PlanID, req.LicensePlate, req.IsAnnual, req.AutoRenew, startDate)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, subscription)
}

// Renew продлевает абонемент вручную: создает новую запись,
// начинающуюся в момент окончания прежней
func (sa *SubscriptionAPI) Renew(c *gin.Context) {
	subscriptionID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var previous models.Subscription
	if err := sa.db.First(&previous, subscriptionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Абонемент не найден",
		})
		return
	}

	renewed, err := sa.subscriptionService.Renew(&previous)
	if err != nil {
		respondError(c, err)
		return
	}

	respondCreated(c, renewed)
}

// GetPlans возвращает активные тарифные планы абонементов
func (sa *SubscriptionAPI) GetPlans(c *gin.Context) {
	var plans []models.SubscriptionPlan
	if err := sa.db.Where("is_active = ?", true).Find(&plans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка при получении планов абонементов",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   plans,
		"count":  len(plans),
	})
}

// GetActiveByPlate возвращает действующий абонемент по номеру авто
func (sa *SubscriptionAPI) GetActiveByPlate(c *gin.Context) {
	subscription, err := sa.subscriptionService.GetActiveByPlate(c.Param("plate"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	if subscription == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"status": "error",
			"error":  "Действующий абонемент не найден",
		})
		return
	}

	respondOK(c, subscription)
}

// CreateUserRequest представляет запрос на регистрацию пользователя
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// CreateUser регистрирует владельца абонемента
func (sa *SubscriptionAPI) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Некорректные данные запроса: "+err.Error())
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка обработки пароля",
		})
		return
	}

	user := models.User{
		Email:     req.Email,
		Password:  string(hashed),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  true,
	}
	if err := sa.db.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status": "error",
			"error":  "Ошибка создания пользователя",
		})
		return
	}

	respondCreated(c, user)
}
