package main

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"backend_parking/api"
	"backend_parking/config"
	"backend_parking/database"
	"backend_parking/services"
)

// initDB инициализирует подключение к базе данных
func initDB() {
	log.Println("🔧 Инициализация базы данных...")

	// Создаем базу данных, если она не существует
	if err := database.CreateDatabaseIfNotExists(); err != nil {
		log.Fatal("❌ Ошибка при создании базы данных:", err)
	}

	// Подключаемся к базе данных
	if err := database.ConnectDatabase(); err != nil {
		log.Fatal("❌ Ошибка подключения к базе данных:", err)
	}

	log.Println("✅ База данных успешно инициализирована")
}

func main() {
	// Загружаем конфигурацию (включая .env)
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("❌ Ошибка загрузки конфигурации:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Некорректная конфигурация:", err)
	}

	// Инициализируем базу данных
	initDB()
	db := database.GetDB()

	// Redis опционален: без него тарифы читаются напрямую из БД
	if err := database.InitRedis(); err != nil {
		log.Printf("⚠️  Redis недоступен, кэширование тарифов отключено: %v", err)
	}

	// Дополнительные индексы производительности
	if err := database.CreatePerformanceIndexes(db); err != nil {
		log.Printf("⚠️  Ошибка создания индексов: %v", err)
	}

	// Собираем сервисный слой
	cacheService := services.NewCacheService(database.GetRedis(), log.Default())
	rateService := services.NewRateService(db, cacheService)
	subscriptionService := services.NewSubscriptionService(db, rateService)
	ticketService := services.NewTicketService(db, rateService, subscriptionService)
	settlementService := services.NewSettlementService(db)
	plateChangeService := services.NewPlateChangeService(db)
	reportService := services.NewReportService(db)
	notificationService := services.NewNotificationService(db, cfg)

	// Уведомления о порогах потребления абонементов
	services.RegisterUsageListener(notificationService.HandleUsageThresholdEvent)

	// Планировщик автопродления и сброса циклов
	scheduler := services.NewRenewalSchedulerService(subscriptionService, notificationService, cfg)
	if err := scheduler.Start(); err != nil {
		log.Fatal("❌ Ошибка запуска планировщика:", err)
	}
	defer scheduler.Stop()

	// Настраиваем Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	// Базовые роуты
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "success",
			"message":  "pong",
			"database": "connected",
		})
	})

	// API роуты
	apiGroup := r.Group("/api")
	api.NewRateAPI(rateService).RegisterRoutes(apiGroup)
	api.NewTicketAPI(ticketService).RegisterRoutes(apiGroup)
	api.NewSubscriptionAPI(db, subscriptionService).RegisterRoutes(apiGroup)
	api.NewSettlementAPI(settlementService, reportService).RegisterRoutes(apiGroup)
	api.NewPlateChangeAPI(plateChangeService).RegisterRoutes(apiGroup)

	log.Printf("🚀 Сервер запущен на порту %s", cfg.App.Port)
	if err := r.Run(":" + cfg.App.Port); err != nil {
		log.Fatal("❌ Ошибка запуска сервера:", err)
	}
}
