package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"backend_parking/database"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// CacheService предоставляет методы для кэширования
type CacheService struct {
	redis  *redis.Client
	logger *log.Logger
}

// NewCacheService создает новый экземпляр CacheService
func NewCacheService(redisClient *redis.Client, logger *log.Logger) *CacheService {
	return &CacheService{
		redis:  redisClient,
		logger: logger,
	}
}

// Get получает значение из кэша
func (cs *CacheService) Get(ctx context.Context, key string) (string, error) {
	if cs.redis == nil {
		return "", fmt.Errorf("Redis не подключен")
	}

	val, err := cs.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", fmt.Errorf("ключ не найден")
	}
	return val, err
}

// Set сохраняет значение в кэш
func (cs *CacheService) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if cs.redis == nil {
		if cs.logger != nil {
			cs.logger.Printf("Redis не подключен, пропускаем кэширование для ключа: %s", key)
		}
		return nil // Не возвращаем ошибку, просто пропускаем кэширование
	}

	return cs.redis.Set(ctx, key, value, ttl).Err()
}

// Del удаляет значение из кэша
func (cs *CacheService) Del(ctx context.Context, key string) error {
	if cs.redis == nil {
		return nil
	}

	return cs.redis.Del(ctx, key).Err()
}

// Константы для TTL кэша
const (
	CacheTTLShort  = 5 * time.Minute  // Для часто изменяемых данных
	CacheTTLMedium = 15 * time.Minute // Для умеренно изменяемых данных
	CacheTTLLong   = 1 * time.Hour    // Для редко изменяемых данных
)

// CacheBranchRate кэширует разрешенный тариф филиала
func (cs *CacheService) CacheBranchRate(branchID uint, rate decimal.Decimal) error {
	key := database.GenerateBranchRateCacheKey(branchID)
	return cs.Set(database.Ctx, key, rate.String(), CacheTTLMedium)
}

// GetCachedBranchRate получает тариф филиала из кэша
func (cs *CacheService) GetCachedBranchRate(branchID uint) (decimal.Decimal, error) {
	key := database.GenerateBranchRateCacheKey(branchID)
	val, err := cs.Get(database.Ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(val)
}

// InvalidateBranchRate инвалидирует кэш тарифа филиала
func (cs *CacheService) InvalidateBranchRate(branchID uint) error {
	key := database.GenerateBranchRateCacheKey(branchID)
	return cs.Del(database.Ctx, key)
}

// InvalidateAllRates инвалидирует весь кэш тарифов (при смене базового тарифа)
func (cs *CacheService) InvalidateAllRates() error {
	if cs.redis == nil {
		return nil
	}

	pattern := database.GenerateRateCacheKey("*")
	keys, err := cs.redis.Keys(database.Ctx, pattern).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		return cs.redis.Del(database.Ctx, keys...).Err()
	}

	return nil
}
