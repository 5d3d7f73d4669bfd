package services

import (
	"log"
	"sync"

	"github.com/shopspring/decimal"
)

// SubscriptionUsageEvent представляет доменное событие пересечения порога
// потребления абонемента (80% или 100% включенных часов)
type SubscriptionUsageEvent struct {
	SubscriptionID uint            `json:"subscription_id"`
	UserID         uint            `json:"user_id"`
	UserEmail      string          `json:"user_email"`
	HoursConsumed  decimal.Decimal `json:"hours_consumed"`
	MonthlyHours   decimal.Decimal `json:"monthly_hours"`
	Percentage     decimal.Decimal `json:"percentage"`
	Threshold      int             `json:"threshold"` // 80 или 100
}

// UsageEventListener обрабатывает событие потребления внутри процесса.
// Доставка best-effort: паника слушателя не влияет на расчетную транзакцию
type UsageEventListener func(event SubscriptionUsageEvent)

var (
	usageListenersMu sync.RWMutex
	usageListeners   []UsageEventListener
)

// RegisterUsageListener регистрирует слушателя событий потребления
func RegisterUsageListener(listener UsageEventListener) {
	usageListenersMu.Lock()
	defer usageListenersMu.Unlock()
	usageListeners = append(usageListeners, listener)
}

// ResetUsageListeners удаляет всех слушателей (для тестов)
func ResetUsageListeners() {
	usageListenersMu.Lock()
	defer usageListenersMu.Unlock()
	usageListeners = nil
}

// DispatchUsageEvent доставляет событие всем слушателям. Доставка
// синхронная по вызову, но отвязана от транзакции: ошибки слушателей
// логируются и не распространяются
func DispatchUsageEvent(event SubscriptionUsageEvent) {
	usageListenersMu.RLock()
	listeners := make([]UsageEventListener, len(usageListeners))
	copy(listeners, usageListeners)
	usageListenersMu.RUnlock()

	for _, listener := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Паника слушателя события потребления: %v", r)
				}
			}()
			listener(event)
		}()
	}
}
