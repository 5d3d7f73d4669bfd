package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRoundMoney_HalfUp(t *testing.T) {
	assert.Equal(t, "10.13", RoundMoney(decimal.RequireFromString("10.125")).StringFixed(2))
	assert.Equal(t, "10.12", RoundMoney(decimal.RequireFromString("10.124")).StringFixed(2))
	assert.Equal(t, "10.00", RoundMoney(decimal.RequireFromString("10")).StringFixed(2))
}

func TestTruncateHours_TowardZero(t *testing.T) {
	// 2 часа 0 минут 59 секунд: 59 секунд за границей 2 знаков отбрасываются
	assert.Equal(t, "2.00", TruncateHours(2*time.Hour+59*time.Second).StringFixed(2))

	// 1 час 30 минут = ровно 1.50
	assert.Equal(t, "1.50", TruncateHours(90*time.Minute).StringFixed(2))

	// 2.505 часа усекаются до 2.50, а не округляются до 2.51
	assert.Equal(t, "2.50", TruncateHours(2*time.Hour+30*time.Minute+18*time.Second).StringFixed(2))

	// 45 минут 59 секунд: сначала отбрасываются секунды (45 минут),
	// и только потом минуты конвертируются в часы. Усечение по секундам
	// дало бы 0.76
	assert.Equal(t, "0.75", TruncateHours(45*time.Minute+59*time.Second).StringFixed(2))

	// Пребывание короче минуты не тарифицируется вовсе
	assert.Equal(t, "0.00", TruncateHours(59*time.Second).StringFixed(2))

	assert.Equal(t, "0.00", TruncateHours(0).StringFixed(2))
}

func TestMaxZero(t *testing.T) {
	assert.True(t, MaxZero(decimal.NewFromInt(-5)).IsZero())
	assert.Equal(t, "3.00", MaxZero(decimal.NewFromInt(3)).StringFixed(2))
	assert.True(t, MaxZero(decimal.Zero).IsZero())
}
