package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundMoney округляет денежную сумму до 2 знаков по правилу half-up.
// Все денежные округления в расчетном движке выполняются этим правилом:
// валюта имеет ровно 2 дробных знака, и доли копейки не теряются вниз
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// TruncateHours конвертирует длительность пребывания в часы, усеченные
// (не округленные) до 2 знаков. Неполные минуты отбрасываются до
// конвертации: секунды никогда не тарифицируются клиенту. Усечение
// вниз - намеренная асимметрия с денежным округлением
func TruncateHours(d time.Duration) decimal.Decimal {
	minutes := decimal.NewFromInt(int64(d / time.Minute))
	return minutes.Div(decimal.NewFromInt(60)).Truncate(2)
}

// MaxZero возвращает значение, ограниченное снизу нулем
func MaxZero(value decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	return value
}
