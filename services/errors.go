package services

import (
	"errors"
	"fmt"
)

// Сентинельные ошибки доменной таксономии. Обработчики API переводят их
// в соответствующие HTTP статусы через errors.Is
var (
	// ErrNotFound - запрошенная сущность отсутствует (аналог 404)
	ErrNotFound = errors.New("ресурс не найден")

	// ErrBusinessRule - нарушение бизнес-правила, операция прерывается
	// с описательным сообщением для пользователя
	ErrBusinessRule = errors.New("нарушение бизнес-правила")

	// ErrConfiguration - пробел в конфигурации системы. Отсутствующий
	// активный базовый тариф фатален для расчета стоимости; остальные
	// пробелы деградируют до безопасного значения по умолчанию
	ErrConfiguration = errors.New("ошибка конфигурации")
)

// NewNotFoundError создает ошибку отсутствия сущности
func NewNotFoundError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// NewBusinessRuleError создает ошибку нарушения бизнес-правила
func NewBusinessRuleError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBusinessRule, fmt.Sprintf(format, args...))
}

// NewConfigurationError создает ошибку конфигурации
func NewConfigurationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
