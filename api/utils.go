package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"backend_parking/services"
)

// respondError переводит ошибку сервисного слоя в HTTP ответ.
// Классификация идет по sentinel-ошибкам, текст отдается как есть
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrBusinessRule):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrConfiguration):
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{
		"status": "error",
		"error":  err.Error(),
	})
}

// respondOK отдает успешный ответ с данными
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   data,
	})
}

// respondCreated отдает ответ о создании сущности
func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"data":   data,
	})
}

// respondBadRequest отдает ошибку валидации запроса
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"status": "error",
		"error":  message,
	})
}

// parseUintParam извлекает числовой параметр пути
func parseUintParam(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		respondBadRequest(c, "Некорректный параметр "+name)
		return 0, false
	}
	return uint(value), true
}

// parseUintQuery извлекает числовой query-параметр
func parseUintQuery(c *gin.Context, name string) (uint, bool) {
	value, err := strconv.ParseUint(c.Query(name), 10, 32)
	if err != nil {
		respondBadRequest(c, "Некорректный параметр "+name)
		return 0, false
	}
	return uint(value), true
}
