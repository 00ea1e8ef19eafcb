package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Provider string
	Model    string
	DB       Pinger
}

type HealthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Audit    string `json:"audit,omitempty"`
}

// NewHealthHandler создает обработчик статуса; db может быть nil, если аудит выключен.
func NewHealthHandler(provider, model string, db Pinger) *HealthHandler {
	return &HealthHandler{Provider: provider, Model: model, DB: db}
}

// Health возвращает простой статус сервиса.
func (h *HealthHandler) Health(c echo.Context) error {
	response := HealthResponse{Status: "ok", Provider: h.Provider, Model: h.Model}
	if h.DB == nil {
		return c.JSON(http.StatusOK, response)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	response.Audit = "ok"
	if err := h.DB.Ping(ctx); err != nil {
		// Аудит необязателен: сервис продолжает отвечать без него.
		response.Status = "degraded"
		response.Audit = "unavailable"
	}

	return c.JSON(http.StatusOK, response)
}
