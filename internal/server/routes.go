package server

import (
	"github.com/labstack/echo/v4"

	"github.com/V-AS/CoinForLooP/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	bridgeHandler *handlers.BridgeHandler,
	healthHandler *handlers.HealthHandler,
	logHandler *handlers.InferenceLogHandler,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", healthHandler.Health)

	e.POST("/goal_planning", bridgeHandler.GoalPlanning, aiRateLimiter)
	e.POST("/monthly_summary", bridgeHandler.MonthlySummary, aiRateLimiter)

	if logHandler != nil {
		e.GET("/inference_log", logHandler.List)
	}
}
