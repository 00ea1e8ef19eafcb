package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/V-AS/CoinForLooP/internal/dispatch"
	"github.com/V-AS/CoinForLooP/internal/models"
)

type Bridge interface {
	GoalPlanning(ctx context.Context, payload dispatch.GoalPlanningPayload) (models.GoalPlanningResponse, error)
	MonthlySummary(ctx context.Context, payload dispatch.SummaryPayload) (models.SummaryResponse, error)
}

type BridgeHandler struct {
	Bridge Bridge
}

// NewBridgeHandler создает обработчик операций планирования и сводки.
func NewBridgeHandler(bridge Bridge) *BridgeHandler {
	return &BridgeHandler{Bridge: bridge}
}

type validationErrorResponse struct {
	Error  string                `json:"error"`
	Fields []dispatch.FieldError `json:"fields,omitempty"`
}

// GoalPlanning строит план накоплений для цели.
func (h *BridgeHandler) GoalPlanning(c echo.Context) error {
	var payload dispatch.GoalPlanningPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	resp, err := h.Bridge.GoalPlanning(requestContext(c), payload)
	if err != nil {
		return dispatchError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

// MonthlySummary строит сводку расходов за месяц.
func (h *BridgeHandler) MonthlySummary(c echo.Context) error {
	var payload dispatch.SummaryPayload
	if err := c.Bind(&payload); err != nil {
		return badRequest(c, "invalid payload")
	}

	resp, err := h.Bridge.MonthlySummary(requestContext(c), payload)
	if err != nil {
		return dispatchError(c, err)
	}

	return c.JSON(http.StatusOK, resp)
}

func requestContext(c echo.Context) context.Context {
	ctx := c.Request().Context()
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return dispatch.WithRequestID(ctx, id)
	}
	return ctx
}

func dispatchError(c echo.Context, err error) error {
	var dErr *dispatch.Error
	if errors.As(err, &dErr) && dErr.Kind == dispatch.KindValidation {
		return c.JSON(http.StatusBadRequest, validationErrorResponse{Error: dErr.Message, Fields: dErr.Fields})
	}

	return serverError(c)
}
