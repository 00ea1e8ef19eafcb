package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/V-AS/CoinForLooP/internal/models"
	"github.com/V-AS/CoinForLooP/internal/repository"
)

const timeLayout = time.RFC3339

type InferenceLogReader interface {
	List(ctx context.Context, filter repository.InferenceLogFilter, limit, offset int) ([]models.InferenceRecord, error)
	Count(ctx context.Context, filter repository.InferenceLogFilter) (int, error)
}

type InferenceLogHandler struct {
	Repo InferenceLogReader
}

// NewInferenceLogHandler создает обработчик журнала вызовов модели.
func NewInferenceLogHandler(repo InferenceLogReader) *InferenceLogHandler {
	return &InferenceLogHandler{Repo: repo}
}

type InferenceRecordResponse struct {
	ID           uuid.UUID `json:"id"`
	Operation    string    `json:"operation"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Success      bool      `json:"success"`
	FailureKind  string    `json:"failure_kind,omitempty"`
	Attempts     int       `json:"attempts"`
	PromptChars  int       `json:"prompt_chars"`
	LatencyMS    int64     `json:"latency_ms"`
	FallbackUsed bool      `json:"fallback_used"`
	CreatedAt    string    `json:"created_at"`
}

type InferenceLogResponse struct {
	Total   int                       `json:"total"`
	Records []InferenceRecordResponse `json:"records"`
}

// List возвращает журнал вызовов модели с фильтрами.
func (h *InferenceLogHandler) List(c echo.Context) error {
	limit, offset, err := parsePagination(c, 50, 200)
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := repository.InferenceLogFilter{}
	if raw := strings.TrimSpace(c.QueryParam("operation")); raw != "" {
		filter.Operation = &raw
	}

	if raw := strings.TrimSpace(c.QueryParam("success")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "invalid success")
		}
		filter.Success = &parsed
	}

	records, err := h.Repo.List(c.Request().Context(), filter, limit, offset)
	if err != nil {
		return serverError(c)
	}

	total, err := h.Repo.Count(c.Request().Context(), filter)
	if err != nil {
		return serverError(c)
	}

	response := make([]InferenceRecordResponse, 0, len(records))
	for _, record := range records {
		response = append(response, InferenceRecordResponse{
			ID:           record.ID,
			Operation:    record.Operation,
			Provider:     record.Provider,
			Model:        record.Model,
			Success:      record.Success,
			FailureKind:  record.FailureKind,
			Attempts:     record.Attempts,
			PromptChars:  record.PromptChars,
			LatencyMS:    record.Latency.Milliseconds(),
			FallbackUsed: record.FallbackUsed,
			CreatedAt:    record.CreatedAt.Format(timeLayout),
		})
	}

	return c.JSON(http.StatusOK, InferenceLogResponse{
		Total:   total,
		Records: response,
	})
}

func parsePagination(c echo.Context, defaultLimit, maxLimit int) (int, int, error) {
	limit := defaultLimit
	if raw := strings.TrimSpace(c.QueryParam("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if parsed > maxLimit {
			parsed = maxLimit
		}
		limit = parsed
	}

	offset := 0
	if raw := strings.TrimSpace(c.QueryParam("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	return limit, offset, nil
}
