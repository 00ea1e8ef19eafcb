package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/V-AS/CoinForLooP/internal/config"
	"github.com/V-AS/CoinForLooP/internal/dispatch"
	"github.com/V-AS/CoinForLooP/internal/models"
	"github.com/V-AS/CoinForLooP/internal/repository"
)

type bridgeStub struct{}

func (bridgeStub) GoalPlanning(ctx context.Context, payload dispatch.GoalPlanningPayload) (models.GoalPlanningResponse, error) {
	return models.GoalPlanningResponse{Plan: "plan"}, nil
}

func (bridgeStub) MonthlySummary(ctx context.Context, payload dispatch.SummaryPayload) (models.SummaryResponse, error) {
	return models.SummaryResponse{Summary: "summary", TopCategories: map[string]float64{}}, nil
}

type emptyLog struct{}

func (emptyLog) List(ctx context.Context, filter repository.InferenceLogFilter, limit, offset int) ([]models.InferenceRecord, error) {
	return nil, nil
}

func (emptyLog) Count(ctx context.Context, filter repository.InferenceLogFilter) (int, error) {
	return 0, nil
}

func testConfig() config.Config {
	return config.Config{
		AI: config.AIConfig{
			Provider:           config.ProviderOpenAI,
			Model:              "gpt-4o-mini",
			RateLimitPerMinute: 60,
			RateLimitBurst:     1,
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// TestRequestIDIsUUID проверяет генерацию X-Request-ID.
func TestRequestIDIsUUID(t *testing.T) {
	e := New(testConfig(), quietLogger(), Deps{Bridge: bridgeStub{}})

	rec := do(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	id := rec.Header().Get(echo.HeaderXRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid request id, got %q", id)
	}
}

// TestBridgeRoutesAreRateLimited проверяет, что лимит срабатывает на POST-роутах.
func TestBridgeRoutesAreRateLimited(t *testing.T) {
	e := New(testConfig(), quietLogger(), Deps{Bridge: bridgeStub{}})

	first := do(e, http.MethodPost, "/goal_planning", `{}`)
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.Code)
	}

	second := do(e, http.MethodPost, "/monthly_summary", `{}`)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}

	health := do(e, http.MethodGet, "/health", "")
	if health.Code != http.StatusOK {
		t.Fatalf("health must not be limited, got %d", health.Code)
	}
}

// TestInferenceLogRouteOnlyWithAudit проверяет регистрацию журнала только при включенном аудите.
func TestInferenceLogRouteOnlyWithAudit(t *testing.T) {
	withoutAudit := New(testConfig(), quietLogger(), Deps{Bridge: bridgeStub{}})
	if rec := do(withoutAudit, http.MethodGet, "/inference_log", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without audit, got %d", rec.Code)
	}

	withAudit := New(testConfig(), quietLogger(), Deps{Bridge: bridgeStub{}, InferenceLog: emptyLog{}})
	if rec := do(withAudit, http.MethodGet, "/inference_log", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with audit, got %d", rec.Code)
	}
}

// TestNewHTTPServer проверяет адрес и таймауты.
func TestNewHTTPServer(t *testing.T) {
	srv := NewHTTPServer(config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         8001,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  time.Minute,
	}, http.NotFoundHandler())

	if srv.Addr != "127.0.0.1:8001" {
		t.Fatalf("unexpected addr: %s", srv.Addr)
	}
	if srv.WriteTimeout != 90*time.Second {
		t.Fatalf("unexpected write timeout: %v", srv.WriteTimeout)
	}
}
