package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/V-AS/CoinForLooP/internal/models"
)

const inferenceLogSchema = `CREATE TABLE IF NOT EXISTS inference_log (
	id            UUID PRIMARY KEY,
	operation     TEXT NOT NULL,
	provider      TEXT NOT NULL,
	model         TEXT NOT NULL,
	success       BOOLEAN NOT NULL,
	failure_kind  TEXT,
	attempts      INTEGER NOT NULL,
	prompt_chars  INTEGER NOT NULL,
	latency_ms    BIGINT NOT NULL,
	fallback_used BOOLEAN NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS inference_log_created_at_idx ON inference_log (created_at DESC);`

type InferenceLogRepository struct {
	db *pgxpool.Pool
}

type InferenceLogFilter struct {
	Operation *string
	Success   *bool
}

// NewInferenceLogRepository создает репозиторий журнала вызовов модели.
func NewInferenceLogRepository(db *pgxpool.Pool) *InferenceLogRepository {
	return &InferenceLogRepository{db: db}
}

// EnsureSchema создает таблицу журнала, если ее еще нет.
func (r *InferenceLogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, inferenceLogSchema); err != nil {
		return fmt.Errorf("ensure inference_log schema: %w", err)
	}
	return nil
}

// Record сохраняет одну запись о вызове модели.
func (r *InferenceLogRepository) Record(ctx context.Context, record models.InferenceRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	var failureKind *string
	if record.FailureKind != "" {
		failureKind = &record.FailureKind
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO inference_log
		 (id, operation, provider, model, success, failure_kind, attempts, prompt_chars, latency_ms, fallback_used, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID,
		record.Operation,
		record.Provider,
		record.Model,
		record.Success,
		failureKind,
		record.Attempts,
		record.PromptChars,
		record.Latency.Milliseconds(),
		record.FallbackUsed,
		record.CreatedAt,
	)
	return err
}

// List возвращает записи журнала, новые первыми.
func (r *InferenceLogRepository) List(ctx context.Context, filter InferenceLogFilter, limit, offset int) ([]models.InferenceRecord, error) {
	if limit <= 0 || offset < 0 {
		return nil, ErrInvalid
	}

	where, args := buildInferenceLogWhere(filter)
	limitParam := len(args) + 1
	offsetParam := len(args) + 2
	query := fmt.Sprintf(
		`SELECT id, operation, provider, model, success, failure_kind, attempts, prompt_chars, latency_ms, fallback_used, created_at
		 FROM inference_log%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, limitParam, offsetParam,
	)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.InferenceRecord, 0)
	for rows.Next() {
		var record models.InferenceRecord
		var failureKind *string
		var latencyMS int64
		if err := rows.Scan(
			&record.ID,
			&record.Operation,
			&record.Provider,
			&record.Model,
			&record.Success,
			&failureKind,
			&record.Attempts,
			&record.PromptChars,
			&latencyMS,
			&record.FallbackUsed,
			&record.CreatedAt,
		); err != nil {
			return nil, err
		}
		if failureKind != nil {
			record.FailureKind = *failureKind
		}
		record.Latency = time.Duration(latencyMS) * time.Millisecond
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Count возвращает количество записей по фильтру.
func (r *InferenceLogRepository) Count(ctx context.Context, filter InferenceLogFilter) (int, error) {
	where, args := buildInferenceLogWhere(filter)

	var count int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM inference_log"+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildInferenceLogWhere(filter InferenceLogFilter) (string, []interface{}) {
	clauses := make([]string, 0)
	args := make([]interface{}, 0)

	if filter.Operation != nil {
		args = append(args, *filter.Operation)
		clauses = append(clauses, fmt.Sprintf("operation = $%d", len(args)))
	}

	if filter.Success != nil {
		args = append(args, *filter.Success)
		clauses = append(clauses, fmt.Sprintf("success = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}
