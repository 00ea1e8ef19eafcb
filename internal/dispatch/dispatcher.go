package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V-AS/CoinForLooP/internal/models"
	"github.com/V-AS/CoinForLooP/internal/processor"
)

type GoalPlanner interface {
	Process(ctx context.Context, req models.GoalPlanningRequest) (models.GoalPlanningResponse, error)
}

type Summarizer interface {
	Process(ctx context.Context, req models.SummaryRequest) (models.SummaryResponse, error)
}

type requestIDKey struct{}

// WithRequestID кладет идентификатор запроса в контекст для логов.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Dispatcher validates payloads, runs the matching processor and reduces every
// failure to a validation or service error.
type Dispatcher struct {
	goals     GoalPlanner
	summaries Summarizer
	validator *Validator
	logger    *slog.Logger
}

// New создает диспетчер поверх процессоров.
func New(goals GoalPlanner, summaries Summarizer, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		goals:     goals,
		summaries: summaries,
		validator: NewValidator(),
		logger:    logger,
	}
}

// GoalPlanning проверяет запрос на план накоплений и передает его процессору.
func (d *Dispatcher) GoalPlanning(ctx context.Context, payload GoalPlanningPayload) (resp models.GoalPlanningResponse, err error) {
	if vErr := d.validator.Validate(payload); vErr != nil {
		return resp, d.asValidation(vErr)
	}

	req, convErr := payload.toModel()
	if convErr != nil {
		return resp, validationError([]FieldError{{Field: "date", Rule: "isodate"}})
	}

	defer d.recoverPanic(ctx, processor.OperationGoalPlanning, &err)

	resp, err = d.goals.Process(ctx, req)
	if err != nil {
		return models.GoalPlanningResponse{}, d.fail(ctx, processor.OperationGoalPlanning, err)
	}

	return resp, nil
}

// MonthlySummary проверяет запрос на месячную сводку и передает его процессору.
func (d *Dispatcher) MonthlySummary(ctx context.Context, payload SummaryPayload) (resp models.SummaryResponse, err error) {
	if vErr := d.validator.Validate(payload); vErr != nil {
		return resp, d.asValidation(vErr)
	}

	req, convErr := payload.toModel()
	if convErr != nil {
		return resp, validationError([]FieldError{{Field: "date", Rule: "isodate"}})
	}

	defer d.recoverPanic(ctx, processor.OperationMonthlySummary, &err)

	resp, err = d.summaries.Process(ctx, req)
	if err != nil {
		return models.SummaryResponse{}, d.fail(ctx, processor.OperationMonthlySummary, err)
	}

	return resp, nil
}

// DecodeGoalPlanning разбирает JSON; ошибка типа поля считается ошибкой валидации.
func DecodeGoalPlanning(data []byte) (GoalPlanningPayload, error) {
	var payload GoalPlanningPayload
	if err := decode(data, &payload); err != nil {
		return GoalPlanningPayload{}, err
	}
	return payload, nil
}

// DecodeSummary разбирает JSON запроса месячной сводки.
func DecodeSummary(data []byte) (SummaryPayload, error) {
	var payload SummaryPayload
	if err := decode(data, &payload); err != nil {
		return SummaryPayload{}, err
	}
	return payload, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return validationError([]FieldError{{Field: typeErr.Field, Rule: "type"}})
		}
		return &Error{Kind: KindValidation, Message: "invalid payload", Err: err}
	}
	return nil
}

func (d *Dispatcher) asValidation(err error) error {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr
	}
	return &Error{Kind: KindValidation, Message: "validation failed", Err: err}
}

func (d *Dispatcher) fail(ctx context.Context, operation string, err error) error {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("request_id", requestIDFrom(ctx)),
	}

	if errors.Is(err, context.Canceled) {
		d.logger.Info("request canceled by caller", attrs...)
	} else {
		d.logger.Error("request processing failed", attrs...)
	}
	return serviceError(err)
}

func (d *Dispatcher) recoverPanic(ctx context.Context, operation string, errp *error) {
	if r := recover(); r != nil {
		d.logger.Error("processor panic recovered",
			slog.String("operation", operation),
			slog.String("request_id", requestIDFrom(ctx)),
		)
		*errp = serviceError(fmt.Errorf("panic: %v", r))
	}
}
