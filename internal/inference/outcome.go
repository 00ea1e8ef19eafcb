package inference

import "fmt"

type FailureKind string

const (
	KindRateLimited      FailureKind = "rate_limited"
	KindMalformedRequest FailureKind = "malformed_request"
	KindProviderError    FailureKind = "provider_error"
	KindEmptyResponse    FailureKind = "empty_response"
	KindUnexpected       FailureKind = "unexpected"
	// KindCanceled means the caller went away before a terminal answer.
	KindCanceled FailureKind = "canceled"
)

// Failure is the terminal failure of one Generate call.
type Failure struct {
	Kind     FailureKind
	Detail   string
	Attempts int
}

func (f *Failure) Error() string {
	return fmt.Sprintf("inference %s after %d attempt(s): %s", f.Kind, f.Attempts, f.Detail)
}

// Outcome holds either generated text or a Failure, never both.
type Outcome struct {
	text     string
	attempts int
	failure  *Failure
}

// Succeeded создает успешный исход.
func Succeeded(text string, attempts int) Outcome {
	return Outcome{text: text, attempts: attempts}
}

// Failed создает исход со сбоем заданного класса.
func Failed(kind FailureKind, detail string, attempts int) Outcome {
	return Outcome{
		attempts: attempts,
		failure:  &Failure{Kind: kind, Detail: detail, Attempts: attempts},
	}
}

// OK сообщает, завершился ли вызов успешно.
func (o Outcome) OK() bool {
	return o.failure == nil
}

// Text возвращает сгенерированный текст; для неуспешного исхода строка пустая.
func (o Outcome) Text() string {
	return o.text
}

// Failure возвращает описание сбоя или nil.
func (o Outcome) Failure() *Failure {
	return o.failure
}

// Attempts возвращает число выполненных вызовов провайдера.
func (o Outcome) Attempts() int {
	return o.attempts
}
