package ai

import "context"

const defaultMaxTokens = 1000

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one system+user exchange with the completion API.
type ChatRequest struct {
	System          string
	User            string
	Temperature     float64
	MaxOutputTokens int
}

type Client interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

func resolveMaxTokens(value int) int {
	if value > 0 {
		return value
	}

	return defaultMaxTokens
}

func buildMessages(req ChatRequest) []Message {
	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: "system", Content: req.System})
	}

	return append(messages, Message{Role: "user", Content: req.User})
}
