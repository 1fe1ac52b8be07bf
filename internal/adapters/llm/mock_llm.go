package llm

import (
	"context"
	"fmt"

	"github.com/PabloGalante/weaver-agent/internal/domain"
)

// MockLLM answers without calling any model. Useful for local dev.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) GenerateReply(_ context.Context, req domain.ReplyRequest) (string, error) {
	if req.Audio != nil {
		return "I got your voice message. What's going on with your tech today?", nil
	}
	return fmt.Sprintf("I hear you. You said %q. What's going on with your tech today?", req.Text), nil
}

func (m *MockLLM) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return []domain.ModelInfo{{Name: "models/mock", Actions: []string{"generateContent"}}}, nil
}
