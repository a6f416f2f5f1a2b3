package translate

import (
	"context"
	"fmt"
	"sync"
)

// MockTranslator tags text with the target language instead of translating it.
type MockTranslator struct {
	mu    sync.Mutex
	calls int
	fail  map[string]error
}

// NewMockTranslator creates a deterministic translator.
func NewMockTranslator() *MockTranslator {
	return &MockTranslator{fail: make(map[string]error)}
}

// FailOn makes every call for text return err.
func (m *MockTranslator) FailOn(text string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[text] = err
}

// Calls returns the number of Translate calls made so far.
func (m *MockTranslator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.calls++
	err := m.fail[text]
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", targetLang, text), nil
}
