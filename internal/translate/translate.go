package translate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/jimaku/internal/subtitle"
)

// Translator is the per-cue translation collaborator.
type Translator = subtitle.Translator

// Provider names accepted by New.
const (
	ProviderHTTP = "http"
	ProviderMock = "mock"
)

// New builds the translator selected by provider.
func New(provider string, cfg Config, logger *zap.Logger) (Translator, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderHTTP:
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("translate: base_url required for provider %q", ProviderHTTP)
		}
		return NewHTTPTranslator(cfg, WithLogger(logger)), nil
	case ProviderMock:
		return NewMockTranslator(), nil
	default:
		return nil, fmt.Errorf("translate: unknown provider %q", provider)
	}
}
