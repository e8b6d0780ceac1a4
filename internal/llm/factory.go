package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/lewisedginton/attendance_bot/internal/config"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
	"google.golang.org/genai"
)

// New builds the completer selected by cfg.Provider. The "none" provider
// returns ErrNoProvider.
func New(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (Completer, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case config.ProviderNone, "":
		return nil, ErrNoProvider

	case config.ProviderOpenAI:
		log.Info("Initializing OpenAI completer", logger.StringField("model", cfg.OpenAI.Model))
		return wrap(NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL,
			cfg.OpenAI.Temperature, cfg.MaxTokens, cfg.OpenAI.MaxRetries))

	case config.ProviderAnthropic:
		log.Info("Initializing Claude completer", logger.StringField("model", cfg.Anthropic.Model))
		opts := []option.RequestOption{option.WithMaxRetries(cfg.Anthropic.MaxRetries)}
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		return wrap(NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model,
			cfg.Anthropic.Temperature, cfg.MaxTokens, opts...))

	case config.ProviderGemini:
		log.Info("Initializing Gemini completer", logger.StringField("model", cfg.Gemini.Model))
		cc := &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if cfg.Gemini.UseVertex() {
			cc.APIKey = ""
			cc.Backend = genai.BackendVertexAI
			cc.Project = cfg.Gemini.Project
			cc.Location = cfg.Gemini.Region
			log.Info("Using Vertex AI backend",
				logger.StringField("project", cfg.Gemini.Project),
				logger.StringField("region", cfg.Gemini.Region))
		}
		if cfg.Gemini.BaseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Gemini.BaseURL}
		}
		return wrap(NewGemini(ctx, cfg.Gemini.Model, cc, cfg.Gemini.Temperature, cfg.MaxTokens))

	case config.ProviderHuggingFace:
		log.Info("Initializing HuggingFace completer", logger.StringField("model", cfg.HuggingFace.Model))
		return wrap(NewHuggingFace(cfg.HuggingFace.APIKey, cfg.HuggingFace.Model, cfg.HuggingFace.BaseURL,
			cfg.HuggingFace.Temperature, cfg.MaxTokens, httpClient))

	case config.ProviderWebhook:
		log.Info("Initializing workflow webhook completer")
		return wrap(NewWebhook(cfg.Webhook.URL, cfg.Webhook.Token, httpClient))

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// wrap keeps a failed constructor from yielding a non-nil interface.
func wrap[T Completer](c T, err error) (Completer, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}
