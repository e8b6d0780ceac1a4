package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// LLM provider names
const (
	ProviderNone        = "none"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
	ProviderWebhook     = "webhook"
)

// LLMConfig selects the completion backend used for classification,
// extraction and query parsing.
type LLMConfig struct {
	// Provider is one of openai, anthropic, gemini, huggingface, webhook or none.
	Provider  string        `env:"LLM_PROVIDER" yaml:"provider" default:"openai"`
	Timeout   time.Duration `env:"LLM_TIMEOUT" yaml:"timeout" default:"30s"`
	MaxTokens int           `env:"LLM_MAX_TOKENS" yaml:"max_tokens" default:"500"`

	OpenAI      OpenAIConfig      `yaml:"openai"`
	Anthropic   AnthropicConfig   `yaml:"anthropic"`
	Gemini      GeminiConfig      `yaml:"gemini"`
	HuggingFace HuggingFaceConfig `yaml:"huggingface"`
	Webhook     WebhookConfig     `yaml:"webhook"`
}

// OpenAIConfig holds OpenAI-specific configuration
type OpenAIConfig struct {
	APIKey      string  `env:"OPENAI_API_KEY" yaml:"-"`
	Model       string  `env:"OPENAI_MODEL" yaml:"model" default:"gpt-3.5-turbo"`
	BaseURL     string  `env:"OPENAI_API_URL" yaml:"base_url"`
	Temperature float64 `env:"OPENAI_TEMPERATURE" yaml:"temperature" default:"0.3"`
	MaxRetries  int     `env:"OPENAI_MAX_RETRIES" yaml:"max_retries" default:"2"`
}

// AnthropicConfig holds Anthropic-specific configuration
type AnthropicConfig struct {
	APIKey      string  `env:"ANTHROPIC_API_KEY" yaml:"-"`
	Model       string  `env:"ANTHROPIC_MODEL" yaml:"model" default:"claude-3-5-haiku-latest"`
	BaseURL     string  `env:"ANTHROPIC_API_URL" yaml:"base_url"`
	Temperature float64 `env:"ANTHROPIC_TEMPERATURE" yaml:"temperature" default:"0.3"`
	MaxRetries  int     `env:"ANTHROPIC_MAX_RETRIES" yaml:"max_retries" default:"2"`
}

// GeminiConfig holds Google Gemini-specific configuration. Project and
// Region select the Vertex AI backend.
type GeminiConfig struct {
	APIKey      string  `env:"GEMINI_API_KEY" yaml:"-"`
	Model       string  `env:"GEMINI_MODEL" yaml:"model" default:"gemini-2.5-flash"`
	Project     string  `env:"GOOGLE_CLOUD_PROJECT" yaml:"project"`
	Region      string  `env:"GOOGLE_CLOUD_REGION" yaml:"region"`
	BaseURL     string  `env:"GEMINI_API_URL" yaml:"base_url"`
	Temperature float64 `env:"GEMINI_TEMPERATURE" yaml:"temperature" default:"0.3"`
}

// UseVertex reports whether the Vertex AI backend is configured.
func (g GeminiConfig) UseVertex() bool {
	return g.Project != "" && g.Region != ""
}

// HuggingFaceConfig configures the hosted inference API.
type HuggingFaceConfig struct {
	APIKey      string  `env:"HUGGINGFACE_API_KEY" yaml:"-"`
	Model       string  `env:"HUGGINGFACE_MODEL" yaml:"model" default:"mistralai/Mistral-7B-Instruct-v0.2"`
	BaseURL     string  `env:"HUGGINGFACE_API_URL" yaml:"base_url" default:"https://api-inference.huggingface.co"`
	Temperature float64 `env:"HUGGINGFACE_TEMPERATURE" yaml:"temperature" default:"0.1"`
}

// WebhookConfig configures a workflow endpoint that receives the prompt and
// the raw message.
type WebhookConfig struct {
	URL   string `env:"LLM_WEBHOOK_URL" yaml:"url"`
	Token string `env:"LLM_WEBHOOK_TOKEN" yaml:"-"`
}

// Model returns the model name of the selected provider.
func (c LLMConfig) Model() string {
	switch c.Provider {
	case ProviderOpenAI:
		return c.OpenAI.Model
	case ProviderAnthropic:
		return c.Anthropic.Model
	case ProviderGemini:
		return c.Gemini.Model
	case ProviderHuggingFace:
		return c.HuggingFace.Model
	default:
		return ""
	}
}

func (c LLMConfig) Validate() error {
	var result error
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("llm timeout must be greater than 0"))
	}
	if c.MaxTokens <= 0 {
		result = multierror.Append(result, fmt.Errorf("llm max_tokens must be greater than 0"))
	}

	switch c.Provider {
	case ProviderNone:
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("OPENAI_API_KEY is required for the openai provider"))
		}
	case ProviderAnthropic:
		if c.Anthropic.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" && !c.Gemini.UseVertex() {
			result = multierror.Append(result, fmt.Errorf("GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT and GOOGLE_CLOUD_REGION are required for the gemini provider"))
		}
	case ProviderHuggingFace:
		if c.HuggingFace.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("HUGGINGFACE_API_KEY is required for the huggingface provider"))
		}
	case ProviderWebhook:
		if c.Webhook.URL == "" {
			result = multierror.Append(result, fmt.Errorf("LLM_WEBHOOK_URL is required for the webhook provider"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unsupported llm provider %q", c.Provider))
	}
	return result
}
