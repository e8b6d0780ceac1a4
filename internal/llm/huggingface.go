package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HuggingFace calls the hosted inference API for text generation models.
type HuggingFace struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

func NewHuggingFace(apiKey, model, baseURL string, temperature float64, maxTokens int, client *http.Client) (*HuggingFace, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("huggingface API key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HuggingFace{
		httpClient:  client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (h *HuggingFace) Name() string { return "huggingface" }

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	Temperature    float64 `json:"temperature"`
	MaxNewTokens   int     `json:"max_new_tokens"`
	ReturnFullText bool    `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

func (h *HuggingFace) Complete(ctx context.Context, prompt, _ string) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			Temperature:  h.temperature,
			MaxNewTokens: h.maxTokens,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/models/"+h.model, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("huggingface request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read huggingface response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("huggingface API error: status %d: %s", resp.StatusCode, firstLine(string(raw)))
	}

	var gens []hfGeneration
	if err := json.Unmarshal(raw, &gens); err != nil {
		var single hfGeneration
		if json.Unmarshal(raw, &single) != nil {
			return "", fmt.Errorf("unexpected huggingface response: %w", err)
		}
		gens = []hfGeneration{single}
	}
	if len(gens) == 0 {
		return "", ErrEmptyCompletion
	}
	return gens[0].GeneratedText, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
