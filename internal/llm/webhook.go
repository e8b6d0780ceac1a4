package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Webhook posts the prompt and the raw message to a workflow endpoint.
type Webhook struct {
	httpClient *http.Client
	url        string
	token      string
}

func NewWebhook(url, token string, client *http.Client) (*Webhook, error) {
	if url == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{httpClient: client, url: url, token: token}, nil
}

func (w *Webhook) Name() string { return "webhook" }

// URL is the endpoint the webhook posts to.
func (w *Webhook) URL() string { return w.url }

func (w *Webhook) Complete(ctx context.Context, prompt, input string) (string, error) {
	body, err := json.Marshal(map[string]string{"prompt": prompt, "message": input})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read webhook response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("webhook error: status %d: %s", resp.StatusCode, firstLine(string(raw)))
	}
	return webhookText(raw), nil
}

// webhookText prefers response_body.choices[0].text, then a bare JSON
// string, then the body itself.
func webhookText(raw []byte) string {
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return string(raw)
	}
	switch v := body.(type) {
	case string:
		return v
	case map[string]any:
		rb, _ := v["response_body"].(map[string]any)
		choices, _ := rb["choices"].([]any)
		if len(choices) > 0 {
			if first, ok := choices[0].(map[string]any); ok {
				if text, ok := first["text"].(string); ok {
					return text
				}
			}
		}
	}
	return string(raw)
}
