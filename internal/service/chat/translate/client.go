package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is the default HTTP timeout for translation requests
	DefaultTimeout = 15 * time.Second
)

// Client implements the Translator interface against a LibreTranslate-
// compatible HTTP service (POST /detect, POST /translate).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new translation client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// DetectLanguage returns the dominant language code of the text.
func (c *Client) DetectLanguage(ctx context.Context, text string) (string, error) {
	payload := map[string]interface{}{
		"q": text,
	}
	if c.apiKey != "" {
		payload["api_key"] = c.apiKey
	}

	var detections []struct {
		Language   string  `json:"language"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.post(ctx, "/detect", payload, &detections); err != nil {
		return "", err
	}
	if len(detections) == 0 {
		// No signal: default to English rather than failing the turn
		return "en", nil
	}

	return detections[0].Language, nil
}

// Translate converts text from the source to the target language. Equal
// source and target short-circuit without a network call.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if sourceLang == targetLang {
		return text, nil
	}

	payload := map[string]interface{}{
		"q":      text,
		"source": sourceLang,
		"target": targetLang,
		"format": "text",
	}
	if c.apiKey != "" {
		payload["api_key"] = c.apiKey
	}

	var result struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := c.post(ctx, "/translate", payload, &result); err != nil {
		return "", err
	}

	return result.TranslatedText, nil
}

// post issues one JSON request against the service and decodes the
// response into out.
func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("translation API error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}
