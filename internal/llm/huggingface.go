package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klimeurt/repolens/internal/config"
)

const defaultMaxNewTokens = 200

// HuggingFaceProvider implements the Provider interface for the Hugging
// Face inference API.
type HuggingFaceProvider struct {
	token      string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewHuggingFaceProvider creates a new Hugging Face provider.
func NewHuggingFaceProvider(cfg *config.Config) *HuggingFaceProvider {
	return &HuggingFaceProvider{
		token:   cfg.HFToken,
		baseURL: strings.TrimSuffix(cfg.HFAPIURL, "/"),
		model:   cfg.HFModel,
		httpClient: &http.Client{
			Timeout: cfg.LLMTimeout,
		},
	}
}

// Name returns the provider name.
func (h *HuggingFaceProvider) Name() string {
	return config.ProviderHuggingFace
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	MaxNewTokens   int  `json:"max_new_tokens"`
	ReturnFullText bool `json:"return_full_text"`
}

type hfGeneration struct {
	GeneratedText string `json:"generated_text"`
}

type hfError struct {
	Error string `json:"error"`
}

// Summarize sends one text-generation request.
func (h *HuggingFaceProvider) Summarize(ctx context.Context, request Request) (string, error) {
	body, err := json.Marshal(hfRequest{
		Inputs: BuildPrompt(request),
		Parameters: hfParameters{
			MaxNewTokens:   defaultMaxNewTokens,
			ReturnFullText: false,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := h.baseURL + "/models/" + h.model
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr hfError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("inference API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var generations []hfGeneration
	if err := json.Unmarshal(data, &generations); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(generations) == 0 {
		return "", errors.New("empty response from inference API")
	}

	text := strings.TrimSpace(generations[0].GeneratedText)
	if text == "" {
		return "", errors.New("empty summary from inference API")
	}
	return text, nil
}
