package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/klimeurt/repolens/internal/analysis"
	"github.com/klimeurt/repolens/internal/collector"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func testRequest() Request {
	signals := analysis.Signals{
		Files:     12,
		Structure: analysis.StructureModerate,
		Readme:    true,
		Tests:     true,
		Commits:   7,
		Stars:     3,
		Language:  "Go",
	}
	return Request{
		Repo:     collector.RepoRef{Owner: "octo", Name: "hello"},
		Signals:  signals,
		Feedback: scoring.Evaluate(signals),
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(testRequest())

	assert.Contains(t, prompt, "Repository: octo/hello")
	assert.Contains(t, prompt, "Primary language: Go")
	assert.Contains(t, prompt, "README: present but very short")
	assert.Contains(t, prompt, "Tests: yes")
	assert.Contains(t, prompt, "Commits: 7")
	assert.Contains(t, prompt, "- "+scoring.RoadmapExpandReadme)
	assert.True(t, strings.HasSuffix(prompt, "Summary:"))
}

func TestBuildPromptUnknownLanguage(t *testing.T) {
	req := testRequest()
	req.Signals.Language = ""
	req.Signals.Readme = false
	assert.Contains(t, BuildPrompt(req), "Primary language: Unknown")
	assert.Contains(t, BuildPrompt(req), "README: missing")
}

func TestNew(t *testing.T) {
	p, err := New(&config.Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = New(&config.Config{LLMProvider: config.ProviderHuggingFace, HFToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "huggingface", p.Name())

	p, err = New(&config.Config{LLMProvider: config.ProviderGemini, GeminiAPIKey: "k", GeminiModel: "m"})
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	_, err = New(&config.Config{LLMProvider: config.ProviderGemini})
	assert.Error(t, err)

	_, err = New(&config.Config{LLMProvider: "oracle"})
	var notFound *ProviderNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "oracle", notFound.ProviderName)
}

func newHFServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/mistralai/Mistral-7B-Instruct", r.URL.Path)
		assert.Equal(t, "Bearer hf-token", r.Header.Get("Authorization"))

		var req hfRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Inputs, "octo/hello")
		assert.False(t, req.Parameters.ReturnFullText)
		assert.Equal(t, defaultMaxNewTokens, req.Parameters.MaxNewTokens)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func newHFProvider(serverURL string) *HuggingFaceProvider {
	return NewHuggingFaceProvider(&config.Config{
		HFToken:    "hf-token",
		HFModel:    "mistralai/Mistral-7B-Instruct",
		HFAPIURL:   serverURL + "/",
		LLMTimeout: 5 * time.Second,
	})
}

func TestHuggingFaceSummarize(t *testing.T) {
	server := newHFServer(t, http.StatusOK, []map[string]string{
		{"generated_text": "  A tidy Go service that needs more history.  "},
	})
	defer server.Close()

	text, err := newHFProvider(server.URL).Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "A tidy Go service that needs more history.", text)
}

func TestHuggingFaceErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     interface{}
		contains string
	}{
		{
			name:     "api error body",
			status:   http.StatusServiceUnavailable,
			body:     map[string]string{"error": "Model is currently loading"},
			contains: "Model is currently loading",
		},
		{
			name:     "empty list",
			status:   http.StatusOK,
			body:     []map[string]string{},
			contains: "empty response",
		},
		{
			name:     "blank text",
			status:   http.StatusOK,
			body:     []map[string]string{{"generated_text": "   "}},
			contains: "empty summary",
		},
		{
			name:     "unexpected shape",
			status:   http.StatusOK,
			body:     map[string]string{"generated_text": "not a list"},
			contains: "failed to parse response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newHFServer(t, tt.status, tt.body)
			defer server.Close()

			_, err := newHFProvider(server.URL).Summarize(context.Background(), testRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestGeminiSummarize(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{
					"content": map[string]interface{}{
						"role":  "model",
						"parts": []map[string]string{{"text": "Well organised and tested."}},
					},
				},
			},
		})
	}))
	defer server.Close()

	p, err := newGeminiProvider(context.Background(), &config.Config{
		GeminiAPIKey: "key",
		GeminiModel:  "gemini-2.0-flash",
	}, genai.HTTPOptions{BaseURL: server.URL})
	require.NoError(t, err)

	text, err := p.Summarize(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "Well organised and tested.", text)
	assert.Contains(t, gotPath, "gemini-2.0-flash:generateContent")
}

func TestGeminiEmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	}))
	defer server.Close()

	p, err := newGeminiProvider(context.Background(), &config.Config{
		GeminiAPIKey: "key",
		GeminiModel:  "gemini-2.0-flash",
	}, genai.HTTPOptions{BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Summarize(context.Background(), testRequest())
	assert.Error(t, err)
}
