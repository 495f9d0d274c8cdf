// Package llm asks a hosted language model for a qualitative summary of
// a repository's signals.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/klimeurt/repolens/internal/analysis"
	"github.com/klimeurt/repolens/internal/collector"
	"github.com/klimeurt/repolens/internal/config"
	"github.com/klimeurt/repolens/internal/scoring"
)

// Provider defines the interface for summary providers (Hugging Face, Gemini)
type Provider interface {
	// Name returns the provider name (e.g., "huggingface").
	Name() string

	// Summarize makes a single request and returns the model's summary.
	Summarize(ctx context.Context, request Request) (string, error)
}

// Request contains everything the prompt is built from
type Request struct {
	Repo     collector.RepoRef
	Signals  analysis.Signals
	Feedback scoring.Feedback
}

// New creates the provider selected by cfg.LLMProvider. It returns nil
// when summaries are disabled.
func New(cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case config.ProviderNone:
		return nil, nil
	case config.ProviderHuggingFace:
		return NewHuggingFaceProvider(cfg), nil
	case config.ProviderGemini:
		p, err := NewGeminiProvider(context.Background(), cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, &ProviderNotFoundError{ProviderName: cfg.LLMProvider}
}

// ProviderNotFoundError is returned when a provider is not found.
type ProviderNotFoundError struct {
	ProviderName string
}

func (e *ProviderNotFoundError) Error() string {
	return "provider not found: " + e.ProviderName
}

// BuildPrompt renders the signals into the summary prompt
func BuildPrompt(request Request) string {
	var sb strings.Builder
	s := request.Signals

	sb.WriteString("You are reviewing a GitHub repository for project health. ")
	sb.WriteString("Write a short qualitative summary (at most three sentences) for the maintainers. ")
	sb.WriteString("Do not repeat the raw numbers and do not use lists.\n\n")

	sb.WriteString(fmt.Sprintf("Repository: %s\n", request.Repo))
	sb.WriteString(fmt.Sprintf("Primary language: %s\n", orUnknown(s.Language)))
	sb.WriteString(fmt.Sprintf("Files: %d\n", s.Files))
	sb.WriteString(fmt.Sprintf("Structure: %s\n", s.Structure))
	sb.WriteString(fmt.Sprintf("README: %s\n", readmeState(s)))
	sb.WriteString(fmt.Sprintf("Tests: %s\n", yesNo(s.Tests)))
	sb.WriteString(fmt.Sprintf("Commits: %d\n", s.Commits))
	sb.WriteString(fmt.Sprintf("Stars: %d\n", s.Stars))
	sb.WriteString(fmt.Sprintf("Heuristic score: %d/100\n", request.Feedback.Score))

	if len(request.Feedback.Roadmap) > 0 {
		sb.WriteString("Suggested improvements:\n")
		for _, item := range request.Feedback.Roadmap {
			sb.WriteString(fmt.Sprintf("- %s\n", item))
		}
	}

	sb.WriteString("\nSummary:")
	return sb.String()
}

func readmeState(s analysis.Signals) string {
	switch {
	case s.Readme && s.ReadmeContent:
		return "present"
	case s.Readme:
		return "present but very short"
	}
	return "missing"
}

func yesNo(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func orUnknown(v string) string {
	if v == "" {
		return scoring.UnknownLanguageLabel
	}
	return v
}
