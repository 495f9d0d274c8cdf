package analyzer

import (
	"time"

	"github.com/google/uuid"
	"github.com/klimeurt/repolens/internal/analysis"
	"github.com/klimeurt/repolens/internal/collector"
)

// SummarySourceHeuristic marks a summary built from the fixed rules
const SummarySourceHeuristic = "heuristic"

// Repository names the analyzed repository
type Repository struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
	URL   string `json:"url"`
}

// Report is the result of one analysis
type Report struct {
	ID            string              `json:"id"`
	Repository    Repository          `json:"repository"`
	Score         int                 `json:"score"`
	Summary       string              `json:"summary"`
	SummarySource string              `json:"summary_source"`
	Roadmap       []string            `json:"roadmap"`
	Signals       analysis.Signals    `json:"signals"`
	Info          *collector.RepoInfo `json:"info,omitempty"`
	AnalyzedAt    time.Time           `json:"analyzed_at"`
	DurationMS    int64               `json:"duration_ms"`
	Error         string              `json:"error,omitempty"`
}

// FailedReport describes an analysis of rawURL that could not complete
func FailedReport(rawURL string, err error) *Report {
	repo := Repository{URL: rawURL}
	if ref, parseErr := collector.ParseRepoURL(rawURL); parseErr == nil {
		repo = Repository{Owner: ref.Owner, Name: ref.Name, URL: ref.HTMLURL()}
	}

	return &Report{
		ID:         uuid.NewString(),
		Repository: repo,
		Roadmap:    []string{},
		AnalyzedAt: time.Now().UTC(),
		Error:      err.Error(),
	}
}
