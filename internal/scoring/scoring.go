// Package scoring turns repository signals into a score, a one-line
// summary and a roadmap of suggested improvements.
package scoring

import (
	"fmt"

	"github.com/klimeurt/repolens/internal/analysis"
)

// Point values
const (
	BaseScore          = 40
	CleanStructure     = 15
	ModerateStructure  = 8
	ReadmePoints       = 10
	TestsPoints        = 15
	ActiveCommitPoints = 10
	PopularPoints      = 5
	MaxScore           = 100
)

// Thresholds
const (
	ActiveCommits  = 50
	SparseCommits  = 10
	PopularStars   = 20
	MaxRoadmapSize = 7
)

// Roadmap items
const (
	RoadmapStructure     = "Improve project structure (src/, tests/, docs/)"
	RoadmapExpandReadme  = "Expand README with setup, usage, and examples"
	RoadmapAddReadme     = "Add a README with project overview, setup instructions, and usage examples"
	RoadmapTests         = "Add unit and integration tests"
	RoadmapCommits       = "Commit more frequently with meaningful messages"
	RoadmapOpenSource    = "Prepare the project for open-source contributions"
	UnknownLanguageLabel = "Unknown"
)

// Feedback is the outcome of scoring
type Feedback struct {
	Score   int      `json:"score"`
	Summary string   `json:"summary"`
	Roadmap []string `json:"roadmap"`
}

// Evaluate scores s with the fixed heuristics
func Evaluate(s analysis.Signals) Feedback {
	score := BaseScore
	var roadmap []string

	switch s.Structure {
	case analysis.StructureClean:
		score += CleanStructure
	case analysis.StructureModerate:
		score += ModerateStructure
	default:
		roadmap = append(roadmap, RoadmapStructure)
	}

	switch {
	case s.Readme && s.ReadmeContent:
		score += ReadmePoints
	case s.Readme:
		roadmap = append(roadmap, RoadmapExpandReadme)
	default:
		roadmap = append(roadmap, RoadmapAddReadme)
	}

	if s.Tests {
		score += TestsPoints
	} else {
		roadmap = append(roadmap, RoadmapTests)
	}

	if s.Commits > ActiveCommits {
		score += ActiveCommitPoints
	} else if s.Commits < SparseCommits {
		roadmap = append(roadmap, RoadmapCommits)
	}

	if s.Stars > PopularStars {
		score += PopularPoints
	}

	if len(roadmap) == 0 {
		roadmap = append(roadmap, RoadmapOpenSource)
	}
	if len(roadmap) > MaxRoadmapSize {
		roadmap = roadmap[:MaxRoadmapSize]
	}

	return Feedback{
		Score:   min(score, MaxScore),
		Summary: Summary(s),
		Roadmap: roadmap,
	}
}

// Summary is the heuristic one-liner used when no model summary is available
func Summary(s analysis.Signals) string {
	lang := s.Language
	if lang == "" {
		lang = UnknownLanguageLabel
	}
	structure := s.Structure
	if structure == "" {
		structure = analysis.StructureBasic
	}

	return fmt.Sprintf("%s %s project %s documentation and %s tests.",
		structure.Title(), lang, with(s.Readme && s.ReadmeContent), with(s.Tests))
}

func with(ok bool) string {
	if ok {
		return "with"
	}
	return "without"
}
