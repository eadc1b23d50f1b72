package model

import "time"

// Summary is a condensed view of a CheckReport.
//
// Design decision: Terminal output and the history list only need counts
// and the top matches, not every sentence. Deriving a Summary keeps those
// writers independent of how CheckReport grows.
type Summary struct {
	ID               string        `json:"id"`
	InputPath        string        `json:"input_path"`
	OutputPath       string        `json:"output_path"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	SentenceCount    int           `json:"sentence_count"`
	MatchedSentences int           `json:"matched_sentences"`
	MatchCount       int           `json:"match_count"`

	// TopScore is the highest similarity score seen in the run.
	TopScore float64 `json:"top_score"`

	// DuplicateRatio is MatchedSentences / SentenceCount, 0 for empty documents.
	DuplicateRatio float64  `json:"duplicate_ratio"`
	Warnings       []string `json:"warnings,omitempty"`
	TimedOut       bool     `json:"timed_out"`
	Error          string   `json:"error,omitempty"`
}

// NewSummary builds a Summary from a report.
func NewSummary(r *CheckReport) *Summary {
	s := &Summary{
		ID:               r.ID,
		InputPath:        r.InputPath,
		OutputPath:       r.OutputPath,
		StartedAt:        r.StartedAt,
		Duration:         r.Duration(),
		SentenceCount:    len(r.Sentences),
		MatchedSentences: r.Matches.Len(),
		MatchCount:       r.Matches.MatchCount(),
		Warnings:         r.Warnings,
		TimedOut:         r.TimedOut,
		Error:            r.ErrorMessage,
	}

	for _, e := range r.Matches.Entries() {
		for _, m := range e.Matches {
			if m.Score > s.TopScore {
				s.TopScore = m.Score
			}
		}
	}

	if s.SentenceCount > 0 {
		s.DuplicateRatio = float64(s.MatchedSentences) / float64(s.SentenceCount)
	}

	return s
}
