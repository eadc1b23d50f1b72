package model

import (
	"encoding/json"
	"strconv"
)

// Match is a single duplicate candidate for a sentence.
type Match struct {
	// Content is the matched text as stored in the remote knowledge base.
	Content string `json:"content"`

	// Score is the similarity score reported by the workflow.
	Score float64 `json:"score"`

	// ScoreText is the score exactly as it appeared on the wire.
	// Reports print this form so that "1.0" is not shortened to "1".
	ScoreText string `json:"score_text,omitempty"`
}

// NewMatch creates a Match from a wire-format score literal.
// An unparsable literal yields a zero Score but keeps the literal text.
func NewMatch(content string, score json.Number) Match {
	f, err := score.Float64()
	if err != nil {
		f = 0
	}
	return Match{
		Content:   content,
		Score:     f,
		ScoreText: score.String(),
	}
}

// ScoreLiteral returns the score as it should be printed.
func (m Match) ScoreLiteral() string {
	if m.ScoreText != "" {
		return m.ScoreText
	}
	return strconv.FormatFloat(m.Score, 'f', -1, 64)
}

// SentenceMatches pairs a sentence with the matches found for it.
type SentenceMatches struct {
	Sentence string  `json:"sentence"`
	Matches  []Match `json:"matches"`
}

// MatchRecord maps sentences to their matches while remembering insertion order.
//
// Design decision: Go maps do not keep order, and the report must list
// sentences in the order they were processed. We keep a slice of entries
// plus an index map rather than sorting later, because processing order is
// the document order and cannot be recovered from the sentence text.
type MatchRecord struct {
	entries []SentenceMatches
	index   map[string]int
}

// NewMatchRecord creates an empty MatchRecord.
func NewMatchRecord() *MatchRecord {
	return &MatchRecord{index: make(map[string]int)}
}

// Add appends matches for a sentence. Calls with no matches are ignored, so
// a sentence only appears once it has at least one match. Adding to a
// sentence that is already present appends to its entry in place.
func (r *MatchRecord) Add(sentence string, matches ...Match) {
	if len(matches) == 0 {
		return
	}
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[sentence]; ok {
		r.entries[i].Matches = append(r.entries[i].Matches, matches...)
		return
	}
	r.index[sentence] = len(r.entries)
	r.entries = append(r.entries, SentenceMatches{
		Sentence: sentence,
		Matches:  append([]Match(nil), matches...),
	})
}

// Get returns the matches recorded for a sentence.
func (r *MatchRecord) Get(sentence string) ([]Match, bool) {
	i, ok := r.index[sentence]
	if !ok {
		return nil, false
	}
	return r.entries[i].Matches, true
}

// Entries returns the recorded sentences in insertion order.
func (r *MatchRecord) Entries() []SentenceMatches {
	if r == nil {
		return nil
	}
	return r.entries
}

// Len returns the number of sentences with at least one match.
func (r *MatchRecord) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// MatchCount returns the total number of matches across all sentences.
func (r *MatchRecord) MatchCount() int {
	total := 0
	for _, e := range r.Entries() {
		total += len(e.Matches)
	}
	return total
}

// MarshalJSON encodes the record as an ordered list of entries.
func (r *MatchRecord) MarshalJSON() ([]byte, error) {
	entries := r.Entries()
	if entries == nil {
		entries = []SentenceMatches{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes an ordered list of entries.
func (r *MatchRecord) UnmarshalJSON(data []byte) error {
	var entries []SentenceMatches
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*r = MatchRecord{index: make(map[string]int)}
	for _, e := range entries {
		r.Add(e.Sentence, e.Matches...)
	}
	return nil
}
