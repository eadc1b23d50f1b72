// Package sentence splits document text into the units that are compared
// against the similarity workflow.
//
// Splitting is purely syntactic: text is cut on the full-width comma and the
// full-width period, each fragment is trimmed, and empty fragments are
// dropped. There is no locale awareness and no configuration.
package sentence

import (
	"regexp"
	"strings"
)

// delimiters matches the two sentence terminators used for splitting.
var delimiters = regexp.MustCompile(`[，。]`)

// Split partitions text into trimmed, non-empty sentences in document order.
func Split(text string) []string {
	fragments := delimiters.Split(text, -1)

	sentences := make([]string, 0, len(fragments))
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		sentences = append(sentences, f)
	}
	return sentences
}
