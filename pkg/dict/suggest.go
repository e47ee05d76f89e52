// Suggest is a diagnostic aid, not part of the decode loop: when an FSG
// author references a word the dictionary doesn't have, a search for a
// near-miss is far more useful than a bare "unknown word" error.
package dict

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const defaultSuggestThreshold = 0.80

// Suggester finds the dictionary entry most likely to be a typo or
// near-homophone of an unresolved word: each candidate is scored by
// Jaro-Winkler similarity, plus a small boost (capped at 1.0) when its
// Double Metaphone codes overlap the word's.
type Suggester struct {
	dict      *MemDict
	threshold float64
}

// NewSuggester returns a Suggester over d using the default similarity
// threshold (0.80).
func NewSuggester(d *MemDict) *Suggester {
	return &Suggester{dict: d, threshold: defaultSuggestThreshold}
}

// WithThreshold overrides the minimum similarity score (Jaro-Winkler plus
// any phonetic boost) a candidate must reach to be suggested.
func (s *Suggester) WithThreshold(t float64) *Suggester {
	s.threshold = t
	return s
}

// Suggest returns the closest known word to word and whether it cleared the
// similarity threshold. Multiple pronunciation variants of the same base
// word are considered once.
func (s *Suggester) Suggest(word string) (suggestion string, confidence float64, ok bool) {
	target := strings.ToLower(strings.TrimSpace(word))
	if target == "" {
		return "", 0, false
	}
	targetP, targetS := matchr.DoubleMetaphone(target)

	var bestWord string
	var bestScore float64
	seen := make(map[string]bool, len(s.dict.byWord))
	for base := range s.dict.byWord {
		baseLower := strings.ToLower(base)
		if seen[baseLower] || baseLower == target {
			continue
		}
		seen[baseLower] = true

		score := matchr.JaroWinkler(target, baseLower, true)
		p, sec := matchr.DoubleMetaphone(baseLower)
		if phoneticOverlap(targetP, targetS, p, sec) {
			score += 0.05 // small boost for phonetic agreement, capped below
			if score > 1.0 {
				score = 1.0
			}
		}
		if score > bestScore {
			bestScore = score
			bestWord = base
		}
	}
	if bestWord == "" || bestScore < s.threshold {
		return "", 0, false
	}
	return bestWord, bestScore, true
}

func phoneticOverlap(p1, s1, p2, s2 string) bool {
	if p1 == "" || p2 == "" {
		return false
	}
	return p1 == p2 || (s1 != "" && s1 == p2) || (s2 != "" && p1 == s2) || (s1 != "" && s2 != "" && s1 == s2)
}
