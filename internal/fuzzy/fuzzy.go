// Package fuzzy ranks option and subcommand names by similarity to a
// mistyped token. The cmdline package attaches the results to
// UnmatchedArgumentError as suggestions.
package fuzzy

import (
	"sort"
	"strings"
)

const (
	// DefaultDistance is the maximum edit distance used by FindOptions and FindCommands.
	DefaultDistance = 2
	// DefaultLimit caps the number of suggestions returned by FindOptions and FindCommands.
	DefaultLimit = 3
)

// Matcher scores candidates against an input by edit distance.
type Matcher struct {
	maxDistance int
	minLength   int
}

// NewMatcher creates a matcher that accepts candidates within maxDistance edits.
func NewMatcher(maxDistance int) *Matcher {
	return &Matcher{
		maxDistance: maxDistance,
		minLength:   2, // single characters never get suggestions
	}
}

// Match is one scored candidate.
type Match struct {
	Value    string
	Distance int
	Score    float64 // 0.0 to 1.0, higher is better
}

// FindBest returns the closest candidate, or "" when none is close enough.
func (m *Matcher) FindBest(input string, candidates []string) string {
	matches := m.FindMatches(input, candidates)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Value
}

// FindMatches returns all candidates within the distance limit, best first.
// Exact matches are skipped.
func (m *Matcher) FindMatches(input string, candidates []string) []Match {
	if len(input) < m.minLength {
		return nil
	}

	var matches []Match
	input = strings.ToLower(input)
	seen := make(map[string]bool, len(candidates))

	for _, candidate := range candidates {
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		lower := strings.ToLower(candidate)
		if input == lower {
			continue
		}

		distance := m.levenshteinDistance(input, lower)
		if distance <= m.maxDistance {
			matches = append(matches, Match{
				Value:    candidate,
				Distance: distance,
				Score:    m.calculateScore(input, lower, distance),
			})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// calculateScore weighs edit distance, shared prefix, length similarity and
// shared characters into a value between 0 and 1.
func (m *Matcher) calculateScore(input, candidate string, distance int) float64 {
	longest := max(len(input), len(candidate))
	if longest == 0 {
		return 1.0
	}

	score := 1.0 - float64(distance)/float64(longest)

	if prefix := commonPrefixLength(input, candidate); prefix > 0 {
		score += float64(prefix) / float64(min(len(input), len(candidate))) * 0.3
	}

	lengthDiff := abs(len(input) - len(candidate))
	score += (1.0 - float64(lengthDiff)/float64(longest)) * 0.2
	score += float64(countCommonChars(input, candidate)) / float64(longest) * 0.1

	return min(score, 1.0)
}

// levenshteinDistance uses two rows and gives up as soon as every cell of a
// row exceeds the limit.
func (m *Matcher) levenshteinDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if abs(len(a)-len(b)) > m.maxDistance {
		return m.maxDistance + 1
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for i := range prev {
		prev[i] = i
	}

	for i := 1; i <= len(b); i++ {
		curr[0] = i
		rowMin := i
		for j := 1; j <= len(a); j++ {
			cost := 1
			if a[j-1] == b[i-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}
		if rowMin > m.maxDistance {
			return m.maxDistance + 1
		}
		prev, curr = curr, prev
	}

	return prev[len(a)]
}

func commonPrefixLength(a, b string) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func countCommonChars(a, b string) int {
	counts := make(map[rune]int)
	for _, r := range a {
		counts[r]++
	}
	common := 0
	for _, r := range b {
		if counts[r] > 0 {
			common++
			counts[r]--
		}
	}
	return common
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// FindSuggestions returns up to limit candidates within maxDistance of input.
func FindSuggestions(input string, candidates []string, maxDistance, limit int) []string {
	matches := NewMatcher(maxDistance).FindMatches(input, candidates)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, len(matches))
	for i, match := range matches {
		out[i] = match.Value
	}
	return out
}

// FindOptions suggests option names for a mistyped option token such as
// "--verbos". Candidates are compared with their dashes.
func FindOptions(token string, names []string) []string {
	return FindSuggestions(token, names, DefaultDistance, DefaultLimit)
}

// FindCommands suggests subcommand names or aliases for a stray token.
func FindCommands(token string, names []string) []string {
	return FindSuggestions(token, names, DefaultDistance, DefaultLimit)
}
