package match

import (
	"fmt"
	"math"
	"strings"
)

// Score constants shared by every strategy.
const (
	ExactScore      = 100 // normalized-equal strings
	AliasScore      = 98  // normalized-equal to a declared alias
	ContainmentMin  = 85  // one string contains the other, short side tiny
	ContainmentMax  = 95  // one string contains the other, nearly equal length
	FuzzyCeiling    = 80  // edit-distance only matches never exceed this
	ExpansionCap    = 95  // matches that needed abbreviation expansion or reordering
	ReportThreshold = 60  // composite strategies below this are not reported
)

// FuzzyMatch scores source against target from 0 to 100.
//
//   - 100 when the normalized strings are equal
//   - 85-95 when one normalized string contains the other, scaled by length ratio
//   - round(levenshteinSimilarity * 80) otherwise
func FuzzyMatch(source, target string) int {
	a, b := Normalize(source), Normalize(target)
	if a == "" || b == "" {
		return 0
	}

	if a == b {
		return ExactScore
	}

	la, lb := len([]rune(a)), len([]rune(b))
	if strings.Contains(a, b) || strings.Contains(b, a) {
		ratio := float64(min(la, lb)) / float64(max(la, lb))
		score := ContainmentMin + int(math.Round(ratio*float64(ContainmentMax-ContainmentMin)))

		return min(score, ContainmentMax)
	}

	return int(math.Round(LevenshteinSimilarity(a, b) * FuzzyCeiling))
}

// WordOverlap returns the Jaccard similarity of the word sets of a and b.
// Useful for multi-word headers whose words appear in a different order.
func WordOverlap(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	inter := 0

	for w := range wa {
		if wb[w] {
			inter++
		}
	}

	union := len(wa) + len(wb) - inter

	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := Words(s)
	set := make(map[string]bool, len(words))

	for _, w := range words {
		set[w] = true
	}

	return set
}

// FuzzyMatchWithAbbreviations returns the best FuzzyMatch over every pair of
// abbreviation expansions of source and target. A score that only comes from
// an expanded form is capped at ExpansionCap.
func FuzzyMatchWithAbbreviations(source, target string) int {
	best := FuzzyMatch(source, target)
	if best == ExactScore {
		return best
	}

	sources, targets := Expand(source), Expand(target)

	for i, s := range sources {
		for j, t := range targets {
			if i == 0 && j == 0 {
				continue
			}

			best = max(best, min(FuzzyMatch(s, t), ExpansionCap))
		}
	}

	return best
}

// WordOverlapScore returns the word-overlap similarity of source and target
// as a 0-100 score, taking the best pair of abbreviation expansions.
// Complete overlap is capped at ExpansionCap since word order is ignored.
func WordOverlapScore(source, target string) int {
	best := 0.0

	for _, s := range Expand(source) {
		for _, t := range Expand(target) {
			best = math.Max(best, WordOverlap(s, t))
		}
	}

	return min(int(math.Round(best*100)), ExpansionCap)
}

// Strategy identifies which composite strategy produced a score.
type Strategy string

const (
	StrategyExact       Strategy = "exact"
	StrategyAlias       Strategy = "alias"
	StrategyFuzzy       Strategy = "fuzzy"
	StrategyWordOverlap Strategy = "word_overlap"
	StrategyNone        Strategy = "none"
)

// Result is the outcome of CompositeMatch.
type Result struct {
	Score    int      // 0-100
	Strategy Strategy // StrategyNone when no strategy reached ReportThreshold
	Matched  string   // the target or alias that produced the score
	Reason   string   // human-readable explanation
}

// Reported reports whether the match cleared ReportThreshold.
func (r Result) Reported() bool {
	return r.Strategy != StrategyNone
}

// CompositeMatch compares source against a target name and its aliases and
// returns the highest of: exact (100), alias-exact (98), fuzzy with
// abbreviations, and word overlap. Strategies are tried in that order, so on
// equal scores the earlier strategy wins.
func CompositeMatch(source, target string, aliases []string) Result {
	ns := Normalize(source)
	if ns == "" {
		return Result{Strategy: StrategyNone, Reason: "empty source"}
	}

	if ns == Normalize(target) {
		return Result{
			Score:    ExactScore,
			Strategy: StrategyExact,
			Matched:  target,
			Reason:   fmt.Sprintf("exact match with %q", target),
		}
	}

	for _, alias := range aliases {
		if ns == Normalize(alias) {
			return Result{
				Score:    AliasScore,
				Strategy: StrategyAlias,
				Matched:  alias,
				Reason:   fmt.Sprintf("matches alias %q", alias),
			}
		}
	}

	best := Result{Strategy: StrategyNone}

	candidates := append([]string{target}, aliases...)
	for _, c := range candidates {
		if score := FuzzyMatchWithAbbreviations(source, c); score > best.Score {
			best = Result{
				Score:    score,
				Strategy: StrategyFuzzy,
				Matched:  c,
				Reason:   fmt.Sprintf("fuzzy match with %q (%d%%)", c, score),
			}
		}
	}

	for _, c := range candidates {
		if score := WordOverlapScore(source, c); score > best.Score {
			best = Result{
				Score:    score,
				Strategy: StrategyWordOverlap,
				Matched:  c,
				Reason:   fmt.Sprintf("word overlap with %q (%d%%)", c, score),
			}
		}
	}

	if best.Score < ReportThreshold {
		best.Strategy = StrategyNone
		best.Reason = fmt.Sprintf("no strategy reached %d (best %d)", ReportThreshold, best.Score)
	}

	return best
}

// Best returns the index and FuzzyMatch score of the candidate closest to
// source. The first candidate wins ties. Returns -1 when nothing scores above 0.
func Best(source string, candidates []string) (int, int) {
	idx, best := -1, 0

	for i, c := range candidates {
		if score := FuzzyMatch(source, c); score > best {
			idx, best = i, score
		}
	}

	return idx, best
}
