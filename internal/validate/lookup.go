package validate

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/JonMunkholm/portfolio-import/internal/match"
)

// resolution says how a reference name was found.
type resolution string

const (
	resolvedExact    resolution = "exact"
	resolvedFuzzy    resolution = "fuzzy"
	resolvedContains resolution = "contains"
)

type entry struct {
	Key  string // normalized name
	Name string
	ID   string
}

// lookup maps normalized names of one entity type to ids. The first entry
// added under a key wins.
type lookup struct {
	entries []entry
	byKey   map[string]int
}

func newLookup() *lookup {
	return &lookup{byKey: make(map[string]int)}
}

func (l *lookup) add(name, id string) {
	key := match.Normalize(name)
	if key == "" {
		return
	}
	if _, ok := l.byKey[key]; ok {
		return
	}

	l.byKey[key] = len(l.entries)
	l.entries = append(l.entries, entry{Key: key, Name: name, ID: id})
}

func (l *lookup) exact(name string) (entry, bool) {
	i, ok := l.byKey[match.Normalize(name)]
	if !ok {
		return entry{}, false
	}
	return l.entries[i], true
}

// closest returns the entry with the highest nameScore. The earliest entry
// wins ties.
func (l *lookup) closest(name string) (entry, int) {
	key := match.Normalize(name)

	var best entry
	bestScore := 0

	for _, e := range l.entries {
		if score := nameScore(key, e.Key); score > bestScore {
			best, bestScore = e, score
		}
	}

	return best, bestScore
}

// Containment needs at least this many characters on the shorter side.
const minContainLen = 3

// nameScore is match.FuzzyMatch over two normalized names, except that one
// name inside the other only earns the containment score when the shorter
// side has minContainLen characters and covers half of the longer side.
// Other substring hits ("ai" in "retail") score on edit distance alone.
func nameScore(a, b string) int {
	if a == "" || b == "" {
		return 0
	}

	if a != b && (strings.Contains(a, b) || strings.Contains(b, a)) {
		short, long := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
		if short > long {
			short, long = long, short
		}
		if short < minContainLen || short*2 < long {
			return int(math.Round(match.LevenshteinSimilarity(a, b) * match.FuzzyCeiling))
		}
	}

	return match.FuzzyMatch(a, b)
}

// containing returns the entry whose normalized name contains, or is
// contained by, name. Among several, the one closest in length wins.
func (l *lookup) containing(name string) (entry, bool) {
	key := match.Normalize(name)
	if len(key) < minContainLen {
		return entry{}, false
	}

	var best entry
	bestDiff := -1

	for _, e := range l.entries {
		if len(e.Key) < minContainLen {
			continue
		}
		if !strings.Contains(key, e.Key) && !strings.Contains(e.Key, key) {
			continue
		}

		diff := len(e.Key) - len(key)
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = e, diff
		}
	}

	return best, bestDiff >= 0
}

// resolve finds name by exact normalized match, then by fuzzy match at or
// above threshold when fuzzy is set, then by containment.
func (l *lookup) resolve(name string, fuzzy bool, threshold int) (entry, resolution, int, bool) {
	if e, ok := l.exact(name); ok {
		return e, resolvedExact, match.ExactScore, true
	}

	if fuzzy {
		if e, score := l.closest(name); score >= threshold && score > 0 {
			return e, resolvedFuzzy, score, true
		}
	}

	if e, ok := l.containing(name); ok {
		return e, resolvedContains, match.FuzzyMatch(name, e.Name), true
	}

	return entry{}, "", 0, false
}
