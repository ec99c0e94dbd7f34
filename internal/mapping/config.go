// Package mapping proposes which schema field each sheet column feeds.
//
// Every (column, field) pair gets a weighted confidence built from four
// signals: header name, data type compatibility, value patterns, and
// semantic keywords. Pairs are then assigned greedily in descending
// confidence order.
package mapping

// Config holds the weights and thresholds of the scorer.
type Config struct {
	HeaderWeight   float64
	TypeWeight     float64
	PatternWeight  float64
	SemanticWeight float64

	MinAssign       int // pairs below this are never assigned
	MaxAlternatives int // alternatives listed per column

	TypeExact       int // inferred type equals the field's type
	TypeCompatible  int // inferred type is in the field's compatibility set
	TypeStringFloor int // any string column, always convertible

	PatternStrongAt  float64 // share of samples matching the field's patterns
	PatternPartialAt float64
	PatternStrong    int
	PatternPartial   int
	PatternDate      int // date field, column shows a date pattern
	PatternNumeric   int // number field, column shows currency or percentage
	PatternNeutral   int // nothing to compare

	SemanticDirect   int // header has a keyword of one of the field's tags
	SemanticTag      int // header contains one of the field's tags
	SemanticMiss     int // field has tags, header matched none
	SemanticUntagged int // field declares no tags
}

// DefaultConfig returns the standard weights (0.40/0.25/0.20/0.15) and
// thresholds.
func DefaultConfig() Config {
	return Config{
		HeaderWeight:   0.40,
		TypeWeight:     0.25,
		PatternWeight:  0.20,
		SemanticWeight: 0.15,

		MinAssign:       30,
		MaxAlternatives: 3,

		TypeExact:       100,
		TypeCompatible:  70,
		TypeStringFloor: 40,

		PatternStrongAt:  0.8,
		PatternPartialAt: 0.5,
		PatternStrong:    100,
		PatternPartial:   70,
		PatternDate:      90,
		PatternNumeric:   80,
		PatternNeutral:   50,

		SemanticDirect:   85,
		SemanticTag:      70,
		SemanticMiss:     30,
		SemanticUntagged: 50,
	}
}
