package match

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Project Name", "projectname"},
		{"project_name", "projectname"},
		{"PROJECT-NAME", "projectname"},
		{"  Due   Date ", "duedate"},
		{"Budget ($)", "budget"},
		{"Completion %", "completion"},
		{"Café Owner", "cafeowner"},
		{"FY2025", "fy2025"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.expected {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.expected)
			}

			// Idempotent
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: Normalize(%q) = %q", got, again)
			}
		})
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"dueDate", "due date"},
		{"due_date", "due date"},
		{"Due  Date", "due date"},
		{"HTTPStatus", "http status"},
		{"Est. Hours", "est hours"},
	}

	for _, tt := range tests {
		if got := NormalizeSpaced(tt.input); got != tt.expected {
			t.Errorf("NormalizeSpaced(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a        string
		b        string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"a", "b", 1},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"projname", "projectname", 3},
		{"café", "cafe", 1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := Levenshtein(tt.a, tt.b)
			if got != tt.expected {
				t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.expected)
			}

			if rev := Levenshtein(tt.b, tt.a); rev != got {
				t.Errorf("Levenshtein not symmetric: %d vs %d", got, rev)
			}
		})
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	if got := LevenshteinSimilarity("", ""); got != 1.0 {
		t.Errorf("similarity of empty strings = %v, want 1", got)
	}

	got := LevenshteinSimilarity("kitten", "sitting")
	want := 1.0 - 3.0/7.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LevenshteinSimilarity = %v, want %v", got, want)
	}
}

func TestFuzzyMatch(t *testing.T) {
	tests := []struct {
		name   string
		source string
		target string
		min    int
		max    int
	}{
		{"exact after normalize", "Due_Date", "due date", 100, 100},
		{"containment", "Budget", "Total Budget", 85, 95},
		{"containment nearly equal", "Owners", "Owner", 85, 95},
		{"edit distance only", "Statsu", "Status", 0, 80},
		{"unrelated", "Email", "Budget", 0, 40},
		{"empty source", "", "Budget", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FuzzyMatch(tt.source, tt.target)
			if got < tt.min || got > tt.max {
				t.Errorf("FuzzyMatch(%q, %q) = %d, want [%d, %d]", tt.source, tt.target, got, tt.min, tt.max)
			}
		})
	}
}

func TestWordOverlap(t *testing.T) {
	if got := WordOverlap("Project Start Date", "start date project"); got != 1.0 {
		t.Errorf("WordOverlap reordered = %v, want 1", got)
	}

	got := WordOverlap("Project Name", "Project Owner")
	if math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("WordOverlap = %v, want 1/3", got)
	}

	if got := WordOverlap("", "x"); got != 0 {
		t.Errorf("WordOverlap empty = %v, want 0", got)
	}
}

func TestExpand(t *testing.T) {
	forms := Expand("Proj Mgr")
	if forms[0] != "proj mgr" {
		t.Errorf("first form = %q, want original", forms[0])
	}

	want := map[string]bool{"project manager": false, "project mgr": false}
	for _, f := range forms {
		if _, ok := want[f]; ok {
			want[f] = true
		}
	}

	for f, seen := range want {
		if !seen {
			t.Errorf("Expand(%q) missing form %q (got %v)", "Proj Mgr", f, forms)
		}
	}

	if len(forms) > maxExpansions+8 {
		t.Errorf("Expand produced %d forms", len(forms))
	}
}

func TestExpand_PhraseCompression(t *testing.T) {
	forms := Expand("Project Manager")

	found := false
	for _, f := range forms {
		if f == "pm" {
			found = true
		}
	}

	if !found {
		t.Errorf("Expand(%q) = %v, want it to include %q", "Project Manager", forms, "pm")
	}
}

func TestFuzzyMatchWithAbbreviations(t *testing.T) {
	if got := FuzzyMatchWithAbbreviations("Est Hours", "Estimated Hours"); got != ExpansionCap {
		t.Errorf("expanded match = %d, want %d", got, ExpansionCap)
	}

	if got := FuzzyMatchWithAbbreviations("Estimated Hours", "estimated_hours"); got != ExactScore {
		t.Errorf("literal match = %d, want %d", got, ExactScore)
	}
}

func TestCompositeMatch(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		target   string
		aliases  []string
		strategy Strategy
		minScore int
	}{
		{"exact", "Project Name", "project_name", nil, StrategyExact, 100},
		{"alias", "Title", "name", []string{"project name", "title"}, StrategyAlias, 98},
		{"abbreviation", "Proj Name", "Project Name", []string{"project name", "title"}, StrategyFuzzy, 60},
		{"word order", "Date Due", "Due Date", nil, StrategyWordOverlap, 60},
		{"no match", "Colour", "Budget", nil, StrategyNone, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompositeMatch(tt.source, tt.target, tt.aliases)
			if got.Strategy != tt.strategy {
				t.Errorf("Strategy = %q, want %q (reason %q)", got.Strategy, tt.strategy, got.Reason)
			}

			if got.Score < tt.minScore || got.Score > 100 {
				t.Errorf("Score = %d, want >= %d and <= 100", got.Score, tt.minScore)
			}

			if got.Reason == "" {
				t.Error("Reason is empty")
			}
		})
	}
}

func TestCompositeMatch_ExactBeatsEverything(t *testing.T) {
	exact := CompositeMatch("Budget", "budget", []string{"cost"})
	alias := CompositeMatch("Cost", "budget", []string{"cost"})

	if exact.Score != ExactScore {
		t.Errorf("exact score = %d, want %d", exact.Score, ExactScore)
	}

	if alias.Score >= exact.Score {
		t.Errorf("alias score %d should be below exact %d", alias.Score, exact.Score)
	}
}

func TestBest(t *testing.T) {
	idx, score := Best("Jane Doe", []string{"John Smith", "Jane Doe", "jane doe"})
	if idx != 1 || score != 100 {
		t.Errorf("Best = (%d, %d), want (1, 100)", idx, score)
	}

	idx, _ = Best("x", nil)
	if idx != -1 {
		t.Errorf("Best on empty candidates = %d, want -1", idx)
	}
}
