package match

import "strings"

// maxExpansions bounds the number of surface forms Expand generates.
const maxExpansions = 32

// abbreviations maps a short form to its expansions. Keys and values are
// lowercase and space separated.
var abbreviations = map[string][]string{
	"id":    {"identifier"},
	"desc":  {"description"},
	"descr": {"description"},
	"pm":    {"project manager"},
	"proj":  {"project"},
	"prj":   {"project"},
	"est":   {"estimated", "estimate"},
	"hrs":   {"hours"},
	"hr":    {"hour", "hours"},
	"mgr":   {"manager"},
	"dept":  {"department"},
	"amt":   {"amount"},
	"pct":   {"percent", "percentage"},
	"qty":   {"quantity"},
	"num":   {"number"},
	"no":    {"number"},
	"fy":    {"fiscal year"},
	"yr":    {"year"},
	"kpi":   {"key performance indicator"},
	"tgt":   {"target"},
	"curr":  {"current"},
	"cur":   {"current"},
	"init":  {"initiative"},
	"ms":    {"milestone"},
	"cat":   {"category"},
	"org":   {"organization"},
	"resp":  {"responsible"},
	"dt":    {"date"},
	"st":    {"start"},
	"bdgt":  {"budget"},
	"assgn": {"assignee"},
	"eml":   {"email"},
	"freq":  {"frequency"},
	"uom":   {"unit of measure"},
	"pri":   {"priority"},
	"prio":  {"priority"},
	"stat":  {"status"},
	"comp":  {"completion", "completed"},
}

// reverseAbbreviations maps an expansion back to its short forms.
var reverseAbbreviations = func() map[string][]string {
	rev := make(map[string][]string)

	for short, longs := range abbreviations {
		for _, long := range longs {
			rev[long] = append(rev[long], short)
		}
	}

	return rev
}()

// Expand returns alternate surface forms of text produced by the abbreviation
// table. The first element is always the space-normalized original. Each word
// is replaced by its expansions (and expanded phrases by their short forms),
// so "Proj Mgr" yields "proj mgr", "project mgr", "proj manager",
// "project manager", ...
func Expand(text string) []string {
	words := Words(text)
	if len(words) == 0 {
		return []string{""}
	}

	original := strings.Join(words, " ")
	forms := []string{""}

	for _, w := range words {
		options := append([]string{w}, abbreviations[w]...)
		options = append(options, reverseAbbreviations[w]...)

		next := make([]string, 0, len(forms)*len(options))

		for _, f := range forms {
			for _, o := range options {
				if len(next) >= maxExpansions {
					break
				}

				if f == "" {
					next = append(next, o)
				} else {
					next = append(next, f+" "+o)
				}
			}
		}

		forms = next
	}

	// Multi-word phrases compress back to their short form ("project manager" -> "pm")
	for long, shorts := range reverseAbbreviations {
		if !strings.Contains(long, " ") || !containsPhrase(original, long) {
			continue
		}

		for _, s := range shorts {
			forms = append(forms, strings.Replace(original, long, s, 1))
		}
	}

	return dedupe(forms, original)
}

func containsPhrase(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// dedupe removes repeated forms and guarantees original comes first.
func dedupe(forms []string, original string) []string {
	seen := map[string]bool{original: true}
	out := []string{original}

	for _, f := range forms {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}

	return out
}
