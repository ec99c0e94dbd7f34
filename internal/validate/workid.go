package validate

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// workIDs hands out project work identifiers of the form
// DEPT-CAT-FYyy-NNN, e.g. ENG-INF-FY25-001. Sequences are per prefix and
// continue after the highest one already in use.
type workIDs struct {
	next map[string]int
}

func newWorkIDs(existing []Record) *workIDs {
	w := &workIDs{next: make(map[string]int)}

	for _, r := range existing {
		id, _ := r.Fields["workId"].(string)
		prefix, seq, ok := splitWorkID(id)
		if ok && seq >= w.next[prefix] {
			w.next[prefix] = seq + 1
		}
	}

	return w
}

// assign returns the next work id for a project's data. Fiscal year falls
// back to the start date's year, then to fallbackYear.
func (w *workIDs) assign(data map[string]any, fallbackYear int) string {
	year := fallbackYear
	if fy, ok := data["fiscalYear"].(float64); ok && fy > 0 {
		year = int(fy)
	} else if start, ok := data["startDate"].(string); ok && len(start) >= 4 {
		if y, err := strconv.Atoi(start[:4]); err == nil {
			year = y
		}
	}

	prefix := fmt.Sprintf("%s-%s-FY%02d",
		workCode(data["department"]),
		workCode(data["category"]),
		year%100,
	)

	seq := w.next[prefix]
	if seq == 0 {
		seq = 1
	}
	w.next[prefix] = seq + 1

	return fmt.Sprintf("%s-%03d", prefix, seq)
}

// workCode is the first three letters of v, upper-cased, or GEN.
func workCode(v any) string {
	s, _ := v.(string)

	var b strings.Builder
	for _, r := range s {
		if b.Len() == 3 {
			break
		}
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}

	if b.Len() < 3 {
		return "GEN"
	}
	return b.String()
}

func splitWorkID(id string) (string, int, bool) {
	i := strings.LastIndex(id, "-")
	if i <= 0 {
		return "", 0, false
	}

	seq, err := strconv.Atoi(id[i+1:])
	if err != nil || seq <= 0 {
		return "", 0, false
	}

	return id[:i], seq, true
}
