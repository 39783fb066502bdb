package pos

import (
	"strings"
	"unicode"

	"github.com/iliyamo/restaurant-frontdesk/internal/model"
)

// TableIndex resolves vendor table labels to table ids. Vendors disagree on
// naming ("T7", "Table 7", "07", "7"), so a label is expanded into candidate
// keys and the first key that names a table wins.
type TableIndex struct {
	byName map[string]uint64
}

// NewTableIndex indexes tables by raw and normalized name. When two tables
// share a name the lowest id keeps it.
func NewTableIndex(tables []model.RestaurantTable) *TableIndex {
	idx := &TableIndex{byName: make(map[string]uint64, len(tables)*2)}
	for _, t := range tables {
		for _, k := range []string{t.Name, normalize(t.Name)} {
			if k == "" {
				continue
			}
			if cur, ok := idx.byName[k]; !ok || t.ID < cur {
				idx.byName[k] = t.ID
			}
		}
	}
	return idx
}

// Match returns the table a vendor label refers to.
func (idx *TableIndex) Match(label string) (uint64, bool) {
	for _, k := range Candidates(label) {
		if id, ok := idx.byName[k]; ok {
			return id, true
		}
	}
	return 0, false
}

// Candidates expands a label in priority order: the raw label, its
// normalized form, the form with a T/TABLE prefix removed, the bare digits,
// then T{n} and TABLE{n}.
func Candidates(label string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}

	add(label)
	norm := normalize(label)
	add(norm)
	switch {
	case strings.HasPrefix(norm, "TABLE"):
		add(strings.TrimPrefix(norm, "TABLE"))
	case strings.HasPrefix(norm, "TBL"):
		add(strings.TrimPrefix(norm, "TBL"))
	case strings.HasPrefix(norm, "T"):
		add(strings.TrimPrefix(norm, "T"))
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, norm)
	if digits == "" {
		return out
	}
	trimmed := strings.TrimLeft(digits, "0")
	if trimmed == "" {
		trimmed = "0"
	}
	for _, n := range []string{digits, trimmed} {
		add(n)
		add("T" + n)
		add("TABLE" + n)
	}
	return out
}

// normalize upper-cases and drops whitespace and separators.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r), r == '-', r == '_', r == '#', r == '.':
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}
