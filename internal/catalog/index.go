package catalog

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold case-folds s. A Caser holds state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ExactKey folds case and collapses whitespace.
func ExactKey(name string) string {
	return fold(strings.Join(strings.Fields(name), " "))
}

// FuzzyKey strips accents, punctuation and spaces, keeping folded letters and digits.
func FuzzyKey(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	var b strings.Builder
	for _, r := range fold(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Index resolves item names without scanning the catalogue. Items live in
// one slice; the maps hold positions into it.
type Index struct {
	items []Item
	exact map[string]int
	fuzzy map[string]int
}

// BuildIndex indexes items. When two items share a key the lowest id wins.
func BuildIndex(items []Item) *Index {
	arena := make([]Item, len(items))
	copy(arena, items)
	sort.Slice(arena, func(i, j int) bool { return arena[i].ID < arena[j].ID })

	idx := &Index{
		items: arena,
		exact: make(map[string]int, len(arena)),
		fuzzy: make(map[string]int, len(arena)),
	}
	for pos, item := range arena {
		if key := ExactKey(item.Name); key != "" {
			if _, taken := idx.exact[key]; !taken {
				idx.exact[key] = pos
			}
		}
		if key := FuzzyKey(item.Name); key != "" {
			if _, taken := idx.fuzzy[key]; !taken {
				idx.fuzzy[key] = pos
			}
		}
	}
	return idx
}

// Lookup tries the exact key first, then the fuzzy key.
func (i *Index) Lookup(name string) (Item, bool) {
	if i == nil {
		return Item{}, false
	}
	if pos, ok := i.exact[ExactKey(name)]; ok {
		return i.items[pos], true
	}
	if key := FuzzyKey(name); key != "" {
		if pos, ok := i.fuzzy[key]; ok {
			return i.items[pos], true
		}
	}
	return Item{}, false
}

// Len reports the number of indexed items.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.items)
}
