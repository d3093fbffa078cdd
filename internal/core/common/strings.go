package common

import (
	"strings"
	"unicode"
)

// NormalizeName lowercases, strips punctuation and collapses whitespace so
// "O'Brien,  Patrick " and "obrien patrick" compare equal-ish.
func NormalizeName(s string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// SimilarityRatio returns a normalized edit-distance similarity in [0,1]
// between the two strings after NormalizeName. Identical strings score 1,
// fully dissimilar strings score 0.
func SimilarityRatio(a, b string) float64 {
	a = NormalizeName(a)
	b = NormalizeName(b)
	if a == b {
		if a == "" {
			return 0
		}
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	dist := prev[len(rb)]
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "i": true, "if": true, "in": true, "into": true,
	"is": true, "it": true, "its": true, "me": true, "my": true,
	"no": true, "not": true, "of": true, "on": true, "or": true,
	"our": true, "she": true, "so": true, "that": true, "the": true,
	"their": true, "them": true, "then": true, "there": true,
	"these": true, "they": true, "this": true, "to": true, "up": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"which": true, "who": true, "will": true, "with": true, "you": true,
	"your": true,
}

// WordSet returns the lowercase, stop-word-filtered word set of the text.
func WordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.TrimFunc(w, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(w) < 2 || stopWords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// OverlapCoefficient is |A∩B| / min(|A|,|B|); 0 when either set is empty.
func OverlapCoefficient(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	shared := 0
	for w := range small {
		if large[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(small))
}

// Jaccard is |A∩B| / |A∪B|; 0 when both sets are empty.
func Jaccard(a, b []string) float64 {
	set := make(map[string]int)
	for _, w := range a {
		set[strings.ToLower(w)] |= 1
	}
	for _, w := range b {
		set[strings.ToLower(w)] |= 2
	}
	if len(set) == 0 {
		return 0
	}
	both := 0
	for _, v := range set {
		if v == 3 {
			both++
		}
	}
	return float64(both) / float64(len(set))
}

// SharedCount counts case-insensitive common members of two string slices.
func SharedCount(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}
	n := 0
	seen := make(map[string]bool)
	for _, s := range b {
		ls := strings.ToLower(s)
		if set[ls] && !seen[ls] {
			seen[ls] = true
			n++
		}
	}
	return n
}

// SplitName breaks a display name into (first, last). Middle tokens fold
// into the last name; a single token yields an empty last name.
func SplitName(name string) (string, string) {
	fields := strings.Fields(NormalizeName(name))
	if len(fields) == 0 {
		return "", ""
	}
	if len(fields) == 1 {
		return fields[0], ""
	}
	return fields[0], fields[len(fields)-1]
}
