package transcript

import (
	"sort"
	"unicode"

	"github.com/scrypster/reverie/pkg/types"
)

// scriptRanges maps a script label to its unicode range table.
var scriptRanges = map[string]*unicode.RangeTable{
	"latin":      unicode.Latin,
	"cyrillic":   unicode.Cyrillic,
	"greek":      unicode.Greek,
	"arabic":     unicode.Arabic,
	"hebrew":     unicode.Hebrew,
	"devanagari": unicode.Devanagari,
	"han":        unicode.Han,
	"hangul":     unicode.Hangul,
	"hiragana":   unicode.Hiragana,
	"katakana":   unicode.Katakana,
	"thai":       unicode.Thai,
}

// DetectLanguages reports the writing systems used in the corpus.
// A script is included when it covers at least 10% of all letters seen.
// The result is sorted by descending coverage, ties broken alphabetically,
// so identical corpora always produce identical output.
func DetectLanguages(corpus []types.Message) []string {
	counts := make(map[string]int)
	total := 0

	for _, msg := range corpus {
		for _, r := range msg.Content {
			if !unicode.IsLetter(r) {
				continue
			}
			total++
			for label, table := range scriptRanges {
				if unicode.Is(table, r) {
					counts[label]++
					break
				}
			}
		}
	}

	if total == 0 {
		return nil
	}

	var detected []string
	for label, count := range counts {
		if float64(count)/float64(total) >= 0.10 {
			detected = append(detected, label)
		}
	}
	sort.Slice(detected, func(i, j int) bool {
		if counts[detected[i]] != counts[detected[j]] {
			return counts[detected[i]] > counts[detected[j]]
		}
		return detected[i] < detected[j]
	})
	return detected
}
