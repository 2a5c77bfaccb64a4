package analyzer

import (
	"strings"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
)

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

// italianSuffixes is a light inflectional stemmer: it folds gender and number
// endings so "gatto", "gatti", "gatta", "gatte" share a stem. Rules are tried
// in order; the first whose result keeps at least minLen runes wins.
var italianSuffixes = []suffixRule{
	{"chi", "c", 3},
	{"ghi", "g", 3},
	{"che", "c", 3},
	{"ghe", "g", 3},
	{"ie", "", 3},
	{"ia", "", 3},
	{"io", "", 3},
	{"ii", "", 3},
	{"a", "", 3},
	{"e", "", 3},
	{"i", "", 3},
	{"o", "", 3},
}

func stem(lang Language, word string) string {
	switch lang {
	case English:
		return english.Stem(word, true)
	default:
		return applySuffixRules(italianSuffixes, word)
	}
}

func applySuffixRules(rules []suffixRule, word string) string {
	for _, rule := range rules {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if utf8.RuneCountInString(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
