package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// AnalyzeContent tokenises text on runs of letters and digits, lowercases,
// folds accents, drops stop words and stems. Positions count surviving
// tokens only, so they are contiguous.
func AnalyzeContent(lang Language, text string) []Token {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	stop := stopWordsFor(lang)
	tokens := make([]Token, 0, len(words))
	pos := 0
	for _, word := range words {
		word = foldAccents(strings.ToLower(word))
		if word == "" {
			continue
		}
		if _, isStop := stop[word]; isStop {
			continue
		}
		stemmed := stem(lang, word)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, Token{
			Term:     stemmed,
			Position: pos,
		})
		pos++
	}
	return tokens
}

// foldAccents strips combining marks, so "perché" and "perche" agree.
func foldAccents(word string) string {
	ascii := true
	for i := 0; i < len(word); i++ {
		if word[i] >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return word
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, word)
	if err != nil {
		return word
	}
	return folded
}
