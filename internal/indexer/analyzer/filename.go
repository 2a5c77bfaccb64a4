package analyzer

import (
	"strings"
	"unicode"
)

type runeClass uint8

const (
	classDelim runeClass = iota
	classLower
	classUpper
	classDigit
)

func classify(r rune) runeClass {
	switch {
	case unicode.IsUpper(r):
		return classUpper
	case unicode.IsLetter(r):
		return classLower
	case unicode.IsDigit(r):
		return classDigit
	default:
		return classDelim
	}
}

// AnalyzeFilename splits text on whitespace, then splits every word on case
// changes, letter/digit transitions and punctuation, and lowercases the
// parts: "ReportV2.txt" becomes report, v, 2, txt.
func AnalyzeFilename(text string) []Token {
	words := strings.Fields(text)
	tokens := make([]Token, 0, len(words)*2)
	pos := 0
	for _, word := range words {
		for _, part := range splitWord(word) {
			tokens = append(tokens, Token{
				Term:     strings.ToLower(part),
				Position: pos,
			})
			pos++
		}
	}
	return tokens
}

// splitWord is the word-delimiter step. Case is inspected before
// lowercasing, otherwise case transitions would be invisible.
func splitWord(word string) []string {
	rs := []rune(word)
	parts := make([]string, 0, 4)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			parts = append(parts, string(rs[start:end]))
		}
		start = -1
	}
	for i := 0; i < len(rs); i++ {
		c := classify(rs[i])
		if c == classDelim {
			flush(i)
			if isPossessive(rs, i) {
				i++
			}
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := classify(rs[i-1])
		split := false
		switch {
		case prev == classLower && c == classUpper:
			split = true
		case prev == classUpper && c == classUpper && i+1 < len(rs) && classify(rs[i+1]) == classLower:
			split = true
		case (prev == classDigit) != (c == classDigit):
			split = true
		}
		if split {
			flush(i)
			start = i
		}
	}
	flush(len(rs))
	return parts
}

// isPossessive reports an English "'s" ending a word part at rs[i].
func isPossessive(rs []rune, i int) bool {
	if rs[i] != '\'' && rs[i] != '’' {
		return false
	}
	if i+1 >= len(rs) || (rs[i+1] != 's' && rs[i+1] != 'S') {
		return false
	}
	return i+2 == len(rs) || classify(rs[i+2]) == classDelim
}
