// Package analyzer turns raw field text into positioned, normalised terms.
// Two configurations exist: the content analyzer (letter/digit tokenisation,
// lowercasing, accent folding, stop-word removal, stemming) and the filename
// analyzer (whitespace tokenisation, word-delimiter splitting, lowercasing).
// The field name alone picks the configuration, at index and at query time.
package analyzer

import (
	"fmt"
	"strings"
)

// Field names known to the engine.
const (
	FieldFilename = "filename"
	FieldContent  = "content"
)

// Fields lists the indexed fields in the order documents are analyzed.
var Fields = []string{FieldFilename, FieldContent}

// Token represents a single normalised term and its position in the
// analyzed field.
type Token struct {
	Term     string
	Position int
}

// Kind is the closed set of analyzer configurations.
type Kind uint8

const (
	Content Kind = iota
	Filename
)

func (k Kind) String() string {
	switch k {
	case Filename:
		return "filename"
	default:
		return "content"
	}
}

// KindFor maps a field name to its analyzer. Unknown fields use Content.
func KindFor(field string) Kind {
	if field == FieldFilename {
		return Filename
	}
	return Content
}

// Language selects the stop-word list and stemmer of the content analyzer.
type Language string

const (
	Italian Language = "italian"
	English Language = "english"
)

// ParseLanguage validates a configured language name.
func ParseLanguage(s string) (Language, error) {
	switch lang := Language(strings.ToLower(strings.TrimSpace(s))); lang {
	case Italian, English:
		return lang, nil
	case "":
		return Italian, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// PerField dispatches analysis on the field name. It is immutable and safe
// for concurrent use.
type PerField struct {
	lang Language
}

func NewPerField(lang Language) *PerField {
	if lang == "" {
		lang = Italian
	}
	return &PerField{lang: lang}
}

func (p *PerField) Language() Language {
	return p.lang
}

// Analyze returns the tokens of text as analyzed for field.
func (p *PerField) Analyze(field string, text string) []Token {
	switch KindFor(field) {
	case Filename:
		return AnalyzeFilename(text)
	default:
		return AnalyzeContent(p.lang, text)
	}
}
