// Package parser turns a query line into a QueryPlan. Parsing is purely
// syntactic: it never touches the index, and term analysis happens later in
// the executor with the analyzer bound to the target field.
package parser

import (
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/fulltext-search/internal/indexer/analyzer"
	apperrors "github.com/Adithya-Monish-Kumar-K/fulltext-search/pkg/errors"
)

// QueryPlan is a parsed query: one field and one term expression.
type QueryPlan struct {
	Field    string
	Expr     string
	Phrase   bool
	RawQuery string
}

func invalid(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrInvalidQuery, apperrors.ExitInvalid, format, args...)
}

// Parse accepts `<field> <term-expr>`. The field is `filename` or `content`
// in any case and must be followed by whitespace. The expression is either
// bare terms, all of which must match, or one double-quoted phrase.
func Parse(query string) (*QueryPlan, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, invalid("empty query")
	}
	head, rest := q, ""
	if i := strings.IndexFunc(q, unicode.IsSpace); i >= 0 {
		head, rest = q[:i], strings.TrimSpace(q[i:])
	}
	field, ok := fieldName(head)
	if !ok {
		return nil, invalid("query %q must start with a field prefix (filename or content)", q)
	}
	if rest == "" {
		return nil, invalid("query %q has an empty term expression", q)
	}

	plan := &QueryPlan{Field: field, Expr: rest, RawQuery: q}
	switch quotes := strings.Count(rest, `"`); {
	case quotes == 0:
	case quotes%2 != 0:
		return nil, invalid("query %q has unbalanced quotes", q)
	case quotes == 2 && strings.HasPrefix(rest, `"`) && strings.HasSuffix(rest, `"`):
		phrase := strings.TrimSpace(rest[1 : len(rest)-1])
		if phrase == "" {
			return nil, invalid("query %q has an empty phrase", q)
		}
		plan.Expr = phrase
		plan.Phrase = true
	default:
		return nil, invalid("query %q mixes phrase and bare terms; use a single quoted phrase", q)
	}
	return plan, nil
}

func fieldName(word string) (string, bool) {
	for _, f := range analyzer.Fields {
		if strings.EqualFold(word, f) {
			return f, true
		}
	}
	return "", false
}

// CacheKey is a canonical form of the plan: bare terms are case-folded and
// sorted since their order does not matter, phrases keep their order.
func (p *QueryPlan) CacheKey() string {
	words := strings.Fields(strings.ToLower(p.Expr))
	if !p.Phrase {
		sort.Strings(words)
		return p.Field + "|terms|" + strings.Join(words, " ")
	}
	return p.Field + "|phrase|" + strings.Join(words, " ")
}
