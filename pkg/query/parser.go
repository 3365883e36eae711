package query

import (
	"fmt"
	"strings"
	"unicode"
)

// Op is the combination operator applied to probabilistic terms that
// carry no explicit modifier.
type Op int

const (
	OpOr  Op = iota // any term may match
	OpAnd           // every term must match
)

func (op Op) String() string {
	if op == OpAnd {
		return "and"
	}
	return "or"
}

// ParseOp maps a configuration string to an Op.
func ParseOp(s string) (Op, error) {
	switch strings.ToLower(s) {
	case "or", "":
		return OpOr, nil
	case "and":
		return OpAnd, nil
	}
	return OpOr, fmt.Errorf("query: unknown operator %q", s)
}

// ParseError reports why a query expression was rejected. Callers map it
// to BadQuery and show the message to the user.
type ParseError struct {
	Input string
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %s", e.Input, e.Msg)
}

// DefaultStopWords are filtered from bare query terms. Modified terms
// ('+'/'-') bypass the filter: an explicit modifier means the user wants
// exactly that word.
var DefaultStopWords = map[string]bool{
	"the": true, "of": true, "and": true, "a": true, "an": true,
	"to": true, "in": true, "on": true, "for": true, "at": true, "by": true,
	"is": true, "it": true, "as": true, "be": true, "was": true,
	"are": true, "been": true, "with": true, "from": true, "into": true,
	"that": true, "this": true, "has": true, "have": true, "had": true,
}

// Normalize lowercases and strips punctuation to spaces, keeping letters,
// digits and apostrophes. Curly apostrophes fold to straight ones. The
// index tokenizer uses the same function, so parsed terms and indexed
// terms agree on identity.
func Normalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	for _, ch := range s {
		c := unicode.ToLower(ch)

		if c == '’' {
			out.WriteRune('\'')
			continue
		}

		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '\'' {
			out.WriteRune(c)
		} else {
			out.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(out.String()), " ")
}

// Tokenize splits and normalizes free text, filtering stop words.
func Tokenize(text string, stop map[string]bool) []string {
	if stop == nil {
		stop = DefaultStopWords
	}
	words := strings.Fields(Normalize(text))

	result := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) > 0 && !stop[w] {
			result = append(result, w)
		}
	}
	return result
}

// Parsed is the outcome of parsing one query expression.
type Parsed struct {
	Terms   TermSet        // every probabilistic term, phrases as single members
	Wqf     map[string]int // term -> occurrences in the query
	Loved   []string       // '+' terms, must match
	Hated   []string       // '-' terms, must not match
	Phrases []string       // quoted members of Terms
}

// Parser turns raw query expressions into term sets.
type Parser struct {
	StopWords map[string]bool // nil means DefaultStopWords
}

func NewParser() *Parser {
	return &Parser{StopWords: DefaultStopWords}
}

// token is one lexed unit of the raw expression.
type token struct {
	text   string
	phrase bool
	mod    byte // '+', '-', or 0
}

// Parse splits a raw query expression into a term set. Double quotes
// group a phrase into one term; a leading '+' or '-' marks the following
// term loved or hated. Returns *ParseError on unbalanced quotes or a
// modifier with no term; an expression with no usable terms at all
// parses to an empty set, which is not an error.
func (p *Parser) Parse(raw string) (Parsed, error) {
	tokens, err := lex(raw)
	if err != nil {
		return Parsed{}, err
	}

	stop := p.StopWords
	if stop == nil {
		stop = DefaultStopWords
	}

	parsed := Parsed{Terms: NewTermSet(), Wqf: make(map[string]int)}
	for _, tok := range tokens {
		if tok.phrase {
			norm := Normalize(tok.text)
			if norm == "" {
				if tok.mod != 0 {
					return Parsed{}, &ParseError{Input: raw, Msg: "operator with no term"}
				}
				continue
			}
			if !parsed.Terms.Contains(norm) {
				parsed.Phrases = append(parsed.Phrases, norm)
			}
			parsed.Terms.Add(norm)
			parsed.Wqf[norm]++
			parsed.applyMod(tok.mod, norm)
			continue
		}

		// One raw token can normalize to several words ("mother-in-law").
		words := strings.Fields(Normalize(tok.text))
		added := 0
		for _, w := range words {
			if tok.mod == 0 && stop[w] {
				continue
			}
			parsed.Terms.Add(w)
			parsed.Wqf[w]++
			parsed.applyMod(tok.mod, w)
			added++
		}
		if tok.mod != 0 && added == 0 {
			return Parsed{}, &ParseError{Input: raw, Msg: "operator with no term"}
		}
	}

	return parsed, nil
}

func (parsed *Parsed) applyMod(mod byte, term string) {
	switch mod {
	case '+':
		parsed.Loved = append(parsed.Loved, term)
	case '-':
		parsed.Hated = append(parsed.Hated, term)
	}
}

// lex splits the raw expression into tokens, honoring quotes and leading
// modifiers. Quotes must balance; a modifier must touch its term.
func lex(raw string) ([]token, error) {
	var tokens []token
	var current strings.Builder
	inQuote := false
	mod := byte(0)

	// flushTerm emits the pending bare token, if any. A pending modifier
	// with no text yet stays pending: it belongs to whatever follows
	// (normally an opening quote).
	flushTerm := func() {
		if current.Len() > 0 {
			tokens = append(tokens, token{text: current.String(), mod: mod})
			current.Reset()
			mod = 0
		}
	}

	for _, r := range raw {
		switch {
		case r == '"':
			if inQuote {
				tokens = append(tokens, token{text: current.String(), phrase: true, mod: mod})
				current.Reset()
				mod = 0
				inQuote = false
			} else {
				flushTerm()
				inQuote = true
			}
		case unicode.IsSpace(r) && !inQuote:
			if current.Len() == 0 && mod != 0 {
				return nil, &ParseError{Input: raw, Msg: "operator with no term"}
			}
			flushTerm()
		case (r == '+' || r == '-') && !inQuote && current.Len() == 0 && mod == 0:
			mod = byte(r)
		default:
			current.WriteRune(r)
		}
	}

	if inQuote {
		return nil, &ParseError{Input: raw, Msg: "unbalanced quote"}
	}
	if current.Len() == 0 && mod != 0 {
		return nil, &ParseError{Input: raw, Msg: "operator with no term"}
	}
	flushTerm()

	return tokens, nil
}
