package tokenizer

import (
	"iter"
	"regexp"
	"strings"
	"unicode/utf8"
)

// rule binds a pattern to the token type it produces. Rules are tried
// in slice order at each position and the FIRST match wins, so the
// order of the table is a correctness invariant:
//
//  1. container rules (strings, field references) before anything that
//     could match their interior
//  2. multi-character operators before their single-character prefixes
//  3. keywords (word-boundary anchored) before the identifier rule
//  4. real-number rule before the integer rule
//
// tokenizer_test.go feeds every keyword and operator through the full
// table to pin this ordering down.
type rule struct {
	pattern *regexp.Regexp
	ttype   TokenType
}

var rules = []rule{
	// Container rules first
	{regexp.MustCompile(`^"(?:[^"\\]|\\.)*"`), STRING},
	{regexp.MustCompile(`^'(?:[^'\\]|\\.)*'`), STRING},
	{regexp.MustCompile(`^\[([^\]]+)\]`), FIELD_REF},
	// Numbers: real before integer
	{regexp.MustCompile(`^\d+\.\d+`), REAL},
	{regexp.MustCompile(`^\d+`), INTEGER},
	// Multi-character operators before single-character prefixes
	{regexp.MustCompile(`^(?:!=|<>)`), NOT_EQUAL},
	{regexp.MustCompile(`^<=`), LESS_EQUAL},
	{regexp.MustCompile(`^>=`), GREATER_EQUAL},
	// Single-character operators
	{regexp.MustCompile(`^\+`), PLUS},
	{regexp.MustCompile(`^-`), MINUS},
	{regexp.MustCompile(`^\*`), MULTIPLY},
	{regexp.MustCompile(`^/`), DIVIDE},
	{regexp.MustCompile(`^%`), MODULO},
	{regexp.MustCompile(`^\^`), POWER},
	{regexp.MustCompile(`^=`), EQUAL},
	{regexp.MustCompile(`^<`), LESS_THAN},
	{regexp.MustCompile(`^>`), GREATER_THAN},
	// Punctuation
	{regexp.MustCompile(`^\(`), LEFT_PAREN},
	{regexp.MustCompile(`^\)`), RIGHT_PAREN},
	{regexp.MustCompile(`^\{`), LEFT_BRACE},
	{regexp.MustCompile(`^\}`), RIGHT_BRACE},
	{regexp.MustCompile(`^:`), COLON},
	{regexp.MustCompile(`^,`), COMMA},
	// Keywords before the identifier rule, word-boundary anchored
	{regexp.MustCompile(`^(?i:IF)\b`), IF},
	{regexp.MustCompile(`^(?i:THEN)\b`), THEN},
	{regexp.MustCompile(`^(?i:ELSEIF)\b`), ELSEIF},
	{regexp.MustCompile(`^(?i:ELSE)\b`), ELSE},
	{regexp.MustCompile(`^(?i:END)\b`), END},
	{regexp.MustCompile(`^(?i:CASE)\b`), CASE},
	{regexp.MustCompile(`^(?i:WHEN)\b`), WHEN},
	{regexp.MustCompile(`^(?i:AND)\b`), AND},
	{regexp.MustCompile(`^(?i:OR)\b`), OR},
	{regexp.MustCompile(`^(?i:NOT)\b`), NOT},
	{regexp.MustCompile(`^(?i:TRUE|FALSE)\b`), BOOLEAN},
	{regexp.MustCompile(`^(?i:NULL)\b`), NULL},
	{regexp.MustCompile(`^(?i:FIXED)\b`), FIXED},
	{regexp.MustCompile(`^(?i:INCLUDE)\b`), INCLUDE},
	{regexp.MustCompile(`^(?i:EXCLUDE)\b`), EXCLUDE},
	// Generic identifier last
	{regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`), IDENTIFIER},
}

// Rules exposes the ordered rule table for the conflict-detection test.
func Rules() []struct {
	Pattern string
	Type    TokenType
} {
	out := make([]struct {
		Pattern string
		Type    TokenType
	}, len(rules))
	for i, r := range rules {
		out[i].Pattern = r.pattern.String()
		out[i].Type = r.ttype
	}

	return out
}

// FormulaTokenizer is a tokenizer that returns an iterator
type FormulaTokenizer struct {
	input string
}

// NewFormulaTokenizer creates a new FormulaTokenizer
func NewFormulaTokenizer(input string) *FormulaTokenizer {
	return &FormulaTokenizer{input: input}
}

// Tokens returns an iterator of tokens. The sequence is always finite
// and always ends with exactly one EOF token; unrecognized characters
// yield UNKNOWN tokens instead of stopping the scan.
func (t *FormulaTokenizer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		input := t.input
		pos := 0

		for pos < len(input) {
			c := input[pos]
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				pos++
				continue
			}

			token, width := matchAt(input, pos)
			if !yield(token) {
				return
			}

			pos += width
		}

		yield(Token{Type: EOF, Value: "", Position: pos})
	}
}

// Tokenize returns all tokens of a formula as a slice.
func Tokenize(formula string) []Token {
	tokens := make([]Token, 0, 16)
	for token := range NewFormulaTokenizer(formula).Tokens() {
		tokens = append(tokens, token)
	}

	return tokens
}

// matchAt tries every rule in order at the given position and returns
// the produced token plus the raw width consumed.
func matchAt(input string, pos int) (Token, int) {
	rest := input[pos:]

	for _, r := range rules {
		loc := r.pattern.FindStringSubmatchIndex(rest)
		if loc == nil {
			continue
		}

		raw := rest[loc[0]:loc[1]]
		value := raw

		switch r.ttype {
		case FIELD_REF:
			// Strip brackets via the capture group
			value = rest[loc[2]:loc[3]]
		case STRING:
			value = unescapeString(raw[1 : len(raw)-1])
		case BOOLEAN:
			value = strings.ToUpper(raw)
		}

		return Token{Type: r.ttype, Value: value, Position: pos}, len(raw)
	}

	// Unrecognized rune; consume it whole and keep going
	_, width := utf8.DecodeRuneInString(rest)

	return Token{Type: UNKNOWN, Value: rest[:width], Position: pos}, width
}

// unescapeString resolves backslash escapes inside a quoted literal.
func unescapeString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var builder strings.Builder

	builder.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				builder.WriteByte('\n')
			case 't':
				builder.WriteByte('\t')
			default:
				builder.WriteByte(s[i])
			}

			continue
		}

		builder.WriteByte(s[i])
	}

	return builder.String()
}
