package parser

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tablift/tablift"
	tok "github.com/tablift/tablift/tokenizer"
)

// Parser is a recursive-descent parser over a formula token stream,
// one method per precedence level from weakest to tightest binding.
// It never fails: malformed input degrades the smallest enclosing
// expression into a Fallback node and records one Diagnostic.
type Parser struct {
	formula string
	tokens  []tok.Token
	pos     int
	diags   []tablift.Diagnostic
	failed  bool
}

// Parse tokenizes and parses a formula. A root node is always
// returned, in the worst case a single Fallback.
func Parse(formula string) (Node, []tablift.Diagnostic) {
	return ParseTokens(formula, tok.Tokenize(formula))
}

// ParseTokens parses an already-tokenized formula. The original
// formula text is needed so Fallback nodes can carry verbatim source.
func ParseTokens(formula string, tokens []tok.Token) (Node, []tablift.Diagnostic) {
	p := &Parser{formula: formula, tokens: tokens}

	root := p.parseExpression()

	if !p.failed && p.peek().Type != tok.EOF {
		p.diags = append(p.diags, tablift.Diagnostic{
			Severity: tablift.SeverityWarning,
			Message:  "unexpected trailing input after expression",
			Position: p.peek().Position,
		})
	}

	return root, p.diags
}

// Precedence ladder

func (p *Parser) parseExpression() Node {
	return p.parseOr()
}

func (p *Parser) parseOr() Node {
	left := p.parseAnd()

	for !p.failed && p.check(tok.OR) {
		p.advance()

		right := p.parseAnd()
		if p.failed {
			return right
		}

		left = &Logical{Operator: "OR", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseAnd() Node {
	left := p.parseEquality()

	for !p.failed && p.check(tok.AND) {
		p.advance()

		right := p.parseEquality()
		if p.failed {
			return right
		}

		left = &Logical{Operator: "AND", Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseEquality() Node {
	left := p.parseRelational()

	for !p.failed && (p.check(tok.EQUAL) || p.check(tok.NOT_EQUAL)) {
		op := operatorSymbol(p.advance().Type)

		right := p.parseRelational()
		if p.failed {
			return right
		}

		left = &Comparison{Operator: op, Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseRelational() Node {
	left := p.parseAdditive()

	for !p.failed && (p.check(tok.LESS_THAN) || p.check(tok.LESS_EQUAL) ||
		p.check(tok.GREATER_THAN) || p.check(tok.GREATER_EQUAL)) {
		op := operatorSymbol(p.advance().Type)

		right := p.parseAdditive()
		if p.failed {
			return right
		}

		left = &Comparison{Operator: op, Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseAdditive() Node {
	left := p.parseMultiplicative()

	for !p.failed && (p.check(tok.PLUS) || p.check(tok.MINUS)) {
		op := operatorSymbol(p.advance().Type)

		right := p.parseMultiplicative()
		if p.failed {
			return right
		}

		left = &Arithmetic{Operator: op, Left: left, Right: right}
	}

	return left
}

func (p *Parser) parseMultiplicative() Node {
	left := p.parseUnary()

	for !p.failed && (p.check(tok.MULTIPLY) || p.check(tok.DIVIDE) || p.check(tok.MODULO)) {
		op := operatorSymbol(p.advance().Type)

		right := p.parseUnary()
		if p.failed {
			return right
		}

		left = &Arithmetic{Operator: op, Left: left, Right: right}
	}

	return left
}

// parseUnary handles NOT and unary minus. The lexer always emits a
// bare minus token; the distinction from binary subtraction is made
// here. Unary minus binds weaker than ^, so -2^2 is -(2^2).
func (p *Parser) parseUnary() Node {
	if p.check(tok.NOT) {
		p.advance()

		operand := p.parseUnary()
		if p.failed {
			return operand
		}

		return &Logical{Operator: "NOT", Left: operand}
	}

	if p.check(tok.MINUS) {
		p.advance()

		operand := p.parseUnary()
		if p.failed {
			return operand
		}

		return negate(operand)
	}

	return p.parsePower()
}

func (p *Parser) parsePower() Node {
	left := p.parsePrimary()

	if !p.failed && p.check(tok.POWER) {
		p.advance()

		// Right associative: the exponent re-enters the unary level
		right := p.parseUnary()
		if p.failed {
			return right
		}

		return &Arithmetic{Operator: "^", Left: left, Right: right}
	}

	return left
}

// parsePrimary dispatches on the current token kind. The switch is
// exhaustive over TokenType; anything that cannot start an expression
// degrades to a Fallback.
func (p *Parser) parsePrimary() Node {
	t := p.peek()

	switch t.Type {
	case tok.STRING:
		p.advance()
		return &Literal{Value: t.Value, Type: TypeString}
	case tok.INTEGER:
		p.advance()

		n, err := strconv.ParseInt(t.Value, 10, 64)
		if err != nil {
			return p.fail("integer literal out of range")
		}

		return &Literal{Value: n, Type: TypeInteger}
	case tok.REAL:
		p.advance()

		lit, err := NewRealLiteral(t.Value)
		if err != nil {
			return p.fail("invalid numeric literal")
		}

		return lit
	case tok.BOOLEAN:
		p.advance()
		return &Literal{Value: t.Value == "TRUE", Type: TypeBoolean}
	case tok.NULL:
		p.advance()
		return NullLiteral()
	case tok.FIELD_REF:
		p.advance()
		return &FieldRef{Name: NormalizeFieldName(t.Value), Original: "[" + t.Value + "]"}
	case tok.IDENTIFIER:
		return p.parseCallable()
	case tok.LEFT_PAREN:
		p.advance()

		expr := p.parseExpression()
		if p.failed {
			return expr
		}

		if !p.check(tok.RIGHT_PAREN) {
			return p.fail("expected ')' after expression")
		}

		p.advance()

		return expr
	case tok.IF:
		p.advance()
		return p.parseIf()
	case tok.CASE:
		p.advance()
		return p.parseCase()
	case tok.LEFT_BRACE:
		p.advance()
		return p.parseScopedAggregate()
	case tok.EOF:
		return p.fail("unexpected end of formula")
	case tok.UNKNOWN:
		return p.fail("unrecognized character " + strconv.Quote(t.Value))
	case tok.MINUS, tok.NOT:
		// Reached only when unary already consumed one; a doubled
		// operator like "--" lands here via parsePower.
		return p.fail("unexpected operator")
	case tok.PLUS, tok.MULTIPLY, tok.DIVIDE, tok.MODULO, tok.POWER,
		tok.EQUAL, tok.NOT_EQUAL, tok.LESS_THAN, tok.LESS_EQUAL,
		tok.GREATER_THAN, tok.GREATER_EQUAL, tok.AND, tok.OR,
		tok.THEN, tok.ELSEIF, tok.ELSE, tok.END, tok.WHEN,
		tok.FIXED, tok.INCLUDE, tok.EXCLUDE,
		tok.RIGHT_PAREN, tok.RIGHT_BRACE, tok.COLON, tok.COMMA:
		return p.fail("unexpected token " + t.Type.String())
	default:
		return p.fail("unhandled token " + t.Type.String())
	}
}

// parseCallable parses a function or window call after an identifier.
func (p *Parser) parseCallable() Node {
	name := strings.ToUpper(p.advance().Value)

	if !p.check(tok.LEFT_PAREN) {
		return p.fail("expected '(' after " + name)
	}

	p.advance()

	if spec, ok := tablift.Mappings().WindowFor(name); ok {
		return p.parseWindowCall(name, spec)
	}

	return p.parseFunctionCall(name)
}

func (p *Parser) parseFunctionCall(name string) Node {
	var args []Node

	if !p.check(tok.RIGHT_PAREN) {
		for {
			arg := p.parseExpression()
			if p.failed {
				return arg
			}

			args = append(args, arg)

			if !p.check(tok.COMMA) {
				break
			}

			p.advance()
		}
	}

	if !p.check(tok.RIGHT_PAREN) {
		return p.fail("expected ')' after arguments of " + name)
	}

	p.advance()

	return &FunctionCall{Name: name, Args: args}
}

// parseWindowCall parses the family-specific argument shape of a
// window function. The opening parenthesis is already consumed.
func (p *Parser) parseWindowCall(name string, spec tablift.WindowSpec) Node {
	call := &WindowCall{Name: name, Order: "asc"}

	if !p.check(tok.RIGHT_PAREN) {
		arg := p.parseExpression()
		if p.failed {
			return arg
		}

		call.Arg = arg
	} else if spec.Family != tablift.WindowRanking {
		return p.fail(name + " requires an expression argument")
	}

	switch spec.Family {
	case tablift.WindowRanking:
		if p.check(tok.COMMA) {
			p.advance()

			dir := p.parseExpression()
			if p.failed {
				return dir
			}

			order, ok := orderMode(dir)
			if !ok {
				p.diags = append(p.diags, tablift.Diagnostic{
					Severity: tablift.SeverityWarning,
					Message:  "unrecognized order direction for " + name + ", assuming ascending",
					Position: p.previous().Position,
				})
			}

			call.Order = order
		}
	case tablift.WindowRunning:
		// Expression only; cumulative ordering is implied
	case tablift.WindowFramed:
		if p.check(tok.COMMA) {
			p.advance()

			start, ok := p.parseFrameOffset(name)
			if !ok {
				return p.fail("expected integer frame offset for " + name)
			}

			if !p.check(tok.COMMA) {
				return p.fail("expected end frame offset for " + name)
			}

			p.advance()

			end, ok := p.parseFrameOffset(name)
			if !ok {
				return p.fail("expected integer frame offset for " + name)
			}

			call.Frame = &Frame{Start: start, End: end}
		}
	case tablift.WindowOffset:
		for p.check(tok.COMMA) {
			p.advance()

			extra := p.parseExpression()
			if p.failed {
				return extra
			}

			call.Extra = append(call.Extra, extra)
		}
	}

	if !p.check(tok.RIGHT_PAREN) {
		return p.fail("expected ')' after arguments of " + name)
	}

	p.advance()

	return call
}

// parseFrameOffset parses a signed integer literal frame bound.
func (p *Parser) parseFrameOffset(name string) (int, bool) {
	expr := p.parseUnary()
	if p.failed {
		return 0, false
	}

	lit, ok := expr.(*Literal)
	if !ok || lit.Type != TypeInteger {
		return 0, false
	}

	return int(lit.Value.(int64)), true
}

// parseIf parses the body of an IF that has already been consumed and
// then requires the single closing END.
func (p *Parser) parseIf() Node {
	node := p.parseIfBody()
	if p.failed {
		return node
	}

	if !p.check(tok.END) {
		return p.fail("expected END to close IF")
	}

	p.advance()

	return node
}

// parseIfBody builds one Conditional; each ELSEIF recurses so the
// chain lowers into right-nested Conditionals sharing one END.
func (p *Parser) parseIfBody() Node {
	cond := p.parseExpression()
	if p.failed {
		return cond
	}

	if !p.check(tok.THEN) {
		return p.fail("expected THEN after IF condition")
	}

	p.advance()

	then := p.parseExpression()
	if p.failed {
		return then
	}

	var els Node

	switch {
	case p.check(tok.ELSEIF):
		p.advance()
		els = p.parseIfBody()
	case p.check(tok.ELSE):
		p.advance()
		els = p.parseExpression()
	default:
		els = NullLiteral()
	}

	if p.failed {
		return els
	}

	return &Conditional{Condition: cond, Then: then, Else: els}
}

// parseCase parses simple (subject before the first WHEN) and searched
// CASE forms. The CASE keyword is already consumed.
func (p *Parser) parseCase() Node {
	var subject Node

	if !p.check(tok.WHEN) {
		subject = p.parseExpression()
		if p.failed {
			return subject
		}
	}

	var whens []WhenClause

	for p.check(tok.WHEN) {
		p.advance()

		match := p.parseExpression()
		if p.failed {
			return match
		}

		if !p.check(tok.THEN) {
			return p.fail("expected THEN after WHEN condition")
		}

		p.advance()

		result := p.parseExpression()
		if p.failed {
			return result
		}

		whens = append(whens, WhenClause{Match: match, Result: result})
	}

	if len(whens) == 0 {
		return p.fail("expected WHEN clause in CASE expression")
	}

	var els Node

	if p.check(tok.ELSE) {
		p.advance()

		els = p.parseExpression()
		if p.failed {
			return els
		}
	}

	if !p.check(tok.END) {
		return p.fail("expected END to close CASE")
	}

	p.advance()

	return &Case{Subject: subject, Whens: whens, Else: els}
}

// parseScopedAggregate parses {FIXED|INCLUDE|EXCLUDE dims : expr}.
// The opening brace is already consumed. Duplicate dimensions collapse.
func (p *Parser) parseScopedAggregate() Node {
	var scope ScopeType

	switch {
	case p.check(tok.FIXED):
		scope = ScopeFixed
	case p.check(tok.INCLUDE):
		scope = ScopeInclude
	case p.check(tok.EXCLUDE):
		scope = ScopeExclude
	default:
		return p.fail("expected FIXED, INCLUDE or EXCLUDE after '{'")
	}

	p.advance()

	var (
		dims []string
		seen = map[string]bool{}
	)

	for {
		if !p.check(tok.FIELD_REF) {
			return p.fail("expected field reference in scope dimension list")
		}

		name := NormalizeFieldName(p.advance().Value)
		if !seen[name] {
			seen[name] = true

			dims = append(dims, name)
		}

		if !p.check(tok.COMMA) {
			break
		}

		p.advance()
	}

	if !p.check(tok.COLON) {
		return p.fail("expected ':' after scope dimensions")
	}

	p.advance()

	expr := p.parseExpression()
	if p.failed {
		return expr
	}

	if !p.check(tok.RIGHT_BRACE) {
		return p.fail("expected '}' to close scoped aggregate")
	}

	p.advance()

	return &ScopedAggregate{Scope: scope, Dimensions: dims, Expr: expr}
}

// Helpers

func (p *Parser) peek() tok.Token {
	if p.pos >= len(p.tokens) {
		return tok.Token{Type: tok.EOF, Position: len(p.formula)}
	}

	return p.tokens[p.pos]
}

func (p *Parser) previous() tok.Token {
	if p.pos == 0 {
		return p.peek()
	}

	return p.tokens[p.pos-1]
}

func (p *Parser) check(t tok.TokenType) bool {
	return p.peek().Type == t
}

func (p *Parser) advance() tok.Token {
	t := p.peek()
	if t.Type != tok.EOF {
		p.pos++
	}

	return t
}

// fail records a single syntax diagnostic, parks the parser at end of
// input, and returns a Fallback carrying the unconsumed source text.
// Once failed, further calls return bare Fallbacks without piling on
// more diagnostics.
func (p *Parser) fail(expected string) Node {
	t := p.peek()

	original := strings.TrimSpace(p.formula[min(t.Position, len(p.formula)):])
	if original == "" {
		original = strings.TrimSpace(p.formula)
	}

	if !p.failed {
		p.failed = true
		p.diags = append(p.diags, tablift.Diagnostic{
			Severity: tablift.SeverityError,
			Message:  expected + ", got " + describeToken(t),
			Position: t.Position,
		})
	}

	// Park on EOF so enclosing levels unwind without consuming more
	p.pos = len(p.tokens)
	if n := len(p.tokens); n > 0 && p.tokens[n-1].Type == tok.EOF {
		p.pos = n - 1
	}

	return &Fallback{Original: original, Reason: expected}
}

func describeToken(t tok.Token) string {
	if t.Type == tok.EOF {
		return "end of formula"
	}

	return strconv.Quote(t.Value)
}

func operatorSymbol(t tok.TokenType) string {
	switch t {
	case tok.PLUS:
		return "+"
	case tok.MINUS:
		return "-"
	case tok.MULTIPLY:
		return "*"
	case tok.DIVIDE:
		return "/"
	case tok.MODULO:
		return "%"
	case tok.POWER:
		return "^"
	case tok.EQUAL:
		return "="
	case tok.NOT_EQUAL:
		return "!="
	case tok.LESS_THAN:
		return "<"
	case tok.LESS_EQUAL:
		return "<="
	case tok.GREATER_THAN:
		return ">"
	case tok.GREATER_EQUAL:
		return ">="
	default:
		return t.String()
	}
}

// negate folds unary minus into numeric literals and renders the
// general case as zero-minus so the closed variant set stays closed.
func negate(operand Node) Node {
	if lit, ok := operand.(*Literal); ok {
		switch v := lit.Value.(type) {
		case int64:
			return &Literal{Value: -v, Type: TypeInteger}
		case decimal.Decimal:
			return &Literal{Value: v.Neg(), Type: TypeReal}
		}
	}

	return &Arithmetic{Operator: "-", Left: &Literal{Value: int64(0), Type: TypeInteger}, Right: operand}
}

// orderMode extracts asc/desc from a direction argument.
func orderMode(n Node) (string, bool) {
	lit, ok := n.(*Literal)
	if !ok || lit.Type != TypeString {
		return "asc", false
	}

	switch strings.ToLower(lit.Value.(string)) {
	case "desc", "descending":
		return "desc", true
	case "asc", "ascending":
		return "asc", true
	default:
		return "asc", false
	}
}
