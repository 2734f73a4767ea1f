package tokenizer

// TokenType represents the type of a token
type TokenType int

const (
	// Basic tokens
	EOF TokenType = iota
	UNKNOWN

	// Literals
	STRING
	INTEGER
	REAL
	BOOLEAN
	NULL

	// References and identifiers
	FIELD_REF  // [Field Name], brackets stripped
	IDENTIFIER // function names

	// Arithmetic operators
	PLUS     // +
	MINUS    // -
	MULTIPLY // *
	DIVIDE   // /
	MODULO   // %
	POWER    // ^

	// Comparison operators
	EQUAL         // =
	NOT_EQUAL     // != or <>
	LESS_THAN     // <
	LESS_EQUAL    // <=
	GREATER_THAN  // >
	GREATER_EQUAL // >=

	// Logical keywords
	AND
	OR
	NOT

	// Conditional keywords
	IF
	THEN
	ELSEIF
	ELSE
	END
	CASE
	WHEN

	// Scoped aggregate keywords
	FIXED
	INCLUDE
	EXCLUDE

	// Punctuation
	LEFT_PAREN  // (
	RIGHT_PAREN // )
	LEFT_BRACE  // {
	RIGHT_BRACE // }
	COLON       // :
	COMMA       // ,
)

// String returns the string representation of TokenType
func (t TokenType) String() string {
	switch t {
	case EOF:
		return "EOF"
	case UNKNOWN:
		return "UNKNOWN"
	case STRING:
		return "STRING"
	case INTEGER:
		return "INTEGER"
	case REAL:
		return "REAL"
	case BOOLEAN:
		return "BOOLEAN"
	case NULL:
		return "NULL"
	case FIELD_REF:
		return "FIELD_REF"
	case IDENTIFIER:
		return "IDENTIFIER"
	case PLUS:
		return "PLUS"
	case MINUS:
		return "MINUS"
	case MULTIPLY:
		return "MULTIPLY"
	case DIVIDE:
		return "DIVIDE"
	case MODULO:
		return "MODULO"
	case POWER:
		return "POWER"
	case EQUAL:
		return "EQUAL"
	case NOT_EQUAL:
		return "NOT_EQUAL"
	case LESS_THAN:
		return "LESS_THAN"
	case LESS_EQUAL:
		return "LESS_EQUAL"
	case GREATER_THAN:
		return "GREATER_THAN"
	case GREATER_EQUAL:
		return "GREATER_EQUAL"
	case AND:
		return "AND"
	case OR:
		return "OR"
	case NOT:
		return "NOT"
	case IF:
		return "IF"
	case THEN:
		return "THEN"
	case ELSEIF:
		return "ELSEIF"
	case ELSE:
		return "ELSE"
	case END:
		return "END"
	case CASE:
		return "CASE"
	case WHEN:
		return "WHEN"
	case FIXED:
		return "FIXED"
	case INCLUDE:
		return "INCLUDE"
	case EXCLUDE:
		return "EXCLUDE"
	case LEFT_PAREN:
		return "LEFT_PAREN"
	case RIGHT_PAREN:
		return "RIGHT_PAREN"
	case LEFT_BRACE:
		return "LEFT_BRACE"
	case RIGHT_BRACE:
		return "RIGHT_BRACE"
	case COLON:
		return "COLON"
	case COMMA:
		return "COMMA"
	default:
		return "INVALID"
	}
}

// Token represents a token. Value holds the normalized text (brackets
// and quotes stripped, escapes resolved); Position is the byte offset
// of the raw text in the source formula.
type Token struct {
	Type     TokenType
	Value    string
	Position int
}

// String returns the string representation of Token
func (t Token) String() string {
	return t.Type.String() + ": " + t.Value
}
