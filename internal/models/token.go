package models

type TokenKind string

const (
	TokenKeyword     TokenKind = "keyword"
	TokenIdentifier  TokenKind = "identifier"
	TokenNumber      TokenKind = "number"
	TokenString      TokenKind = "string"
	TokenOperator    TokenKind = "operator"
	TokenPunctuation TokenKind = "punctuation"
	TokenComment     TokenKind = "comment"
	TokenUnknown     TokenKind = "unknown"
)

func (k TokenKind) String() string {
	return string(k)
}

// Token is a classified lexical unit. Line and Column are 0-based; Column is a
// byte offset into the line.
type Token struct {
	Value  string    `json:"value"`
	Kind   TokenKind `json:"kind"`
	Line   int       `json:"line"`
	Column int       `json:"column"`
}
