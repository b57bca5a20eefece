package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/RubachokBoss/plagiarism-checker/similarity-service/internal/models"
)

// Tokenizer turns source text into classified tokens. It never fails: input
// that cannot be lexed degrades to whitespace splitting.
type Tokenizer interface {
	// Tokenize lexes code with the default (python) profile.
	Tokenize(code string) []models.Token
	// TokenizeAs lexes code with the named language profile.
	TokenizeAs(language, code string) []models.Token
}

type TokenizerOption func(*tokenizer)

// WithComments keeps comment tokens in the output.
func WithComments() TokenizerOption {
	return func(t *tokenizer) {
		t.keepComments = true
	}
}

type tokenizer struct {
	keepComments bool
}

func NewTokenizer(opts ...TokenizerOption) Tokenizer {
	t := &tokenizer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tokenizer) Tokenize(code string) []models.Token {
	return t.TokenizeAs(LanguagePython, code)
}

func (t *tokenizer) TokenizeAs(language, code string) (tokens []models.Token) {
	defer func() {
		if r := recover(); r != nil {
			tokens = splitFields(code)
		}
	}()

	l := &lexer{
		src:          code,
		profile:      ProfileFor(language),
		keepComments: t.keepComments,
		tokens:       make([]models.Token, 0, len(code)/3),
	}
	l.run()
	return l.tokens
}

// Operators ordered by length so the first match is the longest.
var operators = [][]string{
	{"**=", "//=", ">>=", "<<=", "...", "===", "!==", "&&=", "||=", "<=>"},
	{"->", ":=", "**", "//", "==", "!=", "<=", ">=", "<<", ">>", "+=", "-=", "*=", "/=", "%=",
		"&=", "|=", "^=", "@=", "&&", "||", "++", "--", "::", "=>", "<-"},
	{"+", "-", "*", "/", "%", "=", "<", ">", "!", "&", "|", "^", "~", "@", "?", "."},
}

const punctuation = "()[]{},:;"

type lexer struct {
	src          string
	profile      LanguageProfile
	keepComments bool

	pos       int
	line      int
	lineStart int
	tokens    []models.Token
}

func (l *lexer) run() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]

		switch {
		case c == '\n':
			l.newline(l.pos)
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case l.lineCommentAhead():
			l.lexLineComment()
		case l.blockCommentAhead():
			l.lexBlockComment()
		case strings.IndexByte(l.profile.StringQuotes, c) >= 0:
			l.lexString(l.pos, l.pos)
		case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
			l.lexNumber()
		case c == '_' || isASCIILetter(c) || c >= utf8.RuneSelf:
			l.lexWord()
		default:
			l.lexSymbol()
		}
	}
}

func (l *lexer) newline(at int) {
	l.line++
	l.lineStart = at + 1
}

func (l *lexer) emit(kind models.TokenKind, start, line, lineStart int) {
	l.tokens = append(l.tokens, models.Token{
		Value:  l.src[start:l.pos],
		Kind:   kind,
		Line:   line,
		Column: start - lineStart,
	})
}

func (l *lexer) lineCommentAhead() bool {
	for _, marker := range l.profile.LineComments {
		if strings.HasPrefix(l.src[l.pos:], marker) {
			return true
		}
	}
	return false
}

func (l *lexer) blockCommentAhead() bool {
	return l.profile.hasBlockComment() && strings.HasPrefix(l.src[l.pos:], l.profile.BlockComment[0])
}

func (l *lexer) lexLineComment() {
	start := l.pos
	end := strings.IndexByte(l.src[l.pos:], '\n')
	if end < 0 {
		l.pos = len(l.src)
	} else {
		l.pos += end
	}
	l.pos = trimCarriageReturn(l.src, start, l.pos)
	if l.keepComments {
		l.emit(models.TokenComment, start, l.line, l.lineStart)
	}
}

func (l *lexer) lexBlockComment() {
	start, line, lineStart := l.pos, l.line, l.lineStart
	l.pos += len(l.profile.BlockComment[0])

	end := strings.Index(l.src[l.pos:], l.profile.BlockComment[1])
	stop := len(l.src)
	if end >= 0 {
		stop = l.pos + end + len(l.profile.BlockComment[1])
	}
	for ; l.pos < stop; l.pos++ {
		if l.src[l.pos] == '\n' {
			l.newline(l.pos)
		}
	}
	if l.keepComments {
		l.emit(models.TokenComment, start, line, lineStart)
	}
}

// lexString consumes a string literal whose prefix starts at start and whose
// opening quote sits at quoteAt. Unterminated single-line strings end at the
// line break; unterminated triple-quoted strings run to the end of input.
func (l *lexer) lexString(start, quoteAt int) {
	line, lineStart := l.line, l.lineStart
	quote := l.src[quoteAt]

	triple := l.profile.TripleQuotes && strings.HasPrefix(l.src[quoteAt:], strings.Repeat(string(quote), 3))
	multiline := triple || quote == '`'

	if triple {
		l.pos = quoteAt + 3
	} else {
		l.pos = quoteAt + 1
	}

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\\' && quote != '`':
			if l.pos+1 < len(l.src) && l.src[l.pos+1] == '\n' {
				l.newline(l.pos + 1)
			}
			l.pos += 2
			continue
		case c == '\n':
			if !multiline {
				l.pos = trimCarriageReturn(l.src, start, l.pos)
				l.emit(models.TokenString, start, line, lineStart)
				return
			}
			l.newline(l.pos)
		case c == quote:
			if !triple {
				l.pos++
				l.emit(models.TokenString, start, line, lineStart)
				return
			}
			if strings.HasPrefix(l.src[l.pos:], strings.Repeat(string(quote), 3)) {
				l.pos += 3
				l.emit(models.TokenString, start, line, lineStart)
				return
			}
		}
		l.pos++
	}

	if l.pos > len(l.src) {
		l.pos = len(l.src)
	}
	l.emit(models.TokenString, start, line, lineStart)
}

func (l *lexer) lexNumber() {
	start := l.pos
	src := l.src

	if src[l.pos] == '0' && l.pos+1 < len(src) && strings.IndexByte("xXoObB", src[l.pos+1]) >= 0 {
		l.pos += 2
		for l.pos < len(src) && (isHexDigit(src[l.pos]) || src[l.pos] == '_') {
			l.pos++
		}
	} else {
		l.digits()
		if l.pos < len(src) && src[l.pos] == '.' && !strings.HasPrefix(src[l.pos:], "..") &&
			!(l.pos+1 < len(src) && (isASCIILetter(src[l.pos+1]) || src[l.pos+1] == '_')) {
			l.pos++
			l.digits()
		}
		if l.pos < len(src) && (src[l.pos] == 'e' || src[l.pos] == 'E') {
			next := l.pos + 1
			if next < len(src) && (src[next] == '+' || src[next] == '-') {
				next++
			}
			if next < len(src) && isDigit(src[next]) {
				l.pos = next
				l.digits()
			}
		}
	}

	// type suffixes such as j, L, f, u32
	for l.pos < len(src) && (isASCIILetter(src[l.pos]) || isDigit(src[l.pos]) || src[l.pos] == '_') {
		l.pos++
	}
	l.emit(models.TokenNumber, start, l.line, l.lineStart)
}

func (l *lexer) digits() {
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.pos++
	}
}

func (l *lexer) lexWord() {
	start := l.pos
	first := true
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		if !(r == '_' || unicode.IsLetter(r) || (!first && unicode.IsDigit(r))) {
			break
		}
		first = false
		l.pos += size
	}

	if l.pos == start {
		l.lexSymbol()
		return
	}

	word := l.src[start:l.pos]
	if l.pos < len(l.src) && l.isStringPrefix(word) && strings.IndexByte(l.profile.StringQuotes, l.src[l.pos]) >= 0 {
		l.lexString(start, l.pos)
		return
	}

	kind := models.TokenIdentifier
	if l.profile.isKeyword(word) {
		kind = models.TokenKeyword
	}
	l.emit(kind, start, l.line, l.lineStart)
}

func (l *lexer) isStringPrefix(word string) bool {
	if l.profile.StringPrefixes == "" || len(word) > 2 {
		return false
	}
	for i := 0; i < len(word); i++ {
		if strings.IndexByte(l.profile.StringPrefixes, word[i]) < 0 {
			return false
		}
	}
	return true
}

func (l *lexer) lexSymbol() {
	start := l.pos
	rest := l.src[l.pos:]

	for _, group := range operators {
		for _, op := range group {
			if strings.HasPrefix(rest, op) {
				l.pos += len(op)
				l.emit(models.TokenOperator, start, l.line, l.lineStart)
				return
			}
		}
	}

	if strings.IndexByte(punctuation, rest[0]) >= 0 {
		l.pos++
		l.emit(models.TokenPunctuation, start, l.line, l.lineStart)
		return
	}

	r, size := utf8.DecodeRuneInString(rest)
	l.pos += size
	if r != utf8.RuneError && unicode.IsSpace(r) {
		return
	}
	l.emit(models.TokenUnknown, start, l.line, l.lineStart)
}

// splitFields is the fallback used when lexing fails.
func splitFields(code string) []models.Token {
	var tokens []models.Token
	for lineNo, line := range strings.Split(code, "\n") {
		offset := 0
		for _, field := range strings.Fields(line) {
			col := strings.Index(line[offset:], field) + offset
			tokens = append(tokens, models.Token{
				Value:  field,
				Kind:   models.TokenUnknown,
				Line:   lineNo,
				Column: col,
			})
			offset = col + len(field)
		}
	}
	return tokens
}

func trimCarriageReturn(src string, start, end int) int {
	if end > start && src[end-1] == '\r' {
		return end - 1
	}
	return end
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
