package analyzer

import (
	"github.com/go-enry/go-enry/v2"
)

const (
	LanguagePython  = "python"
	LanguageCFamily = "c-family"
	LanguageScript  = "script"
)

// LanguageProfile describes the lexical rules the tokenizer applies to one
// family of languages.
type LanguageProfile struct {
	Name           string
	LineComments   []string
	BlockComment   [2]string
	StringQuotes   string
	StringPrefixes string
	TripleQuotes   bool
	Keywords       map[string]struct{}
}

func (p LanguageProfile) hasBlockComment() bool {
	return p.BlockComment[0] != "" && p.BlockComment[1] != ""
}

func (p LanguageProfile) isKeyword(word string) bool {
	_, ok := p.Keywords[word]
	return ok
}

var (
	pythonProfile = LanguageProfile{
		Name:           LanguagePython,
		LineComments:   []string{"#"},
		StringQuotes:   `"'`,
		StringPrefixes: "rRbBfFuU",
		TripleQuotes:   true,
		Keywords: keywordSet(
			"False", "None", "True", "and", "as", "assert", "async", "await",
			"break", "class", "continue", "def", "del", "elif", "else", "except",
			"finally", "for", "from", "global", "if", "import", "in", "is",
			"lambda", "nonlocal", "not", "or", "pass", "raise", "return", "try",
			"while", "with", "yield",
		),
	}

	cFamilyProfile = LanguageProfile{
		Name:         LanguageCFamily,
		LineComments: []string{"//"},
		BlockComment: [2]string{"/*", "*/"},
		StringQuotes: "\"'`",
		Keywords: keywordSet(
			"abstract", "auto", "bool", "break", "case", "catch", "char", "class",
			"const", "continue", "default", "defer", "delete", "do", "double",
			"else", "enum", "export", "extends", "extern", "false", "final",
			"finally", "float", "fn", "for", "fun", "func", "function", "go",
			"goto", "if", "impl", "implements", "import", "int", "interface",
			"let", "long", "map", "match", "mut", "namespace", "new", "null",
			"nil", "package", "private", "protected", "pub", "public", "range",
			"return", "select", "short", "signed", "sizeof", "static", "struct",
			"super", "switch", "this", "throw", "throws", "true", "try", "type",
			"typedef", "union", "unsigned", "using", "val", "var", "virtual",
			"void", "volatile", "while",
		),
	}

	scriptProfile = LanguageProfile{
		Name:         LanguageScript,
		LineComments: []string{"#"},
		StringQuotes: "\"'`",
		Keywords: keywordSet(
			"begin", "case", "class", "def", "do", "done", "elif", "else",
			"elsif", "end", "ensure", "esac", "export", "false", "fi", "for",
			"function", "if", "in", "local", "module", "nil", "require",
			"rescue", "return", "self", "then", "true", "unless", "until",
			"while", "yield",
		),
	}
)

var profilesByName = map[string]LanguageProfile{
	LanguagePython:  pythonProfile,
	LanguageCFamily: cFamilyProfile,
	LanguageScript:  scriptProfile,
}

// enryLanguages maps linguist language names onto lexical profiles.
var enryLanguages = map[string]string{
	"Python":      LanguagePython,
	"C":           LanguageCFamily,
	"C++":         LanguageCFamily,
	"C#":          LanguageCFamily,
	"Go":          LanguageCFamily,
	"Java":        LanguageCFamily,
	"JavaScript":  LanguageCFamily,
	"TypeScript":  LanguageCFamily,
	"Kotlin":      LanguageCFamily,
	"Swift":       LanguageCFamily,
	"Rust":        LanguageCFamily,
	"Scala":       LanguageCFamily,
	"Dart":        LanguageCFamily,
	"Objective-C": LanguageCFamily,
	"Shell":       LanguageScript,
	"Ruby":        LanguageScript,
	"Perl":        LanguageScript,
	"R":           LanguageScript,
}

// DetectLanguage returns the profile name for a submission from its file
// extension, file name or shebang line. Without a filename, or for languages
// with no dedicated profile, it returns python.
func DetectLanguage(filename, code string) string {
	if filename == "" {
		return LanguagePython
	}

	lang, _ := enry.GetLanguageByExtension(filename)
	if lang == "" {
		lang, _ = enry.GetLanguageByFilename(filename)
	}
	if lang == "" {
		lang, _ = enry.GetLanguageByShebang([]byte(code))
	}
	if name, ok := enryLanguages[lang]; ok {
		return name
	}
	return LanguagePython
}

// ProfileFor returns the profile registered under name, falling back to python.
func ProfileFor(name string) LanguageProfile {
	if p, ok := profilesByName[name]; ok {
		return p
	}
	return pythonProfile
}

func keywordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
