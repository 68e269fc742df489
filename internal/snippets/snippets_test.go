package snippets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPythonSnippets(t *testing.T) {
	s := For("python")
	assert.Equal(t, "python", s.Language)
	assert.Equal(t, "print('hello')", s.PrintHello)
	assert.Equal(t, "2", s.SimpleExprResult)
}

func TestPython3Alias(t *testing.T) {
	s := For("python3")
	assert.Equal(t, "python3", s.Language)
	assert.Equal(t, "print('hello')", s.PrintHello)
}

func TestTypescriptAliasFromJavascript(t *testing.T) {
	s := For("javascript")
	assert.Equal(t, "javascript", s.Language)
	assert.Equal(t, "console.log('hello')", s.PrintHello)
}

func TestCppAlias(t *testing.T) {
	s := For("c++")
	assert.Equal(t, "c++", s.Language)
	assert.Contains(t, s.PrintHello, "std::cout")
}

func TestUnknownLanguageUsesGeneric(t *testing.T) {
	s := For("unknown_language_xyz")
	assert.Equal(t, "unknown_language_xyz", s.Language)
	assert.Equal(t, "print('hello')", s.PrintHello)
}

func TestAllLanguagesLoad(t *testing.T) {
	languages := []string{
		"python", "r", "rust", "julia", "typescript", "go", "scala",
		"cpp", "sql", "lua", "haskell", "octave", "ocaml",
	}
	for _, lang := range languages {
		s := For(lang)
		assert.NotEmptyf(t, s.PrintHello, "empty print_hello for %s", lang)
	}
}

func TestIsUnsupported(t *testing.T) {
	assert.True(t, IsUnsupported("doesn't support interactive stdin in this table"))
	assert.True(t, IsUnsupported("not available, varies by octave kernel configuration"))
	assert.True(t, IsUnsupported("varies by evcxr configuration"))
	assert.False(t, IsUnsupported("print('hello')"))
}

func TestUnsupportedSentinelsReturnsCopy(t *testing.T) {
	s := UnsupportedSentinels()
	s[0] = "mutated"
	assert.NotEqual(t, "mutated", UnsupportedSentinels()[0])
}

func TestSqlSnippetsMarkInteractiveFeaturesUnsupported(t *testing.T) {
	s := For("sql")
	assert.True(t, IsUnsupported(s.PrintStderr))
	assert.True(t, IsUnsupported(s.InputPrompt))
	assert.True(t, IsUnsupported(s.SleepCode))
}
