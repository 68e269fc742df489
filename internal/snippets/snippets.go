// Package snippets supplies the language-dispatch table: small code
// strings, keyed by kernel language, that exercise each protocol feature
// the check catalog drives (stdout, stderr, errors, completion, rich
// display, stdin, and so on).
package snippets

import (
	"embed"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed snippets.yaml
var snippetsYAML embed.FS

// Snippets is the set of code strings that exercise one language's
// behavior for every check in the catalog. Values are immutable for the
// lifetime of a run.
type Snippets struct {
	Language string `yaml:"-"`

	PrintHello            string `yaml:"print_hello"`
	PrintStderr           string `yaml:"print_stderr"`
	SimpleExpr            string `yaml:"simple_expr"`
	SimpleExprResult      string `yaml:"simple_expr_result"`
	IncompleteCode        string `yaml:"incomplete_code"`
	CompleteCode          string `yaml:"complete_code"`
	SyntaxError           string `yaml:"syntax_error"`
	InputPrompt           string `yaml:"input_prompt"`
	SleepCode             string `yaml:"sleep_code"`
	CompletionVar         string `yaml:"completion_var"`
	CompletionSetup       string `yaml:"completion_setup"`
	CompletionPrefix      string `yaml:"completion_prefix"`
	DisplayDataCode       string `yaml:"display_data_code"`
	UpdateDisplayDataCode string `yaml:"update_display_data_code"`
	RichExecuteResultCode string `yaml:"rich_execute_result_code"`
}

// unsupportedSentinels are the substrings that, when present in any code
// field, mark a feature as intentionally unsupported for that language -
// checks must report Unsupported without ever sending the snippet to the
// kernel.
var unsupportedSentinels = []string{"doesn't support", "not available", "varies"}

// UnsupportedSentinels returns the sentinel substrings recognized by
// IsUnsupported.
func UnsupportedSentinels() []string {
	out := make([]string, len(unsupportedSentinels))
	copy(out, unsupportedSentinels)
	return out
}

// IsUnsupported reports whether code contains an unsupported sentinel.
func IsUnsupported(code string) bool {
	for _, s := range unsupportedSentinels {
		if strings.Contains(code, s) {
			return true
		}
	}
	return false
}

type rawTable struct {
	Languages map[string]Snippets `yaml:"languages"`
}

var (
	loadOnce sync.Once
	table    rawTable
	loadErr  error
)

func load() {
	data, err := snippetsYAML.ReadFile("snippets.yaml")
	if err != nil {
		loadErr = err
		return
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		loadErr = err
	}
}

// canonicalize maps a language alias to the name snippets.yaml keys its
// table by.
func canonicalize(lang string) string {
	switch lang {
	case "python", "python3":
		return "python"
	case "typescript", "javascript":
		return "typescript"
	case "c++", "cpp":
		return "cpp"
	default:
		return lang
	}
}

// For returns the snippet record for the given kernel language, falling
// back to a generic record for unrecognized languages. language is
// normalized to lowercase and aliased (python3->python,
// javascript->typescript, c++->cpp) before lookup; the returned record's
// Language field preserves the caller's original (lowercased) input.
func For(language string) Snippets {
	loadOnce.Do(load)

	lang := strings.ToLower(language)
	canonical := canonicalize(lang)

	var raw Snippets
	if loadErr == nil {
		if s, ok := table.Languages[canonical]; ok {
			raw = s
		} else if s, ok := table.Languages["generic"]; ok {
			raw = s
		} else {
			raw = fallback()
		}
	} else {
		raw = fallback()
	}

	raw.Language = lang
	return raw
}

// fallback is used only if the embedded snippets.yaml is somehow missing
// or malformed - it should never be reached with a valid build.
func fallback() Snippets {
	return Snippets{
		PrintHello:            "print('hello')",
		PrintStderr:           "print('error')",
		SimpleExpr:            "1 + 1",
		SimpleExprResult:      "2",
		IncompleteCode:        "(",
		CompleteCode:          "1",
		SyntaxError:           "!@#$%",
		InputPrompt:           "input()",
		SleepCode:             "// sleep not available",
		CompletionVar:         "x",
		CompletionSetup:       "x = 1",
		CompletionPrefix:      "x",
		DisplayDataCode:       "1",
		UpdateDisplayDataCode: "// update_display not available",
		RichExecuteResultCode: "// rich execute_result not available",
	}
}
