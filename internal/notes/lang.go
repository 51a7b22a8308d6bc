package notes

import "strings"

// langAliases maps common fence info aliases to canonical language names.
// tsx stays distinct from typescript because the grammars differ.
var langAliases = map[string]string{
	"js":         "javascript",
	"jsx":        "javascript",
	"mjs":        "javascript",
	"cjs":        "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"golang":     "go",
	"py":         "python",
	"python3":    "python",
	"rs":         "rust",
	"yml":        "yaml",
	"sh":         "bash",
	"shell":      "bash",
	"zsh":        "bash",
	"plaintext":  "text",
	"plain":      "text",
	"txt":        "text",
	"console":    "text",
	"markdown":   "md",
	"dockerfile": "docker",
}

// NormalizeLang canonicalizes a fence info string: the first word is taken
// (fences may carry attributes after the language), lowercased, and mapped
// through the alias table. Unknown languages pass through unchanged.
func NormalizeLang(info string) string {
	lang := strings.TrimSpace(info)
	if i := strings.IndexAny(lang, " \t,{"); i >= 0 {
		lang = lang[:i]
	}
	lang = strings.ToLower(lang)
	if canon, ok := langAliases[lang]; ok {
		return canon
	}
	return lang
}
