package explorer

import (
	"path"
	"strings"
)

// PlainText is the language of files without an extension.
const PlainText = "plaintext"

// languages maps lowercased file extensions to presentation languages.
// Extensions missing from the table are used as the language unchanged.
var languages = map[string]string{
	"bat":        "bat",
	"c":          "c",
	"cc":         "cpp",
	"cfg":        "ini",
	"clj":        "clojure",
	"cmd":        "bat",
	"conf":       "ini",
	"cpp":        "cpp",
	"cs":         "csharp",
	"css":        "css",
	"cxx":        "cpp",
	"dart":       "dart",
	"diff":       "diff",
	"dockerfile": "dockerfile",
	"erl":        "erlang",
	"ex":         "elixir",
	"exs":        "elixir",
	"fs":         "fsharp",
	"go":         "go",
	"gotmpl":     "go",
	"gradle":     "groovy",
	"groovy":     "groovy",
	"h":          "c",
	"hpp":        "cpp",
	"htm":        "html",
	"html":       "html",
	"ini":        "ini",
	"java":       "java",
	"jl":         "julia",
	"js":         "javascript",
	"json":       "json",
	"jsx":        "javascriptreact",
	"kt":         "kotlin",
	"kts":        "kotlin",
	"less":       "less",
	"lua":        "lua",
	"m":          "objective-c",
	"makefile":   "makefile",
	"md":         "markdown",
	"mk":         "makefile",
	"mm":         "objective-cpp",
	"patch":      "diff",
	"php":        "php",
	"pl":         "perl",
	"pm":         "perl",
	"properties": "properties",
	"ps1":        "powershell",
	"psm1":       "powershell",
	"py":         "python",
	"r":          "r",
	"rb":         "ruby",
	"rs":         "rust",
	"sass":       "sass",
	"scala":      "scala",
	"scss":       "scss",
	"sh":         "shellscript",
	"bash":       "shellscript",
	"zsh":        "shellscript",
	"sql":        "sql",
	"swift":      "swift",
	"tf":         "terraform",
	"toml":       "toml",
	"tpl":        "go",
	"ts":         "typescript",
	"tsx":        "typescriptreact",
	"txt":        PlainText,
	"vb":         "vb",
	"vue":        "vue",
	"xml":        "xml",
	"yaml":       "yaml",
	"yml":        "yaml",
}

// LanguageFor returns the presentation language for a file name.
func LanguageFor(name string) string {
	base := baseName(name)
	ext := strings.TrimPrefix(path.Ext(base), ".")
	if ext == "" {
		// Dockerfile, Makefile and friends are recognised by name.
		if lang, ok := languages[strings.ToLower(base)]; ok {
			return lang
		}
		return PlainText
	}
	ext = strings.ToLower(ext)
	if lang, ok := languages[ext]; ok {
		return lang
	}
	return ext
}
