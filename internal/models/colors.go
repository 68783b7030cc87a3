package models

// languageColors follows the GitHub linguist palette
var languageColors = map[string]string{
	"JavaScript": "#f1e05a",
	"TypeScript": "#3178c6",
	"Python":     "#3572A5",
	"Java":       "#b07219",
	"C++":        "#f34b7d",
	"C":          "#555555",
	"C#":         "#178600",
	"Ruby":       "#701516",
	"Go":         "#00ADD8",
	"Rust":       "#dea584",
	"Swift":      "#F05138",
	"Kotlin":     "#A97BFF",
	"PHP":        "#4F5D95",
	"HTML":       "#e34c26",
	"CSS":        "#563d7c",
	"SCSS":       "#c6538c",
	"Shell":      "#89e051",
	"Dockerfile": "#384d54",
	"Makefile":   "#427819",
	"Vue":        "#41b883",
	"Svelte":     "#ff3e00",
	"Dart":       "#00B4AB",
	"Lua":        "#000080",
	"Perl":       "#0298c3",
	"R":          "#198CE7",
	"Scala":      "#c22d40",
	"Haskell":    "#5e5086",
	"Elixir":     "#6e4a7e",
	"Clojure":    "#db5855",
	"Erlang":     "#B83998",
	"Julia":      "#a270ba",
	"MATLAB":     "#e16737",
	"Assembly":   "#6E4C13",
	"Vim":        "#199f4b",
	"Markdown":   "#083fa1",
	"JSON":       "#292929",
	"YAML":       "#cb171e",
	"XML":        "#0060ac",
	"SQL":        "#e38c00",
	"GraphQL":    "#e10098",
	"Jupyter":    "#DA5B0B",
}

// DefaultLanguageColor is used for languages missing from the palette
const DefaultLanguageColor = "#8b949e"

// LanguageColor returns the display color for a language
func LanguageColor(name string) string {
	if c, ok := languageColors[name]; ok {
		return c
	}
	return DefaultLanguageColor
}
