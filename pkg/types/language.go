package types

import (
	"path/filepath"
	"strings"
)

// Language identifies a supported source language for AST snapshots
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCSharp     Language = "csharp"
	LangUnknown    Language = ""
)

// TextFormat identifies a supported plain-document format for text chunks
type TextFormat string

const (
	FormatMarkdown  TextFormat = "markdown"
	FormatPlainText TextFormat = "plaintext"
	FormatUnknown   TextFormat = ""
)

var extToLanguage = map[string]Language{
	".go":   LangGo,
	".py":   LangPython,
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".jsx":  LangJavaScript,
	".ts":   LangTypeScript,
	".java": LangJava,
	".cs":   LangCSharp,
}

var extToFormat = map[string]TextFormat{
	".md":       FormatMarkdown,
	".markdown": FormatMarkdown,
	".txt":      FormatPlainText,
}

// LanguageForPath detects the source language from a file extension.
// Returns LangUnknown for unsupported files.
func LanguageForPath(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extToLanguage[ext]; ok {
		return lang
	}
	return LangUnknown
}

// TextFormatForPath detects the document format from a file extension.
// Returns FormatUnknown for unsupported files.
func TextFormatForPath(path string) TextFormat {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extToFormat[ext]; ok {
		return f
	}
	return FormatUnknown
}
