package content

import (
	"regexp"
	"strings"
)

var (
	lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n")

	// three or more blank (whitespace-only) lines in a row
	blankRun = regexp.MustCompile(`\n(?:[ \t]*\n){3,}`)

	escapedDoubleAttr = regexp.MustCompile(`=\\"([^"\\]*)\\"`)
	escapedSingleAttr = regexp.MustCompile(`=\\'([^'\\]*)\\'`)
	curlyDoubleAttr   = regexp.MustCompile(`=[“”]([^“”"]*)[“”]`)
	curlySingleAttr   = regexp.MustCompile(`=[‘’]([^‘’']*)[‘’]`)
)

// NormalizeLineEndings converts CRLF and lone CR to LF.
func NormalizeLineEndings(payload string) string {
	return lineEndings.Replace(payload)
}

// CollapseBlankLines reduces any run of more than two blank lines to exactly
// two.
func CollapseBlankLines(payload string) string {
	return blankRun.ReplaceAllString(payload, "\n\n\n")
}

// NormalizeAttributeQuotes rewrites attribute delimiters that were escaped
// for an outer string literal (`=\"x\"`) or typed as typographic quotes
// (`=“x”`) into plain quotes. The outer serialiser then escapes the payload
// exactly once.
func NormalizeAttributeQuotes(payload string) string {
	out := escapedDoubleAttr.ReplaceAllString(payload, `="$1"`)
	out = escapedSingleAttr.ReplaceAllString(out, `='$1'`)
	out = curlyDoubleAttr.ReplaceAllString(out, `="$1"`)
	out = curlySingleAttr.ReplaceAllString(out, `='$1'`)
	return out
}

// NormalizeWhitespace applies the line ending and blank line rules.
func NormalizeWhitespace(payload string) string {
	return CollapseBlankLines(NormalizeLineEndings(payload))
}
