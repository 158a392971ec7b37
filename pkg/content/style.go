package content

import (
	"regexp"
	"strings"
)

// StyleStrategy names what SanitizeStyle did with a style payload.
type StyleStrategy string

const (
	StyleKept      StyleStrategy = "kept"
	StyleRewritten StyleStrategy = "rewritten"
	StyleCleared   StyleStrategy = "cleared"
)

const stylePunctuation = " \n\t{}:;.,#-_()!'\"/*>+~[]=@$^|?"

var (
	cssComment   = regexp.MustCompile(`(?s)/\*.*?\*/`)
	cssSpaceRun  = regexp.MustCompile(`\s+`)
	strayPercent = regexp.MustCompile(`%([^0-9A-Fa-f]|[0-9A-Fa-f][^0-9A-Fa-f]|[0-9A-Fa-f]?$)`)
)

// StyleViolations returns the byte offsets of characters the consuming
// runtime cannot percent-decode safely. A percent sign is only accepted as
// the start of a %XX escape.
func StyleViolations(css string) []int {
	var out []int
	for idx := 0; idx < len(css); idx++ {
		c := css[idx]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte(stylePunctuation, c) >= 0:
		case c == '%' && idx+2 < len(css) && isHex(css[idx+1]) && isHex(css[idx+2]):
		default:
			out = append(out, idx)
		}
	}
	return out
}

// StyleAllowed reports whether css passes the allow-list unchanged.
func StyleAllowed(css string) bool {
	return len(StyleViolations(css)) == 0
}

// SanitizeStyle returns css untouched when it passes the allow-list.
// Otherwise it tries a minimal rewrite (comments dropped, whitespace
// collapsed, stray percent signs encoded as %25) and clears the payload when
// the rewrite still contains disallowed characters.
func SanitizeStyle(css string) (string, StyleStrategy) {
	if StyleAllowed(css) {
		return css, StyleKept
	}
	rewritten := cssComment.ReplaceAllString(css, "")
	rewritten = encodeStrayPercent(rewritten)
	rewritten = strings.TrimSpace(cssSpaceRun.ReplaceAllString(rewritten, " "))
	if StyleAllowed(rewritten) {
		return rewritten, StyleRewritten
	}
	return "", StyleCleared
}

func encodeStrayPercent(css string) string {
	// Replace until stable: adjacent percent signs share match boundaries.
	for {
		next := strayPercent.ReplaceAllString(css, "%25$1")
		if next == css {
			return next
		}
		css = next
	}
}

func isHex(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}
