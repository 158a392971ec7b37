package content

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var tagName = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)+$`)

var (
	markupPolicyMu sync.Mutex
	markupPolicies = map[string]*bluemonday.Policy{}
)

// SanitizeMarkup strips scripts, event handlers and unknown elements from a
// content payload. Common formatting markup, iframes and the custom elements
// named by the inspector's markers survive so widget embeds keep working.
func (i *Inspector) SanitizeMarkup(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return raw
	}
	return i.markupSanitizer().Sanitize(raw)
}

func (i *Inspector) markupSanitizer() *bluemonday.Policy {
	var elements []string
	if i != nil {
		for _, marker := range i.markers {
			if tagName.MatchString(marker) {
				elements = append(elements, marker)
			}
		}
	}
	key := strings.Join(elements, ",")

	markupPolicyMu.Lock()
	defer markupPolicyMu.Unlock()
	if policy, ok := markupPolicies[key]; ok {
		return policy
	}

	policy := bluemonday.UGCPolicy()
	policy.AllowElements("iframe")
	policy.AllowAttrs(
		"src", "width", "height", "allow", "allowfullscreen", "frameborder", "title",
	).OnElements("iframe")
	policy.AllowURLSchemes("https")

	if len(elements) > 0 {
		policy.AllowElements(elements...)
		policy.AllowAttrs(
			"agent-id", "id", "class", "src", "variant", "action-text", "start-call-text",
		).OnElements(elements...)
	}
	policy.AllowDataAttributes()

	markupPolicies[key] = policy
	return policy
}
