package rules

import (
	"github.com/goliatone/go-formpatch/pkg/content"
	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

const NameContentSafety = "content-safety"

// ContentSafetyOptions configures ContentSafety.
type ContentSafetyOptions struct {
	// StripUnsafeMarkup runs field content through the markup sanitizer.
	StripUnsafeMarkup bool `mapstructure:"strip_unsafe_markup"`
	// WidgetMarkers replaces the environment's widget markers for the
	// sanitizer allow-list.
	WidgetMarkers []string `mapstructure:"widget_markers"`
}

// ContentSafety normalises markup held in field content and reduces the
// document style payload to its allowed character set.
type ContentSafety struct {
	inspector *content.Inspector
	strip     bool
}

// NewContentSafety builds the rule.
func NewContentSafety(inspector *content.Inspector, strip bool) *ContentSafety {
	if inspector == nil {
		inspector = content.NewInspector()
	}
	return &ContentSafety{inspector: inspector, strip: strip}
}

func newContentSafetyFactory(env Env, options map[string]any) (Rule, error) {
	var opts ContentSafetyOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	inspector := env.Inspector
	if len(opts.WidgetMarkers) > 0 {
		inspector = content.NewInspector(opts.WidgetMarkers...)
	}
	return NewContentSafety(inspector, opts.StripUnsafeMarkup), nil
}

func (ContentSafety) Name() string { return NameContentSafety }

// Apply normalises field content and the style payload.
func (r *ContentSafety) Apply(doc *document.Document) (Result, error) {
	var result Result
	err := document.WalkFields(doc, func(field *document.Field, _ *document.FieldContext) error {
		payload := field.Content()
		if !content.HasMarkup(payload) {
			return nil
		}
		cleaned := content.NormalizeAttributeQuotes(payload)
		if r.strip {
			cleaned = r.inspector.SanitizeMarkup(cleaned)
		}
		cleaned = content.NormalizeWhitespace(cleaned)
		if cleaned != payload {
			field.SetContent(cleaned)
			result.Changed++
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	if !doc.HasCustomCSS() {
		return result, nil
	}
	raw, _ := doc.Props().Get(document.KeyCustomCSS)
	css, ok := raw.(string)
	if !ok {
		doc.SetCustomCSS("")
		result.Changed++
		result.warn(NameContentSafety, document.KeyCustomCSS, "%s style payload cleared", tree.KindOf(raw))
		return result, nil
	}
	sanitized, strategy := content.SanitizeStyle(css)
	switch strategy {
	case content.StyleRewritten:
		result.warn(NameContentSafety, document.KeyCustomCSS, "style payload rewritten to the allowed character set")
	case content.StyleCleared:
		result.warn(NameContentSafety, document.KeyCustomCSS, "style payload cleared: it could not be reduced to the allowed character set")
	}
	if sanitized != css {
		doc.SetCustomCSS(sanitized)
		result.Changed++
	}
	return result, nil
}
