package content

import "strings"

// DefaultWidgetMarkers lists substrings identifying embedded voice-capture
// widgets in field content.
func DefaultWidgetMarkers() []string {
	return []string{
		"elevenlabs-convai",
		"data-widget=\"voice\"",
		"convai-widget",
	}
}

// Inspector detects interactive widget embeds in content payloads.
type Inspector struct {
	markers []string
}

// NewInspector builds an inspector for the provided markers. Blank markers
// are ignored; with no usable marker the defaults apply.
func NewInspector(markers ...string) *Inspector {
	cleaned := make([]string, 0, len(markers))
	for _, marker := range markers {
		trimmed := strings.ToLower(strings.TrimSpace(marker))
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		for _, marker := range DefaultWidgetMarkers() {
			cleaned = append(cleaned, strings.ToLower(marker))
		}
	}
	return &Inspector{markers: cleaned}
}

// Markers returns the normalised marker list.
func (i *Inspector) Markers() []string {
	return append([]string(nil), i.markers...)
}

// WidgetMarker returns the first marker found in payload.
func (i *Inspector) WidgetMarker(payload string) (string, bool) {
	if i == nil || payload == "" {
		return "", false
	}
	lowered := strings.ToLower(payload)
	for _, marker := range i.markers {
		if strings.Contains(lowered, marker) {
			return marker, true
		}
	}
	return "", false
}

// HasWidget reports whether payload embeds an interactive widget.
func (i *Inspector) HasWidget(payload string) bool {
	_, ok := i.WidgetMarker(payload)
	return ok
}

// HasMarkup reports whether payload carries inline markup or style text.
func HasMarkup(payload string) bool {
	if payload == "" {
		return false
	}
	if strings.Contains(payload, "<") && strings.Contains(payload, ">") {
		return true
	}
	lowered := strings.ToLower(payload)
	if strings.Contains(lowered, "style=") {
		return true
	}
	return strings.Contains(payload, "{") && strings.Contains(payload, "}")
}
