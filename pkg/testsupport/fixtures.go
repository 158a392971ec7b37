package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formpatch/pkg/document"
	"github.com/goliatone/go-formpatch/pkg/tree"
)

// SampleDocumentJSON is a three step training form exercising every rule: a
// welcome step, a roleplay step embedding a voice widget and a details step
// carrying a legacy field type and an OTP field without optional fields.
const SampleDocumentJSON = `{
  "id": "form-1",
  "name": "Sales Training",
  "customCSS": ".btn { color: red; }",
  "logo": "https://cdn.example.com/logo.png",
  "settings": {
    "progressBar": true
  },
  "dynamicRules": [
    {
      "id": "show-notes",
      "conditions": [
        {
          "field": "name",
          "operator": "filled"
        }
      ],
      "actions": [
        {
          "type": "show",
          "target": "notes"
        }
      ]
    }
  ],
  "steps": [
    {
      "id": "intro",
      "name": "Welcome",
      "isFirstStep": true,
      "navigation": {
        "next": {
          "visible": true,
          "label": "Start"
        }
      },
      "blocks": [
        {
          "rows": [
            {
              "fields": [
                {
                  "type": "content",
                  "content": "<h1>Welcome</h1>"
                },
                {
                  "type": "text",
                  "integrationID": "name",
                  "label": "Your name",
                  "required": true
                }
              ]
            }
          ]
        }
      ]
    },
    {
      "id": "roleplay-1",
      "name": "Roleplay 1",
      "navigation": {
        "next": {
          "visible": true
        }
      },
      "blocks": [
        {
          "rows": [
            {
              "fields": [
                {
                  "type": "content",
                  "content": "<elevenlabs-convai agent-id=\"abc\"></elevenlabs-convai>"
                },
                {
                  "type": "hidden",
                  "integrationID": "roleplay_done",
                  "hidden": true,
                  "readOnly": true
                },
                {
                  "type": "longText",
                  "integrationID": "notes",
                  "label": "Your Response",
                  "required": true,
                  "readOnly": true
                }
              ]
            }
          ]
        }
      ]
    },
    {
      "id": "details",
      "name": "Details",
      "blocks": [
        {
          "rows": [
            {
              "fields": [
                {
                  "type": "textarea",
                  "integrationID": "notes",
                  "label": "Additional notes"
                },
                {
                  "type": "otp",
                  "integrationID": "otp",
                  "otpConfig": {
                    "channel": "sms"
                  }
                }
              ]
            }
          ]
        }
      ]
    }
  ]
}
`

// SampleDocument parses SampleDocumentJSON.
func SampleDocument(t *testing.T) *document.Document {
	t.Helper()
	return MustParseJSON(t, SampleDocumentJSON)
}

// MustParseJSON parses a JSON form document or fails the test.
func MustParseJSON(t *testing.T, raw string) *document.Document {
	t.Helper()

	doc, err := document.Parse([]byte(raw), tree.FormatJSON)
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}

// MustMarshalJSON encodes doc as JSON or fails the test.
func MustMarshalJSON(t *testing.T, doc *document.Document) string {
	t.Helper()

	out, err := document.Marshal(doc, tree.FormatJSON)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	return string(out)
}

// StepByID returns the step with the given id or fails the test.
func StepByID(t *testing.T, doc *document.Document, id string) *document.Step {
	t.Helper()

	for _, step := range doc.Steps {
		if step.ID() == id {
			return step
		}
	}
	t.Fatalf("step %q not found", id)
	return nil
}

// WriteFile writes data under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
