package tree

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a serialisation codec.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a codec from the file extension. Unknown extensions
// fall back to JSON, the format the form builder exports.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FormatForPath picks a codec from a recognised extension (.json, .yaml,
// .yml) and returns fallback for any other path.
func FormatForPath(path string, fallback Format) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return fallback
	}
}

// Decode parses data using the requested format.
func Decode(data []byte, format Format) (*Object, error) {
	switch format {
	case FormatJSON, "":
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	default:
		return nil, fmt.Errorf("tree: unsupported format %q", format)
	}
}

// Encode serialises root using the requested format.
func Encode(root *Object, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		return EncodeJSON(root)
	case FormatYAML:
		return EncodeYAML(root)
	default:
		return nil, fmt.Errorf("tree: unsupported format %q", format)
	}
}
