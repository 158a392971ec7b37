package tree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeJSON parses a JSON document whose root is an object, keeping the
// member order of every nested object. Numbers are kept as json.Number so
// their literal form survives a round trip.
func DecodeJSON(data []byte) (*Object, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	value, err := decodeJSONValue(dec)
	if err != nil {
		return nil, fmt.Errorf("tree: decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("tree: decode json: unexpected data after document")
	}
	root, ok := value.(*Object)
	if !ok {
		return nil, fmt.Errorf("tree: decode json: root must be an object, got %s", KindOf(value))
	}
	return root, nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch typed := tok.(type) {
	case json.Delim:
		switch typed {
		case '{':
			obj := &Object{}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
				}
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				if obj.Has(key) {
					return nil, fmt.Errorf("duplicate object key %q", key)
				}
				obj.Members = append(obj.Members, Member{Key: key, Value: value})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, value)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", typed)
		}
	default:
		return typed, nil
	}
}

// EncodeJSON serialises the object with two-space indentation, without HTML
// escaping and with a trailing newline.
func EncodeJSON(root *Object) ([]byte, error) {
	if root == nil {
		return nil, errors.New("tree: encode json: object is nil")
	}
	var compact bytes.Buffer
	if err := writeJSONValue(&compact, root); err != nil {
		return nil, fmt.Errorf("tree: encode json: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("tree: encode json: indent: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, value any) error {
	switch typed := value.(type) {
	case *Object:
		if typed == nil {
			buf.WriteString("null")
			return nil
		}
		buf.WriteByte('{')
		for idx, m := range typed.Members {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONScalar(buf, m.Key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSONValue(buf, m.Value); err != nil {
				return fmt.Errorf("%s: %w", m.Key, err)
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for idx, item := range typed {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONValue(buf, item); err != nil {
				return fmt.Errorf("[%d]: %w", idx, err)
			}
		}
		buf.WriteByte(']')
	case nil, string, bool, json.Number:
		return writeJSONScalar(buf, typed)
	default:
		return fmt.Errorf("unsupported value type %T", value)
	}
	return nil
}

func writeJSONScalar(buf *bytes.Buffer, value any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return err
	}
	// Encoder.Encode terminates every value with a newline.
	buf.Truncate(buf.Len() - 1)
	return nil
}
