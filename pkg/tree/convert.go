package tree

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
)

// FromGo converts plain Go values (as produced by yaml/json/mapstructure
// decoding) into tree values. Map keys are sorted to keep output stable.
func FromGo(value any) (any, error) {
	switch typed := value.(type) {
	case nil, string, bool, json.Number:
		return typed, nil
	case *Object:
		return typed.Clone(), nil
	case int:
		return json.Number(strconv.Itoa(typed)), nil
	case int64:
		return json.Number(strconv.FormatInt(typed, 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(typed, 10)), nil
	case float64:
		return json.Number(strconv.FormatFloat(typed, 'g', -1, 64)), nil
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			converted, err := FromGo(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", idx, err)
			}
			out[idx] = converted
		}
		return out, nil
	case []string:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = item
		}
		return out, nil
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		obj := &Object{}
		for _, key := range keys {
			converted, err := FromGo(typed[key])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			obj.Members = append(obj.Members, Member{Key: key, Value: converted})
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("tree: unsupported value type %T", value)
	}
}

// ContainsReference reports whether a member named by one of keys, at any
// depth inside value, holds needle either directly or as an element of a
// string array. Strings under other keys are ignored.
func ContainsReference(value any, keys []string, needle string) bool {
	found := false
	visitReferences(value, keys, func(ref *string) {
		if *ref == needle {
			found = true
		}
	})
	return found
}

// ReplaceReference rewrites references equal to old, as matched by
// ContainsReference, and returns the number of replacements.
func ReplaceReference(value any, keys []string, old, replacement string) int {
	total := 0
	visitReferences(value, keys, func(ref *string) {
		if *ref == old {
			*ref = replacement
			total++
		}
	})
	return total
}

func visitReferences(value any, keys []string, visit func(*string)) {
	switch typed := value.(type) {
	case []any:
		for _, item := range typed {
			visitReferences(item, keys, visit)
		}
	case *Object:
		if typed == nil {
			return
		}
		for idx := range typed.Members {
			member := &typed.Members[idx]
			if slices.Contains(keys, member.Key) {
				visitReferenceValue(&member.Value, visit)
				continue
			}
			visitReferences(member.Value, keys, visit)
		}
	}
}

func visitReferenceValue(value *any, visit func(*string)) {
	switch typed := (*value).(type) {
	case string:
		visit(&typed)
		*value = typed
	case []any:
		for idx, item := range typed {
			if ref, ok := item.(string); ok {
				visit(&ref)
				typed[idx] = ref
			}
		}
	}
}
