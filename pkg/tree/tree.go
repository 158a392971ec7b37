package tree

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Member is a single key/value pair inside an Object.
type Member struct {
	Key   string
	Value any
}

// Object is an insertion-ordered JSON object. Values are one of string,
// json.Number, bool, nil, []any or *Object.
type Object struct {
	Members []Member
}

// NewObject builds an object from alternating key/value arguments. It panics
// on malformed input and is meant for fixtures and literals.
func NewObject(pairs ...any) *Object {
	if len(pairs)%2 != 0 {
		panic("tree: NewObject requires key/value pairs")
	}
	obj := &Object{}
	for idx := 0; idx < len(pairs); idx += 2 {
		key, ok := pairs[idx].(string)
		if !ok {
			panic(fmt.Sprintf("tree: key at position %d is not a string", idx))
		}
		obj.Set(key, pairs[idx+1])
	}
	return obj
}

// Len reports the number of members.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Members)
}

// Keys returns member keys in order.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	keys := make([]string, 0, len(o.Members))
	for _, m := range o.Members {
		keys = append(keys, m.Key)
	}
	return keys
}

func (o *Object) index(key string) int {
	if o == nil {
		return -1
	}
	for idx := range o.Members {
		if o.Members[idx].Key == key {
			return idx
		}
	}
	return -1
}

// Has reports whether key is present, regardless of its value.
func (o *Object) Has(key string) bool {
	return o.index(key) >= 0
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	idx := o.index(key)
	if idx < 0 {
		return nil, false
	}
	return o.Members[idx].Value, true
}

// Set replaces the value of an existing key in place or appends a new member.
func (o *Object) Set(key string, value any) {
	if idx := o.index(key); idx >= 0 {
		o.Members[idx].Value = value
		return
	}
	o.Members = append(o.Members, Member{Key: key, Value: value})
}

// Delete removes key and reports whether it was present.
func (o *Object) Delete(key string) bool {
	idx := o.index(key)
	if idx < 0 {
		return false
	}
	o.Members = append(o.Members[:idx], o.Members[idx+1:]...)
	return true
}

// String returns the string stored under key, or "" when absent or not a
// string.
func (o *Object) String(key string) string {
	value, _ := o.Get(key)
	str, _ := value.(string)
	return str
}

// Bool returns the boolean stored under key and whether it was a boolean.
func (o *Object) Bool(key string) (bool, bool) {
	value, _ := o.Get(key)
	b, ok := value.(bool)
	return b, ok
}

// Object returns the nested object stored under key.
func (o *Object) Object(key string) (*Object, bool) {
	value, _ := o.Get(key)
	obj, ok := value.(*Object)
	return obj, ok && obj != nil
}

// Array returns the array stored under key.
func (o *Object) Array(key string) ([]any, bool) {
	value, _ := o.Get(key)
	arr, ok := value.([]any)
	return arr, ok
}

// Lookup resolves a dotted path ("settings.languages") through nested
// objects. The boolean is false when any segment is missing.
func (o *Object) Lookup(path string) (any, bool) {
	parent, last, ok := o.Parent(path)
	if !ok {
		return nil, false
	}
	return parent.Get(last)
}

// Parent resolves every segment of a dotted path except the last one and
// returns the owning object together with the final key.
func (o *Object) Parent(path string) (*Object, string, bool) {
	segments := strings.Split(path, ".")
	current := o
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current.Object(segment)
		if !ok {
			return nil, "", false
		}
		current = next
	}
	if current == nil {
		return nil, "", false
	}
	return current, segments[len(segments)-1], true
}

// EnsureParent resolves path like Parent, creating absent intermediate
// objects. It fails when an intermediate segment holds a non-object value.
func (o *Object) EnsureParent(path string) (*Object, string, bool) {
	if o == nil {
		return nil, "", false
	}
	segments := strings.Split(path, ".")
	current := o
	for _, segment := range segments[:len(segments)-1] {
		raw, present := current.Get(segment)
		if !present {
			next := &Object{}
			current.Set(segment, next)
			current = next
			continue
		}
		next, ok := raw.(*Object)
		if !ok || next == nil {
			return nil, "", false
		}
		current = next
	}
	return current, segments[len(segments)-1], true
}

// CanEnsureParent reports whether EnsureParent would succeed, without
// creating anything.
func (o *Object) CanEnsureParent(path string) bool {
	if o == nil {
		return false
	}
	segments := strings.Split(path, ".")
	current := o
	for _, segment := range segments[:len(segments)-1] {
		raw, present := current.Get(segment)
		if !present {
			return true
		}
		next, ok := raw.(*Object)
		if !ok || next == nil {
			return false
		}
		current = next
	}
	return true
}

// Clone returns a deep copy of the object.
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	out := &Object{Members: make([]Member, len(o.Members))}
	for idx, m := range o.Members {
		out.Members[idx] = Member{Key: m.Key, Value: CloneValue(m.Value)}
	}
	return out
}

// CloneValue deep copies any tree value.
func CloneValue(value any) any {
	switch typed := value.(type) {
	case *Object:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = CloneValue(item)
		}
		return out
	default:
		return typed
	}
}

// KindOf names the JSON kind of a tree value for diagnostics.
func KindOf(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case *Object:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

var equalOptions = cmp.Options{
	cmpopts.EquateEmpty(),
}

// Equal reports whether two tree values are structurally identical, member
// order included.
func Equal(a, b any) bool {
	return cmp.Equal(a, b, equalOptions)
}

// Diff returns a human readable diff (-a +b) or "" when equal.
func Diff(a, b any) string {
	return cmp.Diff(a, b, equalOptions)
}
