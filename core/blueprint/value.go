package blueprint

import (
	"fmt"
	"reflect"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type valueTag uint8

const (
	tagEmpty valueTag = iota
	tagString
	tagList
	tagDerived
)

// Value is the in-memory state of one field.
type Value struct {
	tag  valueTag
	str  string
	list []string
	data any
}

// Empty returns the unset value.
func Empty() Value { return Value{} }

// String returns a scalar value. The empty string is Empty.
func String(s string) Value {
	if s == "" {
		return Value{}
	}
	return Value{tag: tagString, str: s}
}

// List returns a list value holding a copy of items. No items is Empty.
func List(items ...string) Value {
	if len(items) == 0 {
		return Value{}
	}
	return Value{tag: tagList, list: append([]string(nil), items...)}
}

// DerivedValue wraps a computed value. nil is Empty.
func DerivedValue(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{tag: tagDerived, data: v}
}

// IsEmpty reports whether the value is unset.
func (v Value) IsEmpty() bool { return v.tag == tagEmpty }

// Str returns the scalar value.
func (v Value) Str() string { return v.str }

// Items returns a copy of the list value.
func (v Value) Items() []string { return append([]string(nil), v.list...) }

// Data returns the computed value.
func (v Value) Data() any { return v.data }

func (v Value) contains(s string) bool { return contains(v.list, s) }

// Equal compares two values of the same field.
func (v Value) Equal(o Value) bool {
	if v.tag != o.tag {
		return false
	}
	switch v.tag {
	case tagString:
		return v.str == o.str
	case tagList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	case tagDerived:
		if reflect.DeepEqual(v.data, o.data) {
			return true
		}
		return sameJSON(v.data, o.data)
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.tag {
	case tagString:
		return v.str
	case tagList:
		return "[" + strings.Join(v.list, ", ") + "]"
	case tagDerived:
		return fmt.Sprintf("%v", v.data)
	default:
		return "<empty>"
	}
}

// sameJSON compares values as the document store returns them, so int64(3) equals float64(3).
func sameJSON(a, b any) bool {
	ea, err := json.Marshal(a)
	if err != nil {
		return false
	}
	eb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ea) == string(eb)
}
