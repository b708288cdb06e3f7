package jsondoc

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrWrongType  = errors.New("wrong json type")
	ErrMissingKey = errors.New("missing key")
)

type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is one key/value pair of an object, kept in document order.
type Member struct {
	Key   string
	Value *Value
}

// Value is a parsed JSON value. Objects keep their members in the order they
// appeared in the input, including duplicate keys.
type Value struct {
	kind    Kind
	b       bool
	s       string
	elems   []*Value
	members []Member
}

func (v *Value) Kind() Kind {
	if v == nil {
		return Null
	}

	return v.kind
}

func (v *Value) wrongType(want Kind) error {
	return errors.Wrapf(ErrWrongType, "expected %s, got %s", want, v.Kind())
}

func (v *Value) AsBool() (bool, error) {
	if v.Kind() != Bool {
		return false, v.wrongType(Bool)
	}

	return v.b, nil
}

func (v *Value) AsString() (string, error) {
	if v.Kind() != String {
		return "", v.wrongType(String)
	}

	return v.s, nil
}

func (v *Value) AsNumber() (json.Number, error) {
	if v.Kind() != Number {
		return "", v.wrongType(Number)
	}

	return json.Number(v.s), nil
}

func (v *Value) AsArray() ([]*Value, error) {
	if v.Kind() != Array {
		return nil, v.wrongType(Array)
	}

	return v.elems, nil
}

// AsObject returns the members of an object in document order.
func (v *Value) AsObject() ([]Member, error) {
	if v.Kind() != Object {
		return nil, v.wrongType(Object)
	}

	return v.members, nil
}

// Get returns the first member named key. It reports false if v is not an
// object or has no such member.
func (v *Value) Get(key string) (*Value, bool) {
	if v.Kind() != Object {
		return nil, false
	}

	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}

	return nil, false
}

// Field is Get for callers that treat absence as an error.
func (v *Value) Field(key string) (*Value, error) {
	if v.Kind() != Object {
		return nil, v.wrongType(Object)
	}

	fv, ok := v.Get(key)
	if !ok {
		return nil, errors.Wrapf(ErrMissingKey, "%q", key)
	}

	return fv, nil
}

func (v *Value) String() string {
	switch v.Kind() {
	case Null:
		return "null"
	case Bool:
		if v.b {
			return "true"
		}
		return "false"
	case Number:
		return v.s
	case String:
		return fmt.Sprintf("%q", v.s)
	case Array:
		return fmt.Sprintf("[%d elements]", len(v.elems))
	default:
		return fmt.Sprintf("{%d members}", len(v.members))
	}
}
