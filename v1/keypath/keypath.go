// Package keypath walks attribute and index steps over arbitrary runtime
// values. It is used by key-name resolution to extract nested fields from
// task arguments without static knowledge of their shape.
package keypath

import (
	"fmt"
	"reflect"
)

// AttributeGetter lets a value resolve attribute steps itself instead of
// going through reflection.
type AttributeGetter interface {
	Attribute(name string) (any, bool)
}

// IndexGetter lets a value resolve index steps itself instead of going
// through reflection.
type IndexGetter interface {
	Index(i int) (any, bool)
}

// Error reports the first step of a path walk that could not be applied.
type Error struct {
	Step   any // the offending step (string attribute or int index)
	Pos    int // zero-based position of the step in the path
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("keypath: step %d (%v): %s", e.Pos, e.Step, e.Reason)
}

// Resolve walks steps starting from root and returns the terminal value.
// A string step is resolved as an attribute: the AttributeGetter
// capability first, then an exported struct field, then a string-keyed
// map entry. An int step is resolved as an index: the IndexGetter
// capability first, then a slice or array position, then an int-keyed
// map entry. Pointers and interfaces are dereferenced between steps.
// The first inapplicable step aborts the walk with an *Error; no partial
// result is returned.
func Resolve(root any, steps []any) (any, error) {
	cur := root
	for pos, step := range steps {
		next, err := apply(cur, step, pos)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func apply(v any, step any, pos int) (any, error) {
	switch s := step.(type) {
	case string:
		return attribute(v, s, pos)
	case int:
		return index(v, s, pos)
	default:
		return nil, &Error{Step: step, Pos: pos, Reason: fmt.Sprintf("step must be a string or int, got %T", step)}
	}
}

func attribute(v any, name string, pos int) (any, error) {
	if g, ok := v.(AttributeGetter); ok {
		if out, ok := g.Attribute(name); ok {
			return out, nil
		}
		return nil, &Error{Step: name, Pos: pos, Reason: "attribute not found"}
	}
	rv, ok := deref(v)
	if !ok {
		return nil, &Error{Step: name, Pos: pos, Reason: "nil value"}
	}
	switch rv.Kind() {
	case reflect.Struct:
		f := rv.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
		return nil, &Error{Step: name, Pos: pos, Reason: fmt.Sprintf("no field %q on %s", name, rv.Type())}
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &Error{Step: name, Pos: pos, Reason: fmt.Sprintf("map %s is not string-keyed", rv.Type())}
		}
		out := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !out.IsValid() {
			return nil, &Error{Step: name, Pos: pos, Reason: "key not found"}
		}
		return out.Interface(), nil
	default:
		return nil, &Error{Step: name, Pos: pos, Reason: fmt.Sprintf("cannot take attribute of %s", rv.Kind())}
	}
}

func index(v any, i int, pos int) (any, error) {
	if g, ok := v.(IndexGetter); ok {
		if out, ok := g.Index(i); ok {
			return out, nil
		}
		return nil, &Error{Step: i, Pos: pos, Reason: "index not found"}
	}
	rv, ok := deref(v)
	if !ok {
		return nil, &Error{Step: i, Pos: pos, Reason: "nil value"}
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if i < 0 || i >= rv.Len() {
			return nil, &Error{Step: i, Pos: pos, Reason: fmt.Sprintf("index out of range with length %d", rv.Len())}
		}
		return rv.Index(i).Interface(), nil
	case reflect.String:
		if i < 0 || i >= rv.Len() {
			return nil, &Error{Step: i, Pos: pos, Reason: fmt.Sprintf("index out of range with length %d", rv.Len())}
		}
		// a one-byte string rather than the raw byte, so the result
		// renders as text instead of a number
		return rv.String()[i : i+1], nil
	case reflect.Map:
		kt := rv.Type().Key()
		switch kt.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		default:
			return nil, &Error{Step: i, Pos: pos, Reason: fmt.Sprintf("map %s is not int-keyed", rv.Type())}
		}
		out := rv.MapIndex(reflect.ValueOf(i).Convert(kt))
		if !out.IsValid() {
			return nil, &Error{Step: i, Pos: pos, Reason: "key not found"}
		}
		return out.Interface(), nil
	default:
		return nil, &Error{Step: i, Pos: pos, Reason: fmt.Sprintf("cannot index %s", rv.Kind())}
	}
}

// deref unwraps pointers and interfaces until a concrete value remains.
func deref(v any) (reflect.Value, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	return rv, true
}
