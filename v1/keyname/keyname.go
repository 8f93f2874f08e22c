// Package keyname derives lock keys from bound call arguments. A key is
// the function name joined with fragments produced either automatically
// from the argument values or by an explicit selector list declared at
// wrap time.
package keyname

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mirkobrombin/go-tasklock/v1/call"
	"github.com/mirkobrombin/go-tasklock/v1/keypath"
)

// Spec declares how a lock key is derived. The zero value auto-generates
// the key from the argument values. Setting Literal fixes the key to
// funcName:literal. Setting Selectors derives one fragment per selector,
// in order. Literal wins when both are set.
type Spec struct {
	Literal   string
	Selectors []Selector
}

// Selector produces one key fragment from a binding. The boolean reports
// whether the fragment participates in the key at all: a false return
// drops the segment entirely, while an empty string with true keeps an
// empty segment between colons.
type Selector interface {
	fragment(b *call.Binding) (string, bool)
}

// Param selects the value of a single named parameter. An unresolvable
// name drops the fragment; it never fails the call. The legacy implicit
// fallback of re-reading the name as an attribute of the first positional
// argument is not supported; use Path for nested lookups.
func Param(name string) Selector { return paramSelector(name) }

type paramSelector string

func (p paramSelector) fragment(b *call.Binding) (string, bool) {
	v, ok := b.Value(string(p))
	if !ok {
		return "", false
	}
	return stringify(v), true
}

// Path selects a nested value: root is a parameter name and each step is
// an attribute name (string) or index (int), resolved through keypath.
// A failed walk degrades to an empty fragment.
func Path(root string, steps ...any) Selector {
	return pathSelector{root: root, steps: steps}
}

type pathSelector struct {
	root  string
	steps []any
}

func (p pathSelector) fragment(b *call.Binding) (string, bool) {
	v, ok := b.Value(p.root)
	if !ok {
		return "", true
	}
	out, err := keypath.Resolve(v, p.steps)
	if err != nil {
		return "", true
	}
	return stringify(out), true
}

// Priority selects the first of the named parameters whose value is
// truthy. When none qualifies the fragment is empty.
func Priority(names ...string) Selector { return prioritySelector(names) }

type prioritySelector []string

func (p prioritySelector) fragment(b *call.Binding) (string, bool) {
	for _, name := range p {
		v, ok := b.Value(name)
		if ok && Truthy(v) {
			return stringify(v), true
		}
	}
	return "", true
}

// Resolve produces the lock key for one invocation of funcName.
func Resolve(funcName string, spec Spec, b *call.Binding) string {
	if spec.Literal != "" {
		return funcName + ":" + spec.Literal
	}
	if len(spec.Selectors) > 0 {
		parts := []string{funcName}
		for _, sel := range spec.Selectors {
			if frag, keep := sel.fragment(b); keep {
				parts = append(parts, frag)
			}
		}
		return strings.Join(parts, ":")
	}
	return auto(funcName, b)
}

// auto builds the key from every explicitly passed value, skipping values
// that have no value-representative textual form.
func auto(funcName string, b *call.Binding) string {
	parts := []string{funcName}
	for _, v := range b.CallOrder() {
		if s, ok := Fragment(v); ok {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ":")
}

// Fragment returns the textual form of v and whether it is meaningful
// enough to participate in an auto-generated key. Values carrying their
// own representation (fmt.Stringer, error) and primitive kinds qualify;
// bare structs, pointers, containers and nil render as identity labels
// and are skipped.
func Fragment(v any) (string, bool) {
	switch v.(type) {
	case fmt.Stringer, error:
		return stringify(v), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return stringify(v), true
	default:
		return "", false
	}
}

// Truthy reports whether v is logically true under conventional boolean
// coercion: false, zero numbers, empty strings, empty or nil containers
// and nil pointers are falsy; everything else is truthy.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Complex64, reflect.Complex128:
		return rv.Complex() != 0
	case reflect.String, reflect.Slice, reflect.Array, reflect.Map, reflect.Chan:
		return rv.Len() > 0
	case reflect.Pointer, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	default:
		return true
	}
}

func stringify(v any) string {
	return fmt.Sprint(v)
}
