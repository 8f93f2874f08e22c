// Package call describes task-function signatures and binds invocation
// arguments onto them. A Signature mirrors the parameter list a task was
// registered with; Bind maps positional and keyword values onto it,
// producing the Binding consumed by key-name resolution.
package call

import (
	"errors"
	"fmt"
)

// Param declares a single parameter of a task function.
type Param struct {
	Name       string
	Default    any
	HasDefault bool
}

// P returns a required parameter with the given name.
func P(name string) Param {
	return Param{Name: name}
}

// D returns a parameter with a default value, used when the caller
// omits it.
func D(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Arg is a keyword argument passed at call time. Order of Arg values is
// preserved in the resulting Binding.
type Arg struct {
	Name  string
	Value any
}

// Signature is the declared parameter list of a task function.
type Signature struct {
	name   string
	params []Param
	index  map[string]int
}

// ErrNoName is returned when a signature is created without a function name.
var ErrNoName = errors.New("call: signature needs a function name")

// New creates a Signature for the named function. Parameters with
// defaults must come after all required parameters, matching conventional
// call semantics.
func New(name string, params ...Param) (*Signature, error) {
	if name == "" {
		return nil, ErrNoName
	}
	idx := make(map[string]int, len(params))
	seenDefault := false
	for i, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("call: %s: parameter %d has no name", name, i)
		}
		if _, dup := idx[p.Name]; dup {
			return nil, fmt.Errorf("call: %s: duplicate parameter %q", name, p.Name)
		}
		if p.HasDefault {
			seenDefault = true
		} else if seenDefault {
			return nil, fmt.Errorf("call: %s: required parameter %q follows a defaulted one", name, p.Name)
		}
		idx[p.Name] = i
	}
	return &Signature{name: name, params: params, index: idx}, nil
}

// MustNew is like New but panics on error. Intended for signatures built
// at task-registration time.
func MustNew(name string, params ...Param) *Signature {
	s, err := New(name, params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the function name the signature was declared with.
func (s *Signature) Name() string { return s.name }

// Binding is the result of mapping one invocation's arguments onto a
// Signature. It lives for the duration of a single call.
type Binding struct {
	sig       *Signature
	callOrder []any
	byName    map[string]any
}

// Bind maps positional and keyword arguments onto the signature.
// Positional values fill parameters in declaration order; keyword values
// bind by name. Parameters absent from the call take their declared
// default. Binding fails on excess positional values, unknown or
// duplicated keywords, or a missing required parameter.
func (s *Signature) Bind(pos []any, kw ...Arg) (*Binding, error) {
	if len(pos) > len(s.params) {
		return nil, fmt.Errorf("call: %s takes %d parameters, got %d positional values", s.name, len(s.params), len(pos))
	}
	byName := make(map[string]any, len(s.params))
	callOrder := make([]any, 0, len(pos)+len(kw))
	for i, v := range pos {
		byName[s.params[i].Name] = v
		callOrder = append(callOrder, v)
	}
	for _, a := range kw {
		if _, ok := s.index[a.Name]; !ok {
			return nil, fmt.Errorf("call: %s has no parameter %q", s.name, a.Name)
		}
		if _, bound := byName[a.Name]; bound {
			return nil, fmt.Errorf("call: %s: parameter %q bound twice", s.name, a.Name)
		}
		byName[a.Name] = a.Value
		callOrder = append(callOrder, a.Value)
	}
	for _, p := range s.params {
		if _, bound := byName[p.Name]; bound {
			continue
		}
		if !p.HasDefault {
			return nil, fmt.Errorf("call: %s: missing required parameter %q", s.name, p.Name)
		}
		byName[p.Name] = p.Default
	}
	return &Binding{sig: s, callOrder: callOrder, byName: byName}, nil
}

// CallOrder returns every explicitly passed value: positional values in
// call order followed by keyword values in the order they were passed.
// Defaulted parameters are not included.
func (b *Binding) CallOrder() []any { return b.callOrder }

// Value returns the bound value for a parameter name, including values
// supplied through defaults. The boolean reports whether the parameter
// exists on the signature.
func (b *Binding) Value(name string) (any, bool) {
	v, ok := b.byName[name]
	return v, ok
}

// First returns the value bound to the first declared parameter, if any.
func (b *Binding) First() (any, bool) {
	if len(b.sig.params) == 0 {
		return nil, false
	}
	return b.Value(b.sig.params[0].Name)
}
