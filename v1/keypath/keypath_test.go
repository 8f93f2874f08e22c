package keypath

import (
	"errors"
	"testing"
)

type inner struct {
	Items []int
}

type outer struct {
	Obj inner
}

func TestResolveStructSliceChain(t *testing.T) {
	v := outer{Obj: inner{Items: []int{9, 8}}}
	out, err := Resolve(v, []any{"Obj", "Items", 0})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != 9 {
		t.Fatalf("out = %v", out)
	}
}

func TestResolvePointerRoot(t *testing.T) {
	v := &outer{Obj: inner{Items: []int{7}}}
	out, err := Resolve(v, []any{"Obj", "Items", 0})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != 7 {
		t.Fatalf("out = %v", out)
	}
}

func TestResolveMaps(t *testing.T) {
	v := map[string]any{"a": map[int]string{2: "two"}}
	out, err := Resolve(v, []any{"a", 2})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != "two" {
		t.Fatalf("out = %v", out)
	}
}

func TestResolveStringIndex(t *testing.T) {
	out, err := Resolve("abc", []any{1})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// indexing a string yields a one-byte string, not the raw byte
	if out != "b" {
		t.Fatalf("out = %v (%T)", out, out)
	}
	if _, err := Resolve("abc", []any{5}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestResolveEmptySteps(t *testing.T) {
	out, err := Resolve(42, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out != 42 {
		t.Fatalf("out = %v", out)
	}
}

func TestResolveOutOfRange(t *testing.T) {
	v := outer{Obj: inner{Items: []int{}}}
	_, err := Resolve(v, []any{"Obj", "Items", 0})
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if perr.Pos != 2 {
		t.Fatalf("pos = %d", perr.Pos)
	}
}

func TestResolveMissingField(t *testing.T) {
	_, err := Resolve(outer{}, []any{"Nope"})
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestResolveWrongKind(t *testing.T) {
	if _, err := Resolve(42, []any{"field"}); err == nil {
		t.Fatal("expected error taking attribute of int")
	}
	if _, err := Resolve(outer{}, []any{0}); err == nil {
		t.Fatal("expected error indexing struct")
	}
	if _, err := Resolve(outer{}, []any{1.5}); err == nil {
		t.Fatal("expected error for non string/int step")
	}
}

func TestResolveNil(t *testing.T) {
	var p *outer
	if _, err := Resolve(p, []any{"Obj"}); err == nil {
		t.Fatal("expected error on nil pointer")
	}
	if _, err := Resolve(nil, []any{"Obj"}); err == nil {
		t.Fatal("expected error on nil root")
	}
}

type bag map[string]any

func (b bag) Attribute(name string) (any, bool) {
	v, ok := b["attr:"+name]
	return v, ok
}

func (b bag) Index(i int) (any, bool) {
	if i == 0 {
		return b["zero"], true
	}
	return nil, false
}

func TestCapabilityInterfaces(t *testing.T) {
	b := bag{"attr:name": "x", "zero": "z"}
	out, err := Resolve(b, []any{"name"})
	if err != nil || out != "x" {
		t.Fatalf("attribute getter: %v %v", out, err)
	}
	out, err = Resolve(b, []any{0})
	if err != nil || out != "z" {
		t.Fatalf("index getter: %v %v", out, err)
	}
	if _, err := Resolve(b, []any{1}); err == nil {
		t.Fatal("expected index getter miss to fail")
	}
	if _, err := Resolve(b, []any{"missing"}); err == nil {
		t.Fatal("expected attribute getter miss to fail")
	}
}
