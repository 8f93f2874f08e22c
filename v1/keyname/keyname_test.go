package keyname

import (
	"testing"
	"time"

	"github.com/mirkobrombin/go-tasklock/v1/call"
)

func bind(t *testing.T, sig *call.Signature, pos []any, kw ...call.Arg) *call.Binding {
	t.Helper()
	b, err := sig.Bind(pos, kw...)
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return b
}

func TestResolveSelectorOrder(t *testing.T) {
	sig := call.MustNew("bar", call.P("arg1"), call.P("arg2"), call.P("arg3"), call.P("arg4"))
	b := bind(t, sig, []any{1, 2, 3, 4})
	spec := Spec{Selectors: []Selector{Param("arg4"), Param("arg2"), Param("arg3")}}
	if key := Resolve("bar", spec, b); key != "bar:4:2:3" {
		t.Fatalf("key = %q", key)
	}
}

func TestResolveLiteral(t *testing.T) {
	sig := call.MustNew("fn", call.D("a", 0))
	spec := Spec{Literal: "fixed"}
	if key := Resolve("fn", spec, bind(t, sig, []any{1})); key != "fn:fixed" {
		t.Fatalf("key = %q", key)
	}
	if key := Resolve("fn", spec, bind(t, sig, []any{99})); key != "fn:fixed" {
		t.Fatalf("key should ignore arguments, got %q", key)
	}
}

func TestResolveAutoStable(t *testing.T) {
	sig := call.MustNew("job", call.P("a"), call.P("b"))
	k1 := Resolve("job", Spec{}, bind(t, sig, []any{1, "x"}))
	k2 := Resolve("job", Spec{}, bind(t, sig, []any{1, "x"}))
	if k1 != k2 {
		t.Fatalf("auto key unstable: %q vs %q", k1, k2)
	}
	if k1 != "job:1:x" {
		t.Fatalf("key = %q", k1)
	}
	k3 := Resolve("job", Spec{}, bind(t, sig, []any{2, "x"}))
	if k3 == k1 {
		t.Fatal("auto key must change with argument values")
	}
}

type opaque struct{ n int }

func TestResolveAutoSkipsOpaqueValues(t *testing.T) {
	sig := call.MustNew("job", call.P("a"), call.P("obj"), call.P("b"))
	b := bind(t, sig, []any{1, opaque{n: 5}, "x"})
	if key := Resolve("job", Spec{}, b); key != "job:1:x" {
		t.Fatalf("opaque value must be dropped, got %q", key)
	}
}

func TestResolveAutoKeywordOrder(t *testing.T) {
	sig := call.MustNew("job", call.D("a", 0), call.D("b", 0))
	b := bind(t, sig, nil, call.Arg{Name: "b", Value: 2}, call.Arg{Name: "a", Value: 1})
	if key := Resolve("job", Spec{}, b); key != "job:2:1" {
		t.Fatalf("key = %q", key)
	}
}

func TestPriorityFirstTruthy(t *testing.T) {
	sig := call.MustNew("f", call.P("a"), call.P("b"))
	spec := Spec{Selectors: []Selector{Priority("a", "b")}}
	if key := Resolve("f", spec, bind(t, sig, []any{0, 5})); key != "f:5" {
		t.Fatalf("key = %q", key)
	}
	if key := Resolve("f", spec, bind(t, sig, []any{7, 5})); key != "f:7" {
		t.Fatalf("key = %q", key)
	}
	if key := Resolve("f", spec, bind(t, sig, []any{0, 0})); key != "f:" {
		t.Fatalf("none truthy must keep an empty segment, got %q", key)
	}
}

type holder struct {
	Obj items
}

type items struct {
	Items []int
}

func TestPathSelector(t *testing.T) {
	sig := call.MustNew("f", call.P("self"))
	spec := Spec{Selectors: []Selector{Path("self", "Obj", "Items", 0)}}
	b := bind(t, sig, []any{holder{Obj: items{Items: []int{9, 8}}}})
	if key := Resolve("f", spec, b); key != "f:9" {
		t.Fatalf("key = %q", key)
	}
	// empty slice: walk fails, fragment degrades to empty
	b = bind(t, sig, []any{holder{}})
	if key := Resolve("f", spec, b); key != "f:" {
		t.Fatalf("failed path must keep an empty segment, got %q", key)
	}
}

func TestParamSelectorDropsUnknownName(t *testing.T) {
	sig := call.MustNew("f", call.P("a"))
	spec := Spec{Selectors: []Selector{Param("a"), Param("nope")}}
	if key := Resolve("f", spec, bind(t, sig, []any{1})); key != "f:1" {
		t.Fatalf("unknown param must drop its segment, got %q", key)
	}
}

func TestParamSelectorUsesDefaults(t *testing.T) {
	sig := call.MustNew("f", call.P("a"), call.D("b", "dflt"))
	spec := Spec{Selectors: []Selector{Param("b")}}
	if key := Resolve("f", spec, bind(t, sig, []any{1})); key != "f:dflt" {
		t.Fatalf("key = %q", key)
	}
}

func TestFragment(t *testing.T) {
	if _, ok := Fragment(opaque{}); ok {
		t.Fatal("bare struct must not qualify")
	}
	if _, ok := Fragment(&opaque{}); ok {
		t.Fatal("pointer must not qualify")
	}
	if _, ok := Fragment(nil); ok {
		t.Fatal("nil must not qualify")
	}
	if _, ok := Fragment([]int{1}); ok {
		t.Fatal("slice must not qualify")
	}
	if s, ok := Fragment(42); !ok || s != "42" {
		t.Fatalf("int fragment = %q ok %v", s, ok)
	}
	if s, ok := Fragment("x"); !ok || s != "x" {
		t.Fatalf("string fragment = %q ok %v", s, ok)
	}
	// time.Time carries its own representation via fmt.Stringer
	if _, ok := Fragment(time.Unix(0, 0)); !ok {
		t.Fatal("stringer must qualify")
	}
}

func TestTruthy(t *testing.T) {
	truthy := []any{true, 1, -1, 0.5, "x", []int{0}, map[string]int{"a": 1}, opaque{}}
	for _, v := range truthy {
		if !Truthy(v) {
			t.Fatalf("expected %#v to be truthy", v)
		}
	}
	var nilPtr *opaque
	falsy := []any{nil, false, 0, 0.0, "", []int{}, map[string]int{}, nilPtr}
	for _, v := range falsy {
		if Truthy(v) {
			t.Fatalf("expected %#v to be falsy", v)
		}
	}
}
