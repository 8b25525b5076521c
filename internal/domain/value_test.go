package domain

import (
	"encoding/json"
	"testing"
)

func TestValueRoundTripJSON(t *testing.T) {
	in := Map(map[string]Value{
		"name":  String("sales"),
		"limit": Number(100),
		"live":  Bool(true),
		"tags":  List(String("a"), String("b")),
		"none":  Null(),
	})

	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out Value
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !in.Equal(out) {
		t.Fatalf("round trip mismatch: %s", raw)
	}
}

func TestValueRender(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"null", Null(), ""},
		{"string", String("hello"), "hello"},
		{"integer number", Number(42), "42"},
		{"fractional number", Number(1.5), "1.5"},
		{"bool", Bool(true), "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Render(); got != tt.want {
				t.Fatalf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromAnyRejectsUnsupported(t *testing.T) {
	if _, err := FromAny(struct{}{}); err == nil {
		t.Fatal("struct accepted")
	}
	if _, err := FromAny(map[int]any{1: "x"}); err == nil {
		t.Fatal("non-string map key accepted")
	}
}

func TestVariablesMerge(t *testing.T) {
	base := Variables{"a": Number(1), "b": String("base")}
	merged := base.Merge(Variables{"b": String("override"), "c": Bool(true)})

	if !merged["a"].Equal(Number(1)) {
		t.Fatalf("a = %v", merged["a"])
	}
	if !merged["b"].Equal(String("override")) {
		t.Fatalf("b = %v", merged["b"])
	}
	if !merged["c"].Equal(Bool(true)) {
		t.Fatalf("c = %v", merged["c"])
	}
	if !base["b"].Equal(String("base")) {
		t.Fatal("merge mutated the base map")
	}
}

func TestParamTypeMatches(t *testing.T) {
	tests := []struct {
		pt   ParamType
		v    Value
		want bool
	}{
		{ParamString, String("x"), true},
		{ParamString, Number(1), false},
		{ParamNumber, Number(1), true},
		{ParamBool, Bool(false), true},
		{ParamList, List(String("a")), true},
		{ParamMap, Map(map[string]Value{"k": Null()}), true},
		{ParamMap, List(), false},
	}
	for _, tt := range tests {
		if got := tt.pt.Matches(tt.v); got != tt.want {
			t.Errorf("%s.Matches(%v) = %v, want %v", tt.pt, tt.v, got, tt.want)
		}
	}
}
