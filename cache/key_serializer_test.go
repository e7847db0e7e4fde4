package cache

import (
	"strings"
	"testing"
	"time"
)

type label string

func (l label) String() string { return "label:" + string(l) }

func TestSerializeKey(t *testing.T) {
	s := NewDefaultKeySerializer()
	var nilPtr *int
	n := 7

	tests := []struct {
		name string
		args []any
		want string
	}{
		{"namespace only", nil, "book"},
		{"string and int", []any{"record", int64(3)}, `book::"record"::3`},
		{"separator inside a value", []any{"a::b"}, `book::"a::b"`},
		{"stringer", []any{label("x")}, "book::label:x"},
		{"nil and pointers", []any{nil, nilPtr, &n}, "book::nil::nil::7"},
		{"slice", []any{[]string{"a", "b"}}, `book::["a","b"]`},
		{"map sorted", []any{map[string]int{"b": 2, "a": 1}}, `book::{"a"=1,"b"=2}`},
		{"time", []any{time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, "book::2026-01-02T03:04:05Z"},
		{"struct falls back to json", []any{struct{ ID int }{ID: 1}}, `book::{"ID":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.SerializeKey("book", tt.args...); got != tt.want {
				t.Errorf("SerializeKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSerializeKeyStableAndPrefixed(t *testing.T) {
	s := NewDefaultKeySerializer()
	args := map[string]any{"z": 1, "a": []int{1, 2}, "m": "x"}

	first := s.SerializeKey("genre", "find", args)
	for i := 0; i < 20; i++ {
		if got := s.SerializeKey("genre", "find", args); got != first {
			t.Fatalf("unstable key %q vs %q", got, first)
		}
	}
	if !strings.HasPrefix(first, Prefix("genre")) {
		t.Errorf("key %q lacks prefix %q", first, Prefix("genre"))
	}
	if strings.HasPrefix(s.SerializeKey("genres", "find"), Prefix("genre")) {
		t.Error("prefix of genre must not match genres")
	}
}
