package cache

import (
	"strings"
	"testing"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		op   string
		args []any
		want string
	}{
		{
			name: "no args",
			op:   "Select",
			args: []any{},
			want: "Select",
		},
		{
			name: "single string",
			op:   "Select",
			args: []any{"posts"},
			want: joinWithSeparator("Select", "posts"),
		},
		{
			name: "mixed basic types",
			op:   "RPC",
			args: []any{"recalculate_rqs", 42, true},
			want: joinWithSeparator("RPC", "recalculate_rqs", "42", "true"),
		},
		{
			name: "string containing separator chars",
			op:   "Select",
			args: []any{"author:handle"},
			want: joinWithSeparator("Select", "author:handle"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.op, tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_NilAndPointers(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	if got := serializer.SerializeKey("Select", nil); got != joinWithSeparator("Select", "nil") {
		t.Errorf("nil arg: got %v", got)
	}

	var nilPtr *string
	if got := serializer.SerializeKey("Select", nilPtr); got != joinWithSeparator("Select", "nil") {
		t.Errorf("nil pointer: got %v", got)
	}

	value := "post-9"
	if got := serializer.SerializeKey("Select", &value); got != joinWithSeparator("Select", "post-9") {
		t.Errorf("pointer deref: got %v", got)
	}
}

func TestDefaultKeySerializer_Slices(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	var nilSlice []string
	if got := serializer.SerializeKey("Select", nilSlice); got != joinWithSeparator("Select", "slice:nil") {
		t.Errorf("nil slice: got %v", got)
	}

	got := serializer.SerializeKey("Select", []string{"a", "b"})
	want := joinWithSeparator("Select", "slice[2]:{a,b}")
	if got != want {
		t.Errorf("slice: got %v, want %v", got, want)
	}

	got = serializer.SerializeKey("Select", [][]int{{1}, {2, 3}})
	want = joinWithSeparator("Select", "slice[2]:{slice[1]:{1},slice[2]:{2,3}}")
	if got != want {
		t.Errorf("nested slice: got %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_MapsAreDeterministic(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	m := map[string]int{"views": 3, "likes": 10, "shares": 1}

	first := serializer.SerializeKey("Select", m)
	for i := 0; i < 50; i++ {
		if got := serializer.SerializeKey("Select", m); got != first {
			t.Fatalf("map key unstable: %v != %v", got, first)
		}
	}

	want := joinWithSeparator("Select", "map[3]:{likes=10,shares=1,views=3}")
	if first != want {
		t.Errorf("map: got %v, want %v", first, want)
	}
}

func TestDefaultKeySerializer_Structs(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	type filter struct {
		Column string
		Op     string
		Value  any
		hidden int
	}

	got := serializer.SerializeKey("Select", filter{Column: "user_id", Op: "eq", Value: "u-1"})
	want := joinWithSeparator("Select", "struct:{Column:user_id,Op:eq,Value:u-1}")
	if got != want {
		t.Errorf("struct: got %v, want %v", got, want)
	}

	// Identical filters must share a key; different values must not.
	a := serializer.SerializeKey("Select", []filter{{Column: "status", Op: "eq", Value: "published"}})
	b := serializer.SerializeKey("Select", []filter{{Column: "status", Op: "eq", Value: "published"}})
	c := serializer.SerializeKey("Select", []filter{{Column: "status", Op: "eq", Value: "draft"}})

	if a != b {
		t.Errorf("identical filters produced different keys: %v vs %v", a, b)
	}
	if a == c {
		t.Errorf("different filters collided on key %v", a)
	}
}

func TestDefaultKeySerializer_JSONFallback(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	got := serializer.SerializeKey("Select", complex(1, 2))
	if got == "Select" || !strings.Contains(got, KeySeparator) {
		t.Errorf("expected serialized complex value, got %v", got)
	}

	// Channels cannot be JSON-marshaled; the serializer must still return
	// something stable instead of panicking.
	ch := make(chan int)
	got = serializer.SerializeKey("Select", ch)
	if !strings.Contains(got, "fallback:") {
		t.Errorf("expected type fallback for channel, got %v", got)
	}
}
