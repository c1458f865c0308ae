package cache

import (
	"strings"
	"testing"
	"time"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestDefaultKeySerializer_BasicTypes(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		args []any
		want string
	}{
		{
			name: "no parts",
			args: []any{},
			want: "0",
		},
		{
			name: "single int",
			args: []any{42},
			want: joinWithSeparator("1", "n:42"),
		},
		{
			name: "multiple basic types",
			args: []any{1, "hello", true, 3.14},
			want: joinWithSeparator("4", "n:1", `s:"hello"`, "b:true", "f:3.14"),
		},
		{
			name: "string containing the separator",
			args: []any{"a::b"},
			want: joinWithSeparator("1", `s:"a::b"`),
		},
		{
			name: "unsigned int",
			args: []any{uint16(7)},
			want: joinWithSeparator("1", "n:7"),
		},
		{
			name: "whole float",
			args: []any{1.0},
			want: joinWithSeparator("1", "f:1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_NilValues(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		args []any
		want string
	}{
		{
			name: "nil interface",
			args: []any{nil},
			want: joinWithSeparator("1", "nil"),
		},
		{
			name: "nil pointer",
			args: []any{(*int)(nil)},
			want: joinWithSeparator("1", "nil"),
		},
		{
			name: "nil slice",
			args: []any{([]int)(nil)},
			want: joinWithSeparator("1", "slice:nil"),
		},
		{
			name: "nil map",
			args: []any{(map[string]int)(nil)},
			want: joinWithSeparator("1", "map:nil"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Collections(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	tests := []struct {
		name string
		args []any
		want string
	}{
		{
			name: "empty slice",
			args: []any{[]int{}},
			want: joinWithSeparator("1", "slice[0]:{}"),
		},
		{
			name: "int slice",
			args: []any{[]int{1, 2, 3}},
			want: joinWithSeparator("1", "slice[3]:{n:1,n:2,n:3}"),
		},
		{
			name: "string slice",
			args: []any{[]string{"alice", "bob"}},
			want: joinWithSeparator("1", `slice[2]:{s:"alice",s:"bob"}`),
		},
		{
			name: "int array",
			args: []any{[3]int{1, 2, 3}},
			want: joinWithSeparator("1", "array[3]:{n:1,n:2,n:3}"),
		},
		{
			name: "byte slice",
			args: []any{[]byte{0xde, 0xad}},
			want: joinWithSeparator("1", "x:dead"),
		},
		{
			name: "byte array",
			args: []any{[2]byte{0xbe, 0xef}},
			want: joinWithSeparator("1", "x:beef"),
		},
		{
			name: "map sorted by pair",
			args: []any{map[string]int{"count": 10, "age": 25}},
			want: joinWithSeparator("1", `map[2]:{s:"age"=n:25,s:"count"=n:10}`),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := serializer.SerializeKey(tt.args...)
			if got != tt.want {
				t.Errorf("SerializeKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultKeySerializer_Structs(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	type tenantKey struct {
		Tenant string
		ID     int64
		secret string
	}

	got := serializer.SerializeKey(tenantKey{Tenant: "acme", ID: 9, secret: "x"})
	want := joinWithSeparator("1", `struct:{Tenant:s:"acme",ID:n:9}`)
	if got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Time(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	local := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	utc := local.UTC()

	if serializer.SerializeKey(local) != serializer.SerializeKey(utc) {
		t.Error("the same instant in different zones should serialize identically")
	}

	want := joinWithSeparator("1", "t:2024-01-02T02:04:05Z")
	if got := serializer.SerializeKey(local); got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Pointers(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	value := 42
	if got, want := serializer.SerializeKey(&value), joinWithSeparator("1", "n:42"); got != want {
		t.Errorf("SerializeKey() = %v, want %v", got, want)
	}
}

func TestDefaultKeySerializer_Fallback(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	ch := make(chan int)
	key := serializer.SerializeKey(ch)

	if want := joinWithSeparator("1", "fallback:chan int"); key != want {
		t.Errorf("SerializeKey() = %v, want %v", key, want)
	}
}

func TestDefaultKeySerializer_Stability(t *testing.T) {
	serializer := NewDefaultKeySerializer()

	args := []any{1, "hello", []int{1, 2, 3}, map[string]int{"a": 1, "b": 2}}

	key1 := serializer.SerializeKey(args...)
	key2 := serializer.SerializeKey(args...)

	if key1 != key2 {
		t.Errorf("Key serialization should be stable across runs: %v != %v", key1, key2)
	}
}

func BenchmarkDefaultKeySerializer(b *testing.B) {
	serializer := NewDefaultKeySerializer()
	args := []any{int64(1), "benchmark", []byte{1, 2, 3}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		serializer.SerializeKey(args...)
	}
}
