package cache

import (
	"github.com/cespare/xxhash/v2"
)

// Key identifies one row of a table by its ordered primary key values.
// Keys are immutable and compare by value.
type Key struct {
	parts []any
	canon string
	hash  uint64
}

// KeyFunc extracts the primary key of a row. The mapping layer owns the
// component order.
type KeyFunc[T any] func(row T) Key

var defaultSerializer = NewDefaultKeySerializer()

// NewKey builds a key from primary key component values using the default serializer.
func NewKey(parts ...any) Key {
	return NewKeyWith(defaultSerializer, parts...)
}

// NewKeyWith builds a key using a custom serializer.
func NewKeyWith(serializer KeySerializer, parts ...any) Key {
	canon := serializer.SerializeKey(parts...)
	return Key{
		parts: append([]any(nil), parts...),
		canon: canon,
		hash:  xxhash.Sum64String(canon),
	}
}

// Len returns the number of key components.
func (k Key) Len() int { return len(k.parts) }

// Parts returns a copy of the key components.
func (k Key) Parts() []any { return append([]any(nil), k.parts...) }

// Part returns the i-th component.
func (k Key) Part(i int) any { return k.parts[i] }

// Hash returns the xxhash64 of the canonical form.
func (k Key) Hash() uint64 { return k.hash }

// String returns the canonical form. Caches use it as the map key.
func (k Key) String() string { return k.canon }

// IsZero reports whether k was never constructed.
func (k Key) IsZero() bool { return k.canon == "" }

// Equal reports whether both keys hold value-equal components.
func (k Key) Equal(other Key) bool {
	return k.hash == other.hash && k.canon == other.canon
}
