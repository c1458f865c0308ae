package cache

import (
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackClone deep-copies a row through a msgpack round trip. Only fields
// msgpack encodes survive, so rows should keep their state in exported fields.
func MsgpackClone[T any](row T) (T, error) {
	var out T
	data, err := msgpack.Marshal(row)
	if err != nil {
		return out, err
	}
	if err := msgpack.Unmarshal(data, &out); err != nil {
		return out, err
	}
	return out, nil
}
