package config

import (
	"encoding/json"
	"hash/fnv"
)

func hashBytes(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// jsonValueHash hashes a JSON fragment by decoded value rather than by
// bytes, so reformatting or reordered keys compare equal. Fragments that
// fail to decode are compared byte-wise instead.
func jsonValueHash(raw json.RawMessage) uint64 {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return hashBytes(raw)
	}
	norm, err := json.Marshal(v)
	if err != nil {
		return hashBytes(raw)
	}
	return hashBytes(norm)
}
