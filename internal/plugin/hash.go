package plugin

import (
	"encoding/json"
	"hash/fnv"
)

func fnvSum(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return h.Sum64()
}

// rawConfigHash fingerprints a plugin's raw JSON config so reconcile can
// tell real changes from formatting noise. Decoding and re-encoding
// normalizes whitespace and map key order; invalid JSON is hashed as-is.
func rawConfigHash(raw json.RawMessage) uint64 {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fnvSum(raw)
	}
	norm, err := json.Marshal(v)
	if err != nil {
		return fnvSum(raw)
	}
	return fnvSum(norm)
}
