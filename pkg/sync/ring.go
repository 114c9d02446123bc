package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over a set of named entries
type ring[V any] struct {
	hashRing *treemap.Map

	// min is the value of the lowest hash in hashRing, used when a key hashes
	// past the last point. treemap.Map.Min() is O(log n).
	min V
}

// newRing returns a consistent hash ring where each entry is placed at
// replicationFactor points.
func newRing[V any](entries map[string]V, replicationFactor uint) *ring[V] {
	hashRing := treemap.NewWith(utils.Int64Comparator)

	indexBytes := make([]byte, 4)
	keyHashBytes := make([]byte, 8)
	for k, v := range entries {
		keyHash, _ := murmur3.Sum128([]byte(k))
		binary.LittleEndian.PutUint64(keyHashBytes, keyHash)

		for i := uint32(0); i < uint32(replicationFactor); i++ {
			binary.LittleEndian.PutUint32(indexBytes, i)

			hasher := murmur3.New128()
			hasher.Write(keyHashBytes)
			hasher.Write(indexBytes)
			hash, _ := hasher.Sum128()
			hashRing.Put(int64(hash), v)
		}
	}

	r := &ring[V]{hashRing: hashRing}
	if _, minValue := hashRing.Min(); minValue != nil {
		r.min = minValue.(V)
	}
	return r
}

// shard consistently hashes the key and returns the owning entry
func (r *ring[V]) shard(key []byte) V {
	raw, _ := murmur3.Sum128(key)
	_, owner := r.hashRing.Ceiling(int64(raw))
	if owner != nil {
		return owner.(V)
	}
	return r.min
}
