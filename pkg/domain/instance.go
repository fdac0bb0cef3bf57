package domain

import (
	"crypto/md5"
	"encoding/binary"
	"sync"
)

// KeyHash computes the RTPS built-in keyhash for keyBytes (spec section 8
// scenario 3): key material up to 16 bytes is carried verbatim,
// zero-padded; longer key material is folded through MD5. This is the
// wire-level 16-byte value attached to a sample, distinct from the locally
// stable InstanceHandle below — two different serialized keys can share a
// keyhash once MD5-folded (scenario 3's deliberate MD5 collision blocks),
// but must never share an instance handle.
func KeyHash(keyBytes []byte) [16]byte {
	var out [16]byte
	if len(keyBytes) <= 16 {
		copy(out[:], keyBytes)
		return out
	}
	return md5.Sum(keyBytes)
}

// InstanceHandle identifies an equivalence class of samples under the key
// (spec section 3): "a stable instance handle computed from (topic-class,
// serialized-key-bytes). Equal keys across compatible topics share a
// handle." Handles are assigned sequentially per distinct (topic-class,
// key-bytes) pair rather than derived from KeyHash, so an MD5 collision
// between two distinct keys (scenario 3) never collapses their handles.
type InstanceHandle [16]byte

// InstanceRegistry hands out InstanceHandles, the table every Participant
// shares across its topics and readers/writers so that "equal keys across
// compatible topics share a handle" (scenario 2: two topics of the same key
// type, the same key value on each, read through different readers, yield
// the same handle).
type InstanceRegistry struct {
	mu    sync.Mutex
	next  uint64
	byKey map[string]InstanceHandle
}

// NewInstanceRegistry constructs an empty registry.
func NewInstanceRegistry() *InstanceRegistry {
	return &InstanceRegistry{byKey: make(map[string]InstanceHandle)}
}

// Handle returns the stable handle for (keyTypeClass, keyBytes), creating
// one on first sight. keyTypeClass identifies the key's type, not the
// topic name, so two topics declared over the same key type share the
// instance space (spec section 3's "Equal keys across compatible topics
// share a handle").
func (r *InstanceRegistry) Handle(keyTypeClass string, keyBytes []byte) InstanceHandle {
	lookup := keyTypeClass + "\x00" + string(keyBytes)

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.byKey[lookup]; ok {
		return h
	}
	r.next++
	var h InstanceHandle
	binary.BigEndian.PutUint64(h[8:], r.next)
	r.byKey[lookup] = h
	return h
}
