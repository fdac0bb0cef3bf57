// Package keymaterial implements the Key Material Store (spec section 4.9,
// component H): per-participant master and session key material, guarded by
// a mutex per participant as spec section 5 prescribes ("key material
// store: mutex per participant; reads under a read lock, updates under a
// write lock").
package keymaterial

import (
	"sync"

	"github.com/ddsgo/cyclone/internal/ddserror"
)

// TransformKind selects the cryptographic mode, spec section 4.8's "NONE /
// AES{128,256}-{GCM,GMAC}".
type TransformKind int

const (
	TransformNone TransformKind = iota
	Transform128GCM
	Transform256GCM
	Transform128GMAC
	Transform256GMAC
)

// KeySize returns the AES key size in bytes for kind, or 0 for TransformNone.
func (k TransformKind) KeySize() int {
	switch k {
	case Transform128GCM, Transform128GMAC:
		return 16
	case Transform256GCM, Transform256GMAC:
		return 32
	default:
		return 0
	}
}

// IsGMAC reports whether kind authenticates-only (GMAC) rather than
// encrypting (GCM).
func (k TransformKind) IsGMAC() bool {
	return k == Transform128GMAC || k == Transform256GMAC
}

// MasterKeyMaterial is the long-lived key pair a participant installs for
// one peer (or for itself, as sender), from which session keys are derived.
// Never used directly to encrypt; HMAC-derivation always goes through a
// SessionKeyMaterial first (spec section 4.8 step 2).
type MasterKeyMaterial struct {
	Kind          TransformKind
	Salt          []byte
	SenderKeyID   uint32
	SenderKey     []byte
	ReceiverKeyID uint32 // 0 if no receiver-specific key installed
	ReceiverKey   []byte
}

// Clone deep-copies m.
func (m *MasterKeyMaterial) Clone() *MasterKeyMaterial {
	if m == nil {
		return nil
	}
	out := *m
	out.Salt = append([]byte(nil), m.Salt...)
	out.SenderKey = append([]byte(nil), m.SenderKey...)
	out.ReceiverKey = append([]byte(nil), m.ReceiverKey...)
	return &out
}

// SessionKeyMaterial is the per-(local endpoint) or per-(local endpoint,
// remote endpoint) rolling key state: a session id and IV-suffix counter
// driving the rekey-on-threshold rule of spec section 4.8 step 2, plus the
// currently-derived sender and, if origin authentication is enabled,
// receiver-specific session keys.
type SessionKeyMaterial struct {
	SessionID    uint32
	IVSuffix     uint64
	SenderKey    []byte            // derived from master via HMAC-SHA256("SessionKey" || ...)
	EncodedSince uint64            // bytes encoded since the last rekey, drives the threshold check
	ReceiverKeys map[uint32][]byte // key_id -> derived receiver-specific session key
}

// ParticipantKeyMaterial holds everything one local participant needs:
// - Own: this participant's master key material (used as sender).
// - Peers: per-peer-participant P2P master key material, keyed by the
//   remote participant's GUID, for RTPS-message-level protection.
// - Endpoints: per local endpoint GUID, the rolling session key material
//   for submessage/payload protection; per (local, remote) endpoint pair,
//   additional receiver-specific key material (spec section 4.9's "per
//   local endpoint: a session_key_material with counter; per (local
//   endpoint, remote endpoint) pair: additional receiver-specific key
//   material").
type ParticipantKeyMaterial struct {
	Own       *MasterKeyMaterial
	Peers     map[[16]byte]*MasterKeyMaterial
	Endpoints map[[16]byte]*SessionKeyMaterial
}

func newParticipantKeyMaterial() *ParticipantKeyMaterial {
	return &ParticipantKeyMaterial{
		Peers:     make(map[[16]byte]*MasterKeyMaterial),
		Endpoints: make(map[[16]byte]*SessionKeyMaterial),
	}
}

// Store is the mutex-guarded, per-participant key material table: "mutex
// per participant; reads under a read lock, updates under a write lock"
// (spec section 5). One Store instance is shared process-wide; the lock
// granularity is per participant, not global, so unrelated participants'
// key material updates never contend with each other.
type Store struct {
	mu           sync.Mutex
	participants map[[16]byte]*participantEntry
}

type participantEntry struct {
	mu  sync.RWMutex
	key *ParticipantKeyMaterial
}

// New constructs an empty Store.
func New() *Store {
	return &Store{participants: make(map[[16]byte]*participantEntry)}
}

func (s *Store) entry(participant [16]byte) *participantEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.participants[participant]
	if !ok {
		e = &participantEntry{key: newParticipantKeyMaterial()}
		s.participants[participant] = e
	}
	return e
}

// SetOwn installs participant's own master key material (used when this
// participant is the sender).
func (s *Store) SetOwn(participant [16]byte, m *MasterKeyMaterial) {
	e := s.entry(participant)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.key.Own = m.Clone()
}

// SetPeer installs the P2P master key material this participant uses to
// protect RTPS messages addressed to peer.
func (s *Store) SetPeer(participant, peer [16]byte, m *MasterKeyMaterial) {
	e := s.entry(participant)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.key.Peers[peer] = m.Clone()
}

// Peer returns a clone of the P2P master key material for peer, or
// ddserror.NotFound if none is installed.
func (s *Store) Peer(participant, peer [16]byte) (*MasterKeyMaterial, error) {
	e := s.entry(participant)
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.key.Peers[peer]
	if !ok {
		return nil, ddserror.New(ddserror.NotFound, "keymaterial: no peer key material for participant")
	}
	return m.Clone(), nil
}

// SessionFor returns the session key material for a local endpoint,
// creating an empty one (session id 0, fresh counter) on first access.
func (s *Store) SessionFor(participant [16]byte, endpoint [16]byte) *SessionKeyMaterial {
	e := s.entry(participant)
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.key.Endpoints[endpoint]
	if !ok {
		sess = &SessionKeyMaterial{ReceiverKeys: make(map[uint32][]byte)}
		e.key.Endpoints[endpoint] = sess
	}
	return sess
}

// Own returns a clone of participant's own master key material, or
// ddserror.NotFound if none is installed.
func (s *Store) Own(participant [16]byte) (*MasterKeyMaterial, error) {
	e := s.entry(participant)
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.key.Own == nil {
		return nil, ddserror.New(ddserror.NotFound, "keymaterial: no own key material for participant")
	}
	return e.key.Own.Clone(), nil
}

// Delete removes all key material for participant, called on participant
// deletion.
func (s *Store) Delete(participant [16]byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, participant)
}
