// Package crypto implements the Cryptographic Transform (spec section 4.8,
// component I): symmetric AES-GCM/GMAC encode/decode of RTPS submessages,
// serialized payloads, and whole RTPS messages, with per-receiver
// authentication tags and session-key derivation. Keys come from
// pkg/security/keymaterial; this package is stateless beyond the per-session
// IV counters it mutates in place on the caller-supplied
// keymaterial.SessionKeyMaterial.
//
// All buffer manipulation goes through pkg/wire's Reader/Writer, the
// tainted/trusted split spec section 4.8 calls for directly ("input-side
// reads carry a base pointer and a hard end pointer, every read
// bounds-checks first; the output-side builder owns its buffer and grows
// it").
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/bitset"
	"github.com/ddsgo/cyclone/pkg/security/keymaterial"
	"github.com/ddsgo/cyclone/pkg/wire"
)

// Submessage ids (spec section 6).
const (
	SecPrefixID    = 0x31
	SecBodyID      = 0x30
	SecPostfixID   = 0x32
	SrtpsPrefixID  = 0x33
	SrtpsPostfixID = 0x34
)

// DefaultRekeyThreshold is the number of plaintext bytes a session key may
// encode before Encode rotates to a new session (spec section 4.8 step 2;
// spec section 9 Open Question: "the exact rekey threshold in the encode
// path... is not in this excerpt"). Decision recorded in DESIGN.md: default
// to 2^30 bytes (1 GiB) per session, a conservative bound well under the
// ~64 GiB point at which AES-GCM's authentication security bound starts to
// erode for a single (key, nonce-space) pair. Override per-Transform for
// tests that want to exercise rotation without encoding a gigabyte.
const DefaultRekeyThreshold = 1 << 30

const macSize = 16

// Transform performs the encode/decode procedure of spec section 4.8.
// Stateless itself; all mutable per-session state lives in the
// keymaterial.SessionKeyMaterial passed to each call.
type Transform struct {
	// RekeyThreshold overrides DefaultRekeyThreshold; zero means use the
	// default.
	RekeyThreshold uint64
}

func (t *Transform) rekeyThreshold() uint64 {
	if t.RekeyThreshold == 0 {
		return DefaultRekeyThreshold
	}
	return t.RekeyThreshold
}

// Prefix is the parsed SEC_PREFIX submessage.
type Prefix struct {
	Kind        keymaterial.TransformKind
	TransformID uint32
	SessionID   uint32
	IVSuffix    uint64
}

// ivNonce is the 12-byte AES-GCM nonce: session id (high 4 bytes) followed
// by the IV suffix (low 8 bytes), spec section 4.8: "the session id is the
// high 4 bytes of the 12-byte IV; the IV suffix is the low 8."
type ivNonce [12]byte

func (n ivNonce) bytes() []byte { return n[:] }

func (p Prefix) nonce() ivNonce {
	var n ivNonce
	binary.BigEndian.PutUint32(n[0:4], p.SessionID)
	binary.BigEndian.PutUint64(n[4:12], p.IVSuffix)
	return n
}

// ReceiverMAC is one (key_id, mac) pair from a SEC_POSTFIX submessage.
type ReceiverMAC struct {
	KeyID uint32
	MAC   [macSize]byte
}

// Encoder builds one encoded message incrementally over receivers: the
// first call to Finish produces the full message for zero receiver-specific
// macs; each call to AddReceiver appends exactly one more (key_id, mac)
// pair, matching spec section 4.8's "encoding is incremental over
// receivers... subsequent calls take the partial output and append one
// more (key_id, mac) pair per call."
type Encoder struct {
	prefix     Prefix
	body       []byte // ciphertext (GCM) or plaintext (GMAC)
	commonMAC  [macSize]byte
	masterSalt []byte
	receivers  []ReceiverMAC
	sent       bitset.TinyBitset // receiverIndex values already added, guards duplicates
}

// Encode runs steps 1-5 of spec section 4.8's shared encode procedure:
// session lookup, threshold-driven rekey, IV increment, PREFIX, and
// body+common_mac. transformID identifies the (local, remote) endpoint pair
// for the receiving side's PreprocessSecureSubmsg to resolve; it is opaque
// to this package. Call AddReceiver once per receiver requiring origin
// authentication, then Finish.
//
// If master.Kind is keymaterial.TransformNone, Encode returns an Encoder
// whose Finish reproduces plaintext verbatim with no framing, per step 1
// ("if transformation_kind is NONE, output a copy of the input and
// return").
func (t *Transform) Encode(master *keymaterial.MasterKeyMaterial, session *keymaterial.SessionKeyMaterial, transformID uint32, plaintext []byte) (*Encoder, error) {
	if master == nil {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "crypto: encode requires master key material")
	}
	if master.Kind == keymaterial.TransformNone {
		return &Encoder{prefix: Prefix{Kind: keymaterial.TransformNone}, body: append([]byte(nil), plaintext...)}, nil
	}

	if session.SenderKey == nil || uint64(len(plaintext))+session.EncodedSince > t.rekeyThreshold() {
		if err := rotateSession(master, session); err != nil {
			return nil, err
		}
	}
	session.IVSuffix++
	session.EncodedSince += uint64(len(plaintext))

	prefix := Prefix{
		Kind:        master.Kind,
		TransformID: transformID,
		SessionID:   session.SessionID,
		IVSuffix:    session.IVSuffix,
	}
	nonce := prefix.nonce()

	block, err := aes.NewCipher(session.SenderKey)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: building AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: building AES-GCM")
	}

	e := &Encoder{prefix: prefix, masterSalt: master.Salt}
	if master.Kind.IsGMAC() {
		tagged := gcm.Seal(nil, nonce[:], nil, plaintext)
		copy(e.commonMAC[:], tagged)
		e.body = append([]byte(nil), plaintext...)
	} else {
		sealed := gcm.Seal(nil, nonce[:], plaintext, nil)
		e.body = sealed[:len(sealed)-macSize]
		copy(e.commonMAC[:], sealed[len(sealed)-macSize:])
	}
	return e, nil
}

// rotateSession increments the session id and derives a fresh sender
// session key, spec section 4.8 step 2: "derive a new session key via
// HMAC-SHA256(master_key, 'SessionKey' || master_salt || BE32(session_id))
// truncated to the kind's key size."
func rotateSession(master *keymaterial.MasterKeyMaterial, session *keymaterial.SessionKeyMaterial) error {
	session.SessionID++
	session.EncodedSince = 0
	key, err := deriveSessionKey(master.SenderKey, master.Salt, session.SessionID, master.Kind.KeySize(), "SessionKey")
	if err != nil {
		return err
	}
	session.SenderKey = key
	session.ReceiverKeys = make(map[uint32][]byte)
	return nil
}

func deriveSessionKey(masterKey, salt []byte, sessionID uint32, keySize int, label string) ([]byte, error) {
	if len(masterKey) == 0 {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "crypto: empty master key")
	}
	mac := hmac.New(sha256.New, masterKey)
	mac.Write([]byte(label))
	mac.Write(salt)
	var be [4]byte
	binary.BigEndian.PutUint32(be[:], sessionID)
	mac.Write(be[:])
	sum := mac.Sum(nil)
	if keySize <= 0 || keySize > len(sum) {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "crypto: unsupported derived key size %d", keySize)
	}
	return sum[:keySize], nil
}

// AddReceiver derives a receiver-specific session key via
// HMAC-SHA256(masterRecvKey, "SessionReceiverKey" || master_salt ||
// BE32(session_id)) and computes an AES-GCM authentication tag over
// common_mac only, appending the (keyID, mac) pair (spec section 4.8 step
// 6). A no-op producing no pair when the transform kind is NONE.
//
// receiverIndex is the caller's ordinal position for this receiver within
// the writer's closed set of matched readers (spec section 4.8 step 6: "at
// most a few dozen readers share a writer") — not keyID, which is the
// wire-visible key identifier. e.sent tracks which ordinals have already
// been added so a caller driving AddReceiver from a matched-reader loop
// cannot silently double-append the same receiver's (key_id, mac) pair
// into the POSTFIX, which would desynchronize the decode side's receiver
// count.
func (e *Encoder) AddReceiver(receiverIndex uint32, keyID uint32, masterRecvKey []byte) error {
	if e.prefix.Kind == keymaterial.TransformNone {
		return nil
	}
	if e.sent.Contains(receiverIndex) {
		return ddserror.New(ddserror.BadParameter, "crypto: receiver index %d already added to this encoder", receiverIndex)
	}
	recvKey, err := deriveSessionKey(masterRecvKey, e.masterSalt, e.prefix.SessionID, e.prefix.Kind.KeySize(), "SessionReceiverKey")
	if err != nil {
		return err
	}
	block, err := aes.NewCipher(recvKey)
	if err != nil {
		return ddserror.Wrap(ddserror.CipherError, err, "crypto: building receiver AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return ddserror.Wrap(ddserror.CipherError, err, "crypto: building receiver AES-GCM")
	}
	nonce := e.prefix.nonce()
	tag := gcm.Seal(nil, nonce[:], nil, e.commonMAC[:])

	var rm ReceiverMAC
	rm.KeyID = keyID
	copy(rm.MAC[:], tag)
	e.receivers = append(e.receivers, rm)
	e.sent.Insert(receiverIndex)
	return nil
}

// Finish serializes PREFIX, BODY, and POSTFIX (with every receiver mac
// added so far) into the wire format of spec section 4.8.
func (e *Encoder) Finish() []byte {
	if e.prefix.Kind == keymaterial.TransformNone {
		return append([]byte(nil), e.body...)
	}

	w := wire.NewWriter(binary.BigEndian, len(e.body)+64)
	w.PutBE32(uint32(e.prefix.Kind))
	w.PutBE32(e.prefix.TransformID)
	w.PutBE32(e.prefix.SessionID)
	w.PutBE64(e.prefix.IVSuffix)

	w.PutBE32(uint32(len(e.body)))
	w.PutBytes(e.body)

	w.PutBytes(e.commonMAC[:])
	w.PutBE32(uint32(len(e.receivers)))
	for _, rm := range e.receivers {
		w.PutBE32(rm.KeyID)
		w.PutBytes(rm.MAC[:])
	}
	return w.Bytes()
}

// Decoded is the result of a successful Decode.
type Decoded struct {
	Prefix    Prefix
	Plaintext []byte
}

// Decode is the inverse of Encode: a parsing-first pipeline that tolerates
// untrusted input (spec section 4.8 "Decode"). session must be the
// receiver's own session key material for the sender identified by
// prefix.SessionID (callers derive it via rotateSession-equivalent lookup
// keyed by transform_id before calling Decode); recvKeyID/recvMasterKey are
// non-zero/non-nil only when origin authentication is configured for this
// endpoint pair, in which case the postfix's receiver-specific mac for
// recvKeyID is located and verified before the common mac.
func (t *Transform) Decode(master *keymaterial.MasterKeyMaterial, session *keymaterial.SessionKeyMaterial, encoded []byte, recvKeyID uint32, recvMasterKey []byte) (*Decoded, error) {
	if master == nil {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "crypto: decode requires master key material")
	}
	if master.Kind == keymaterial.TransformNone {
		return &Decoded{Plaintext: append([]byte(nil), encoded...)}, nil
	}

	r := wire.NewReader(encoded, binary.BigEndian)
	kindVal, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	kind := keymaterial.TransformKind(kindVal)
	if kind != master.Kind {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "crypto: advertised kind %v contradicts configured %v", kind, master.Kind)
	}
	transformID, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	sessionID, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	ivSuffix, err := r.BE64()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	prefix := Prefix{Kind: kind, TransformID: transformID, SessionID: sessionID, IVSuffix: ivSuffix}

	bodyLen, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated BODY length")
	}
	body, err := r.Bytes(int(bodyLen))
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: BODY length %d overflows buffer", bodyLen)
	}

	commonMACBytes, err := r.Bytes(macSize)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated common_mac")
	}
	var commonMAC [macSize]byte
	copy(commonMAC[:], commonMACBytes)

	nRecv, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated receiver mac count")
	}
	var matched *ReceiverMAC
	for i := uint32(0); i < nRecv; i++ {
		keyID, err := r.BE32()
		if err != nil {
			return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated receiver mac entry")
		}
		macBytes, err := r.Bytes(macSize)
		if err != nil {
			return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated receiver mac entry")
		}
		if recvMasterKey != nil && keyID == recvKeyID {
			var m [macSize]byte
			copy(m[:], macBytes)
			matched = &ReceiverMAC{KeyID: keyID, MAC: m}
		}
	}

	sessionKey, err := deriveSessionKeyForDecode(master, session, sessionID, "SessionKey")
	if err != nil {
		return nil, err
	}

	if recvMasterKey != nil {
		if matched == nil {
			return nil, ddserror.New(ddserror.InvalidReceiverSign, "crypto: no receiver-specific mac for key id %d", recvKeyID)
		}
		recvKey, err := deriveSessionKey(recvMasterKey, master.Salt, sessionID, kind.KeySize(), "SessionReceiverKey")
		if err != nil {
			return nil, err
		}
		block, err := aes.NewCipher(recvKey)
		if err != nil {
			return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: building receiver AES cipher")
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: building receiver AES-GCM")
		}
		if _, err := gcm.Open(nil, prefix.nonce().bytes(), matched.MAC[:], commonMAC[:]); err != nil {
			return nil, ddserror.Wrap(ddserror.InvalidReceiverSign, err, "crypto: receiver-specific mac verification failed")
		}
	}

	block, err := aes.NewCipher(sessionKey)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: building AES cipher")
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: building AES-GCM")
	}

	var plaintext []byte
	if kind.IsGMAC() {
		expected := gcm.Seal(nil, prefix.nonce().bytes(), nil, body)
		if subtle.ConstantTimeCompare(expected, commonMAC[:]) != 1 {
			return nil, ddserror.New(ddserror.CipherError, "crypto: GMAC verification failed")
		}
		plaintext = append([]byte(nil), body...)
	} else {
		sealed := append(append([]byte(nil), body...), commonMAC[:]...)
		pt, err := gcm.Open(nil, prefix.nonce().bytes(), sealed, nil)
		if err != nil {
			return nil, ddserror.Wrap(ddserror.CipherError, err, "crypto: GCM authentication failed")
		}
		plaintext = pt
	}

	return &Decoded{Prefix: prefix, Plaintext: plaintext}, nil
}

// deriveSessionKeyForDecode mirrors rotateSession on the receive side:
// session.SenderKey here actually holds the *decoder's* cached derivation
// of the sender's session key, rederived whenever sessionID advances.
func deriveSessionKeyForDecode(master *keymaterial.MasterKeyMaterial, session *keymaterial.SessionKeyMaterial, sessionID uint32, label string) ([]byte, error) {
	if session.SenderKey != nil && session.SessionID == sessionID {
		return session.SenderKey, nil
	}
	key, err := deriveSessionKey(master.SenderKey, master.Salt, sessionID, master.Kind.KeySize(), label)
	if err != nil {
		return nil, err
	}
	session.SessionID = sessionID
	session.SenderKey = key
	return key, nil
}

// PreprocessSecureSubmsg inspects only the PREFIX of a secure submessage
// and classifies it, per spec section 4.8: "returns a classification
// (writer-submessage vs reader-submessage) plus the local/remote endpoint
// handles implied by transform_id." The actual transform_id -> endpoint
// mapping is owned by the caller (the domain layer's proxy writer/reader
// tables), so this package takes it as a Resolver rather than embedding
// endpoint-table knowledge here.
type SubmsgClass int

const (
	ClassUnknown SubmsgClass = iota
	ClassWriterSubmessage
	ClassReaderSubmessage
)

// Resolver maps a transform_id to its submessage classification and the
// (local, remote) endpoint GUIDs it protects.
type Resolver interface {
	Resolve(transformID uint32) (class SubmsgClass, local, remote [16]byte, err error)
}

// PreprocessSecureSubmsg parses the PREFIX and delegates classification to
// resolver.
func PreprocessSecureSubmsg(buf []byte, resolver Resolver) (Prefix, SubmsgClass, [16]byte, [16]byte, error) {
	r := wire.NewReader(buf, binary.BigEndian)
	kindVal, err := r.BE32()
	if err != nil {
		return Prefix{}, ClassUnknown, [16]byte{}, [16]byte{}, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	transformID, err := r.BE32()
	if err != nil {
		return Prefix{}, ClassUnknown, [16]byte{}, [16]byte{}, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	sessionID, err := r.BE32()
	if err != nil {
		return Prefix{}, ClassUnknown, [16]byte{}, [16]byte{}, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	ivSuffix, err := r.BE64()
	if err != nil {
		return Prefix{}, ClassUnknown, [16]byte{}, [16]byte{}, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "crypto: truncated PREFIX")
	}
	prefix := Prefix{Kind: keymaterial.TransformKind(kindVal), TransformID: transformID, SessionID: sessionID, IVSuffix: ivSuffix}

	class, local, remote, err := resolver.Resolve(transformID)
	if err != nil {
		return prefix, ClassUnknown, [16]byte{}, [16]byte{}, err
	}
	return prefix, class, local, remote, nil
}
