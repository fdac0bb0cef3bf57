// Package keyexchange implements the Key Exchange half of spec section 4.9
// (component J): serializing and deserializing `DDS:Crypto:AES-GCM-GMAC`
// key-material tokens carried in the single binary property named
// `dds.cryp.keymat`.
package keyexchange

import (
	"bytes"
	"encoding/binary"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/security/keymaterial"
	"github.com/ddsgo/cyclone/pkg/wire"
)

// ClassID is the DDS-Security plugin class id carried alongside every token
// this package produces (spec section 6, "Token format").
const ClassID = "DDS:Crypto:AES-GCM-GMAC"

// PropertyName is the binary property name a token's serialized bytes are
// stored under.
const PropertyName = "dds.cryp.keymat"

// Token is one serialized key-material exchange token: class_id plus the
// binary property payload.
type Token struct {
	ClassID string
	Value   []byte
}

// EncodeMasterKeyMaterial serializes m into the binary property format of
// spec section 4.9:
//
//	transformation_kind(4) | salt_len(4) | salt | sender_key_id(4) | key_len(4) | key
//	  | receiver_specific_key_id(4) [ | key_len(4) | recv_key ]
//
// The trailing receiver-specific key length/bytes are present only when
// m.ReceiverKeyID is nonzero.
func EncodeMasterKeyMaterial(m *keymaterial.MasterKeyMaterial) ([]byte, error) {
	if m == nil {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "keyexchange: nil master key material")
	}
	if len(m.SenderKey) == 0 || bytes.Equal(m.SenderKey, make([]byte, len(m.SenderKey))) {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "keyexchange: sender key is empty or all-zero")
	}

	w := wire.NewWriter(binary.BigEndian, 32+len(m.Salt)+len(m.SenderKey)+len(m.ReceiverKey))
	w.PutBE32(uint32(m.Kind))
	w.PutBE32(uint32(len(m.Salt)))
	w.PutBytes(m.Salt)
	w.PutBE32(m.SenderKeyID)
	w.PutBE32(uint32(len(m.SenderKey)))
	w.PutBytes(m.SenderKey)
	w.PutBE32(m.ReceiverKeyID)
	if m.ReceiverKeyID != 0 {
		if len(m.ReceiverKey) == 0 || bytes.Equal(m.ReceiverKey, make([]byte, len(m.ReceiverKey))) {
			return nil, ddserror.New(ddserror.InvalidCryptoArgument, "keyexchange: receiver key is empty or all-zero")
		}
		w.PutBE32(uint32(len(m.ReceiverKey)))
		w.PutBytes(m.ReceiverKey)
	}
	return w.Bytes(), nil
}

// DecodeMasterKeyMaterial is the inverse of EncodeMasterKeyMaterial, used by
// set_remote_*_tokens to install a peer's advertised key material.
// Validation rejects malformed kinds, length mismatches, and all-zero key
// bytes, matching spec section 4.9's "validation rejects malformed kinds,
// length mismatches, and all-zero key bytes."
func DecodeMasterKeyMaterial(buf []byte) (*keymaterial.MasterKeyMaterial, error) {
	r := wire.NewReader(buf, binary.BigEndian)

	kindVal, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: truncated transformation_kind")
	}
	kind := keymaterial.TransformKind(kindVal)
	if kind < keymaterial.TransformNone || kind > keymaterial.Transform256GMAC {
		return nil, ddserror.New(ddserror.InvalidCryptoToken, "keyexchange: unknown transformation_kind %d", kindVal)
	}

	saltLen, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: truncated salt_len")
	}
	salt, err := r.Bytes(int(saltLen))
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: salt_len %d overflows buffer", saltLen)
	}

	senderKeyID, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: truncated sender_key_id")
	}
	senderKeyLen, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: truncated sender key_len")
	}
	senderKey, err := r.Bytes(int(senderKeyLen))
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: sender key_len %d overflows buffer", senderKeyLen)
	}
	if kind != keymaterial.TransformNone {
		if int(senderKeyLen) != kind.KeySize() {
			return nil, ddserror.New(ddserror.InvalidCryptoToken, "keyexchange: sender key length %d does not match kind %v", senderKeyLen, kind)
		}
		if bytes.Equal(senderKey, make([]byte, len(senderKey))) {
			return nil, ddserror.New(ddserror.InvalidCryptoToken, "keyexchange: sender key is all-zero")
		}
	}

	m := &keymaterial.MasterKeyMaterial{
		Kind:        kind,
		Salt:        append([]byte(nil), salt...),
		SenderKeyID: senderKeyID,
		SenderKey:   append([]byte(nil), senderKey...),
	}

	recvKeyID, err := r.BE32()
	if err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: truncated receiver_specific_key_id")
	}
	m.ReceiverKeyID = recvKeyID
	if recvKeyID != 0 {
		recvKeyLen, err := r.BE32()
		if err != nil {
			return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: truncated receiver key_len")
		}
		recvKey, err := r.Bytes(int(recvKeyLen))
		if err != nil {
			return nil, ddserror.Wrap(ddserror.InvalidCryptoToken, err, "keyexchange: receiver key_len %d overflows buffer", recvKeyLen)
		}
		if int(recvKeyLen) != kind.KeySize() {
			return nil, ddserror.New(ddserror.InvalidCryptoToken, "keyexchange: receiver key length %d does not match kind %v", recvKeyLen, kind)
		}
		if bytes.Equal(recvKey, make([]byte, len(recvKey))) {
			return nil, ddserror.New(ddserror.InvalidCryptoToken, "keyexchange: receiver key is all-zero")
		}
		m.ReceiverKey = append([]byte(nil), recvKey...)
	}

	return m, nil
}

// CreateLocalParticipantTokens produces the single token carrying a
// participant's own P2P master key material (spec section 4.9:
// "create_local_*_tokens produces one or more such tokens: 1 for
// participant and reader").
func CreateLocalParticipantTokens(m *keymaterial.MasterKeyMaterial) ([]Token, error) {
	return createLocalTokens(m, nil)
}

// CreateLocalReaderTokens produces the single token carrying a reader's
// master key material.
func CreateLocalReaderTokens(m *keymaterial.MasterKeyMaterial) ([]Token, error) {
	return createLocalTokens(m, nil)
}

// CreateLocalWriterTokens produces up to two tokens for a writer: one for
// submessage protection and, when payload protection uses a different kind,
// a second for payload protection (spec section 4.9: "up to 2 for writer —
// one for submessage protection, one for payload protection, when kinds
// differ"). payload may be nil when payload protection is not configured.
func CreateLocalWriterTokens(submsg, payload *keymaterial.MasterKeyMaterial) ([]Token, error) {
	return createLocalTokens(submsg, payload)
}

func createLocalTokens(primary, secondary *keymaterial.MasterKeyMaterial) ([]Token, error) {
	encoded, err := EncodeMasterKeyMaterial(primary)
	if err != nil {
		return nil, err
	}
	tokens := []Token{{ClassID: ClassID, Value: encoded}}
	if secondary != nil && secondary.Kind != primary.Kind {
		encoded2, err := EncodeMasterKeyMaterial(secondary)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, Token{ClassID: ClassID, Value: encoded2})
	}
	return tokens, nil
}

// SetRemoteTokens deserializes and validates every token in tokens,
// returning the decoded master key material in the same order. The caller
// installs each into the Key Material Store (spec section 4.9:
// "set_remote_*_tokens deserializes and installs them").
func SetRemoteTokens(tokens []Token) ([]*keymaterial.MasterKeyMaterial, error) {
	out := make([]*keymaterial.MasterKeyMaterial, 0, len(tokens))
	for i, tok := range tokens {
		if tok.ClassID != ClassID {
			return nil, ddserror.New(ddserror.InvalidCryptoToken, "keyexchange: token %d has unknown class_id %q", i, tok.ClassID)
		}
		m, err := DecodeMasterKeyMaterial(tok.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
