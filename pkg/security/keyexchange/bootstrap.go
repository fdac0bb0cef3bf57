package keyexchange

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/security/keymaterial"
)

// bootstrapSaltSize is the length of the random salt DeriveBootstrapMaster
// generates; the crypto transform's session derivation mixes the salt in
// alongside each HMAC label whatever its length.
const bootstrapSaltSize = 32

// DeriveBootstrapMaster turns an out-of-band pre-shared secret into an
// initial master key pair for kind, using HKDF-SHA256 (RFC 5869) to expand
// sharedSecret into a sender key, a receiver-specific key, and a fresh
// random salt in one pass. This is not part of the token format in this
// section's literal key-exchange procedure, which only serializes
// already-established master key material; it is an additive convenience
// for seeding that procedure without a full DDS-Security Authentication
// plugin, letting two endpoints that already share a secret (e.g. from an
// offline provisioning step) bootstrap into steady-state token exchange and
// rekeying immediately.
func DeriveBootstrapMaster(sharedSecret []byte, kind keymaterial.TransformKind) (*keymaterial.MasterKeyMaterial, error) {
	if len(sharedSecret) == 0 {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "keyexchange: empty pre-shared secret")
	}
	if kind == keymaterial.TransformNone {
		return nil, ddserror.New(ddserror.InvalidCryptoArgument, "keyexchange: bootstrap requires a non-NONE transformation kind")
	}

	salt := make([]byte, bootstrapSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoArgument, err, "keyexchange: generating bootstrap salt")
	}

	keySize := kind.KeySize()
	expander := hkdf.New(sha256.New, sharedSecret, salt, []byte("dds-security-bootstrap-master"))

	senderKey := make([]byte, keySize)
	if _, err := io.ReadFull(expander, senderKey); err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoArgument, err, "keyexchange: deriving bootstrap sender key")
	}
	receiverKey := make([]byte, keySize)
	if _, err := io.ReadFull(expander, receiverKey); err != nil {
		return nil, ddserror.Wrap(ddserror.InvalidCryptoArgument, err, "keyexchange: deriving bootstrap receiver key")
	}

	return &keymaterial.MasterKeyMaterial{
		Kind:          kind,
		Salt:          salt,
		SenderKeyID:   1,
		SenderKey:     senderKey,
		ReceiverKeyID: 1,
		ReceiverKey:   receiverKey,
	}, nil
}
