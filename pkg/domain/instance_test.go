package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// The two well-known 128-byte MD5 collision blocks (Wang, Feng, Lai, Yu
// 2004), spelled out hex-encoded for readability; decoded by mustHex below.
const md5CollisionBlock1Hex = "d131dd02c5e6eec4693d9a0698aff95c2fcab58712467eab4004583eb8fb7f8" +
	"955ad340609f4b30283e488832571415a085125e8f7cdc99fd91dbdf280373c5" +
	"bd8823e3156348f5bae6dacd436c919c6dd53e2b487da03fd02396306d248cda" +
	"0e99f33420f577ee8ce54b67080a80d1ec69821bcb6a8839396f9652b6ff72a70"

const md5CollisionBlock2Hex = "d131dd02c5e6eec4693d9a0698aff95c2fcab50712467eab4004583eb8fb7f8" +
	"955ad340609f4b30283e4888325f1415a085125e8f7cdc99fd91dbd7280373c5" +
	"bd8823e3156348f5bae6dacd436c919c6dd53e23487da03fd02396306d248cda" +
	"0e99f33420f577ee8ce54b67080280d1ec69821bcb6a8839396f965ab6ff72a70"

// TestMD5KeyHashCollisionYieldsDistinctInstanceHandles is spec section 8
// scenario 3: the two 128-byte MD5 collision blocks hash to the identical
// 16-byte keyhash but must receive different instance handles.
func TestMD5KeyHashCollisionYieldsDistinctInstanceHandles(t *testing.T) {
	block1 := mustHex(t, md5CollisionBlock1Hex)
	block2 := mustHex(t, md5CollisionBlock2Hex)
	require.Len(t, block1, 128)
	require.Len(t, block2, 128)

	wantHash := [16]byte{0x79, 0x05, 0x40, 0x25, 0x25, 0x5F, 0xB1, 0xA2, 0x6E, 0x4B, 0xC4, 0x22, 0xAE, 0xF5, 0x4E, 0xB4}

	h1 := KeyHash(block1)
	h2 := KeyHash(block2)
	require.Equal(t, wantHash, h1, "KeyHash(block1)")
	require.Equal(t, wantHash, h2, "KeyHash(block2)")

	reg := NewInstanceRegistry()
	handle1 := reg.Handle("collision-key-type", block1)
	handle2 := reg.Handle("collision-key-type", block2)
	require.NotEqual(t, handle1, handle2, "colliding keyhashes must not collapse to the same instance handle")
}

func TestKeyHashShortKeyIsVerbatimZeroPadded(t *testing.T) {
	key := []byte{1, 2, 3}
	got := KeyHash(key)
	var want [16]byte
	copy(want[:], key)
	require.Equal(t, want, got, "KeyHash(short)")
}

func TestInstanceRegistrySameKeySameTypeShareHandle(t *testing.T) {
	reg := NewInstanceRegistry()
	h1 := reg.Handle("KeyTypeA", []byte{1, 0, 0, 0})
	h2 := reg.Handle("KeyTypeA", []byte{1, 0, 0, 0})
	require.Equal(t, h1, h2, "equal keys under the same type class should share a handle")
}

func TestInstanceRegistryDifferentKeysGetDistinctHandles(t *testing.T) {
	reg := NewInstanceRegistry()
	h1 := reg.Handle("KeyTypeA", []byte{1, 0, 0, 0})
	h2 := reg.Handle("KeyTypeA", []byte{2, 0, 0, 0})
	require.NotEqual(t, h1, h2, "different keys must get different handles")
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	require.Zero(t, len(s)%2, "odd-length hex string")
	out := make([]byte, len(s)/2)
	for i := range out {
		out[i] = hexDigit(t, s[2*i])<<4 | hexDigit(t, s[2*i+1])
	}
	return out
}

func hexDigit(t *testing.T, c byte) byte {
	t.Helper()
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		require.Failf(t, "bad hex digit", "%q", c)
		return 0
	}
}
