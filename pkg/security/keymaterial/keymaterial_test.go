package keymaterial

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ddsgo/cyclone/internal/ddserror"
)

func TestOwnRoundTripsAndClones(t *testing.T) {
	s := New()
	var p [16]byte
	p[0] = 1

	m := &MasterKeyMaterial{
		Kind:        Transform256GCM,
		Salt:        []byte("salt"),
		SenderKeyID: 7,
		SenderKey:   []byte("sender-key-bytes"),
	}
	s.SetOwn(p, m)

	got, err := s.Own(p)
	require.NoError(t, err, "Own")
	require.EqualValues(t, 7, got.SenderKeyID)
	require.Equal(t, "sender-key-bytes", string(got.SenderKey))

	got.SenderKey[0] = 'X'
	again, err := s.Own(p)
	require.NoError(t, err)
	require.Equal(t, "sender-key-bytes", string(again.SenderKey), "mutating a returned clone must not affect the store")
}

func TestOwnNotFoundWhenUnset(t *testing.T) {
	s := New()
	var p [16]byte
	_, err := s.Own(p)
	require.True(t, ddserror.Is(err, ddserror.NotFound), "Own on an unset participant should be NotFound, got %v", err)
}

func TestPeerIsolatedPerParticipantAndPeer(t *testing.T) {
	s := New()
	var p1, p2, peerA, peerB [16]byte
	p1[0], p2[0] = 1, 2
	peerA[0], peerB[0] = 0xA, 0xB

	s.SetPeer(p1, peerA, &MasterKeyMaterial{Kind: Transform128GCM, SenderKey: []byte("a")})
	s.SetPeer(p1, peerB, &MasterKeyMaterial{Kind: Transform128GCM, SenderKey: []byte("b")})

	got, err := s.Peer(p1, peerA)
	require.NoError(t, err)
	require.Equal(t, "a", string(got.SenderKey))

	_, err = s.Peer(p2, peerA)
	require.True(t, ddserror.Is(err, ddserror.NotFound), "p2 should not see p1's peer key material, got %v", err)
}

func TestSessionForCreatesOnFirstAccessAndPersists(t *testing.T) {
	s := New()
	var p, ep [16]byte
	p[0], ep[0] = 1, 2

	sess := s.SessionFor(p, ep)
	sess.SessionID = 5
	sess.IVSuffix = 42

	again := s.SessionFor(p, ep)
	require.EqualValues(t, 5, again.SessionID, "SessionFor should return the same live session")
	require.EqualValues(t, 42, again.IVSuffix)
}

func TestDeleteRemovesAllMaterialForParticipant(t *testing.T) {
	s := New()
	var p [16]byte
	p[0] = 1
	s.SetOwn(p, &MasterKeyMaterial{Kind: Transform128GCM, SenderKey: []byte("k")})

	s.Delete(p)

	_, err := s.Own(p)
	require.True(t, ddserror.Is(err, ddserror.NotFound), "Own after Delete should be NotFound, got %v", err)
}

func TestTransformKindKeySize(t *testing.T) {
	cases := []struct {
		kind TransformKind
		want int
	}{
		{TransformNone, 0},
		{Transform128GCM, 16},
		{Transform128GMAC, 16},
		{Transform256GCM, 32},
		{Transform256GMAC, 32},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.kind.KeySize(), "KeySize(%v)", c.kind)
	}
}
