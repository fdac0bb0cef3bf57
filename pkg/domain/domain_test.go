package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/qos"
)

func newGuid(b byte) Guid {
	var g Guid
	g[0] = b
	return g
}

// TestInstanceHandleReuseAcrossTopics is spec section 8 scenario 2: two
// topics of the same key type; key {k=1,v=1} written on W1 (topic T1), key
// {k=1,v=2} written on W2 (topic T2); reading from R1 (T1) yields handle H;
// take_instance on R2 (T2) with H returns the sample with v=2.
func TestInstanceHandleReuseAcrossTopics(t *testing.T) {
	instances := NewInstanceRegistry()
	p := NewParticipant(newGuid(1), 0, instances)

	reliable := &qos.QoS{}
	t1, err := p.CreateTopic("T1", "KeyTypeA", reliable)
	require.NoError(t, err, "CreateTopic T1")
	t2, err := p.CreateTopic("T2", "KeyTypeA", reliable)
	require.NoError(t, err, "CreateTopic T2")

	w1, err := p.CreateDataWriter(newGuid(0x10), t1, reliable)
	require.NoError(t, err, "CreateDataWriter W1")
	w2, err := p.CreateDataWriter(newGuid(0x20), t2, reliable)
	require.NoError(t, err, "CreateDataWriter W2")
	r1, err := p.CreateDataReader(newGuid(0x11), t1, reliable)
	require.NoError(t, err, "CreateDataReader R1")
	r2, err := p.CreateDataReader(newGuid(0x21), t2, reliable)
	require.NoError(t, err, "CreateDataReader R2")

	ok, failed := Match(w1, r1)
	require.True(t, ok, "Match(w1, r1) failed: %v", failed)
	ok, failed = Match(w2, r2)
	require.True(t, ok, "Match(w2, r2) failed: %v", failed)

	key := []byte{1, 0, 0, 0} // k=1
	now := time.Now()
	w1.Write("KeyTypeA", key, []byte{1}, now) // v=1
	w2.Write("KeyTypeA", key, []byte{2}, now) // v=2

	h := w1.participant.instances.Handle("KeyTypeA", key)

	got, err := r2.TakeOne(h)
	require.NoError(t, err, "r2.TakeOne")
	require.Equal(t, []byte{2}, got.Payload, "r2.TakeOne(H) payload")
}

func TestMatchRejectsDifferentTopics(t *testing.T) {
	instances := NewInstanceRegistry()
	p := NewParticipant(newGuid(1), 0, instances)
	q := &qos.QoS{}
	t1, _ := p.CreateTopic("T1", "K", q)
	t2, _ := p.CreateTopic("T2", "K", q)

	w, _ := p.CreateDataWriter(newGuid(2), t1, q)
	r, _ := p.CreateDataReader(newGuid(3), t2, q)

	ok, failed := Match(w, r)
	require.False(t, ok, "Match across different topics should fail, failed = %v", failed)
}

func TestMatchRejectsIncompatibleReliability(t *testing.T) {
	instances := NewInstanceRegistry()
	p := NewParticipant(newGuid(1), 0, instances)
	topicQoS := &qos.QoS{}
	topic, _ := p.CreateTopic("T", "K", topicQoS)

	writerQoS := &qos.QoS{Reliability: &qos.ReliabilityPolicy{Kind: qos.BestEffort}}
	readerQoS := &qos.QoS{Reliability: &qos.ReliabilityPolicy{Kind: qos.Reliable}}

	w, _ := p.CreateDataWriter(newGuid(2), topic, writerQoS)
	r, _ := p.CreateDataReader(newGuid(3), topic, readerQoS)

	ok, failed := Match(w, r)
	require.False(t, ok, "BEST_EFFORT writer must not match RELIABLE reader")
	require.Contains(t, failed, "reliability")
}

func TestCreateTopicRejectsKeyTypeMismatch(t *testing.T) {
	instances := NewInstanceRegistry()
	p := NewParticipant(newGuid(1), 0, instances)
	q := &qos.QoS{}
	_, err := p.CreateTopic("T", "KeyTypeA", q)
	require.NoError(t, err, "first CreateTopic")
	_, err = p.CreateTopic("T", "KeyTypeB", q)
	require.True(t, ddserror.Is(err, ddserror.IllegalOperation), "CreateTopic with mismatched key type: err = %v, want IllegalOperation", err)
}

func TestParticipantDeleteRejectsFurtherCreation(t *testing.T) {
	instances := NewInstanceRegistry()
	p := NewParticipant(newGuid(1), 0, instances)
	p.Delete()
	q := &qos.QoS{}
	_, err := p.CreateTopic("T", "K", q)
	require.True(t, ddserror.Is(err, ddserror.AlreadyDeleted), "CreateTopic after Delete: err = %v, want AlreadyDeleted", err)
}

func TestTakeRemovesBufferedSamples(t *testing.T) {
	instances := NewInstanceRegistry()
	p := NewParticipant(newGuid(1), 0, instances)
	q := &qos.QoS{}
	topic, _ := p.CreateTopic("T", "K", q)
	w, _ := p.CreateDataWriter(newGuid(2), topic, q)
	r, _ := p.CreateDataReader(newGuid(3), topic, q)
	ok, _ := Match(w, r)
	require.True(t, ok, "Match should succeed with no QoS constraints")

	key := []byte{9}
	w.Write("K", key, []byte("payload"), time.Now())
	h := instances.Handle("K", key)

	samples, err := r.Take(h)
	require.NoError(t, err)
	require.Len(t, samples, 1)

	_, err = r.Take(h)
	require.True(t, ddserror.Is(err, ddserror.NotFound), "second Take: err = %v, want NotFound", err)
}
