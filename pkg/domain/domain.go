// Package domain implements the data model of spec section 3: Participant,
// Topic, Writer/Reader, Proxy Writer/Reader, Sample, and Instance, wired
// together with the QoS matching rules of pkg/qos and the instance-handle
// scheme of instance.go. It is the layer the rest of the core's components
// (rbuf, defrag, reorder, delivery, crypto, keymaterial) are assembled
// under; RTPS wire encode/decode itself is out of scope (spec section 1)
// and is the caller's responsibility — ProxyWriter exposes the
// Defragmenter/Reorder a wire-protocol layer would drive.
package domain

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/delivery"
	"github.com/ddsgo/cyclone/pkg/qos"
	"github.com/ddsgo/cyclone/pkg/reassembly/defrag"
	"github.com/ddsgo/cyclone/pkg/reassembly/reorder"
	"github.com/ddsgo/cyclone/pkg/timedevent"
)

// Guid identifies any entity (participant, topic-scoped endpoint, or proxy)
// well enough to route delivery and matching. Shared with pkg/delivery so a
// Reader's Guid is directly usable as a delivery.Queue reader id.
type Guid = delivery.Guid

// Topic is (name, key-type-class, topic QoS), spec section 3. KeyTypeClass
// identifies the key's type for instance-handle sharing purposes (spec
// section 3: "Equal keys across compatible topics share a handle") — it is
// not the topic name, since two differently-named topics over the same key
// type must share instance handles (scenario 2).
type Topic struct {
	Name         string
	KeyTypeClass string
	QoS          *qos.QoS
}

// Sample is one publication of a data value (spec section 3): sequence
// number, source timestamp, key hash, serialized payload, and status
// flags.
type Sample struct {
	SeqNum          uint64
	SourceTimestamp time.Time
	KeyHash         [16]byte
	Instance        InstanceHandle
	Payload         []byte
	Valid           bool
	Disposed        bool
	Unregistered    bool
}

// Writer is a local DataWriter endpoint bound to a topic (spec section 3).
type Writer struct {
	Guid  Guid
	Topic *Topic
	QoS   *qos.QoS

	participant *Participant
	mu          sync.Mutex
	nextSeq     uint64
	matched     map[Guid]*Reader
}

// Reader is a local DataReader endpoint bound to a topic (spec section 3).
// It keeps a per-instance sample history, the read/take cache standing in
// for the history-cache storage a real reader keeps per its history QoS.
type Reader struct {
	Guid  Guid
	Topic *Topic
	QoS   *qos.QoS

	participant *Participant
	mu          sync.Mutex
	byInstance  map[InstanceHandle][]*Sample
	matched     map[Guid]*Writer
}

// nackRetryMaxInterval caps the exponential backoff between NACK resends.
// Reliability retransmit is intra-process-network scale, not the
// multi-minute gRPC-reconnect scale the teacher's bird-adapter caps its own
// backoff at, hence the much smaller ceiling.
const nackRetryMaxInterval = time.Second

// ProxyWriter is the local shadow of a remote writer discovered on the wire
// (spec section 3): carries reliability/reassembly state per received
// submessage stream. Constructed per matched (local reader, remote writer)
// proxy relationship once discovery completes; a wire-protocol layer feeds
// it fragments and in-order sample chains.
type ProxyWriter struct {
	Guid    Guid
	Defrag  *defrag.Defragmenter
	Reorder *reorder.Reorder

	nackBackoff *backoff.ExponentialBackOff
}

// NewProxyWriter constructs a ProxyWriter with a fresh Defragmenter and
// Reorder buffer, both capped at maxSamples.
func NewProxyWriter(guid Guid, mode reorder.Mode, maxSamples int, startSeq uint64, dropPolicy defrag.Policy) *ProxyWriter {
	nackBackoff := &backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         nackRetryMaxInterval,
	}
	nackBackoff.Reset()
	return &ProxyWriter{
		Guid:        guid,
		Defrag:      defrag.New(maxSamples, dropPolicy),
		Reorder:     reorder.New(mode, maxSamples, startSeq),
		nackBackoff: nackBackoff,
	}
}

// ScheduleNackRetry arranges for fn (expected to resend a NACK built from
// pw.Reorder.Nackmap for the still-missing range) to run after the next
// exponential backoff interval, via sched — spec section 5's "reliability
// retransmit/heartbeat retry scheduling" riding the same timed-event
// scheduler thread as every other deadline. Grounded on the teacher's
// bird-adapter reconnect loop (modules/route/bird-adapter/service.go),
// which drives its gRPC stream reconnect attempts off the same
// backoff.ExponentialBackOff + NextBackOff() shape.
func (pw *ProxyWriter) ScheduleNackRetry(sched *timedevent.Scheduler, now time.Time, fn func()) timedevent.Handle {
	return sched.Schedule(now.Add(pw.nackBackoff.NextBackOff()), fn)
}

// ResetNackBackoff resets the exponential backoff state. Call this once
// pw.Reorder's gap closes (Nackmap reports nothing missing), so the next
// gap starts retrying from InitialInterval again rather than wherever the
// previous gap's backoff left off — the same Reset-on-success pattern the
// teacher's reconnect loop uses.
func (pw *ProxyWriter) ResetNackBackoff() {
	pw.nackBackoff.Reset()
}

// ProxyReader is the local shadow of a remote reader discovered on the wire
// (spec section 3): carries only the last-known sample needed to answer
// late-joiner heartbeats.
type ProxyReader struct {
	Guid Guid
	Last *Sample
}

// Participant is the root of a local DDS node in one domain (spec section
// 3): owns readers, writers, and topics; destruction cascades to all of
// them.
type Participant struct {
	Guid   Guid
	Domain uint32

	instances *InstanceRegistry

	mu      sync.Mutex
	topics  map[string]*Topic
	writers map[Guid]*Writer
	readers map[Guid]*Reader
	deleted bool
}

// NewParticipant constructs an empty Participant joining domain, sharing
// instances (the instance-handle registry) with every other participant in
// the same Runtime so that cross-participant instance-handle sharing (spec
// section 3) holds process-wide, not just within one participant.
func NewParticipant(guid Guid, domainID uint32, instances *InstanceRegistry) *Participant {
	return &Participant{
		Guid:      guid,
		Domain:    domainID,
		instances: instances,
		topics:    make(map[string]*Topic),
		writers:   make(map[Guid]*Writer),
		readers:   make(map[Guid]*Reader),
	}
}

// CreateTopic registers a topic under this participant. Returns
// IllegalOperation if a topic of the same name already exists with a
// different key-type-class, matching spec section 3's per-topic identity.
func (p *Participant) CreateTopic(name, keyTypeClass string, q *qos.QoS) (*Topic, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return nil, ddserror.New(ddserror.AlreadyDeleted, "domain: participant already deleted")
	}
	if existing, ok := p.topics[name]; ok {
		if existing.KeyTypeClass != keyTypeClass {
			return nil, ddserror.New(ddserror.IllegalOperation, "domain: topic %q already exists with a different key type", name)
		}
		return existing, nil
	}
	t := &Topic{Name: name, KeyTypeClass: keyTypeClass, QoS: q}
	p.topics[name] = t
	return t, nil
}

// CreateDataWriter creates a Writer bound to topic under this participant.
func (p *Participant) CreateDataWriter(guid Guid, topic *Topic, q *qos.QoS) (*Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return nil, ddserror.New(ddserror.AlreadyDeleted, "domain: participant already deleted")
	}
	w := &Writer{Guid: guid, Topic: topic, QoS: q, participant: p, matched: make(map[Guid]*Reader)}
	p.writers[guid] = w
	return w, nil
}

// CreateDataReader creates a Reader bound to topic under this participant.
func (p *Participant) CreateDataReader(guid Guid, topic *Topic, q *qos.QoS) (*Reader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deleted {
		return nil, ddserror.New(ddserror.AlreadyDeleted, "domain: participant already deleted")
	}
	r := &Reader{
		Guid:        guid,
		Topic:       topic,
		QoS:         q,
		participant: p,
		byInstance:  make(map[InstanceHandle][]*Sample),
		matched:     make(map[Guid]*Writer),
	}
	p.readers[guid] = r
	return r, nil
}

// Delete destroys the participant and every reader/writer it owns,
// unblocking anything waiting on them (spec section 5: "Participant
// deletion unblocks every thread waiting on any of its entities"). The
// unblocking itself is the caller's responsibility (e.g. via waitset
// Trigger on each entity's status condition); Delete only marks the
// participant's own state so subsequent calls observe AlreadyDeleted.
func (p *Participant) Delete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = true
	p.writers = make(map[Guid]*Writer)
	p.readers = make(map[Guid]*Reader)
	p.topics = make(map[string]*Topic)
}

// Match binds w and r together if their topics agree and their QoS is
// compatible under pkg/qos.Compatible (spec section 2: "readers and writers
// are matched when their topic, type, and QoS policies are compatible").
func Match(w *Writer, r *Reader) (bool, []string) {
	if w.Topic != r.Topic {
		return false, []string{"topic"}
	}
	ok, failed := qos.Compatible(w.QoS, r.QoS)
	if !ok {
		return false, failed
	}
	w.mu.Lock()
	w.matched[r.Guid] = r
	w.mu.Unlock()
	r.mu.Lock()
	r.matched[w.Guid] = w
	r.mu.Unlock()
	return true, nil
}

// Write publishes keyBytes/payload from w, computing the sample's instance
// handle via the participant's shared InstanceRegistry and delivering it
// directly (in-process loopback; a networked deployment would instead
// route this through the Cryptographic Transform and RTPS wire encode) to
// every currently matched reader's history cache.
func (w *Writer) Write(keyTypeClass string, keyBytes []byte, payload []byte, now time.Time) *Sample {
	w.mu.Lock()
	w.nextSeq++
	seq := w.nextSeq
	matched := make([]*Reader, 0, len(w.matched))
	for _, r := range w.matched {
		matched = append(matched, r)
	}
	w.mu.Unlock()

	s := &Sample{
		SeqNum:          seq,
		SourceTimestamp: now,
		KeyHash:         KeyHash(keyBytes),
		Instance:        w.participant.instances.Handle(keyTypeClass, keyBytes),
		Payload:         append([]byte(nil), payload...),
		Valid:           true,
	}
	for _, r := range matched {
		r.store(s)
	}
	return s
}

func (r *Reader) store(s *Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byInstance[s.Instance] = append(r.byInstance[s.Instance], s)
}

// Take returns and removes every buffered sample for instance handle h,
// regardless of which writer (or which topic, so long as it shares the
// instance space) produced it — spec section 8 scenario 2: "take_instance
// on R2 (topic T2) with H returns the sample with v=2."
func (r *Reader) Take(h InstanceHandle) ([]*Sample, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	samples, ok := r.byInstance[h]
	if !ok {
		return nil, ddserror.New(ddserror.NotFound, "domain: no samples buffered for instance handle")
	}
	delete(r.byInstance, h)
	return samples, nil
}

// TakeOne is a convenience over Take returning only the most recent sample,
// matching the single-sample read shape of scenario 2.
func (r *Reader) TakeOne(h InstanceHandle) (*Sample, error) {
	samples, err := r.Take(h)
	if err != nil {
		return nil, err
	}
	return samples[len(samples)-1], nil
}
