// Package qos implements the QoS model (spec section 4.6, component F): a
// sparsely-present container of policies, merge/equal/delta over that
// sparseness, validation, and writer/reader matching compatibility.
package qos

import "time"

// Infinity is the sentinel duration meaning "unbounded", spec section
// 4.6's "INFINITY = max" for the 64-bit nanosecond duration fields.
const Infinity = time.Duration(1<<63 - 1)

// LengthUnlimited marks a resource-limit or history depth as unbounded.
const LengthUnlimited int32 = -1

type Durability int

const (
	Volatile Durability = iota
	TransientLocal
	Transient
	Persistent
)

type HistoryKind int

const (
	KeepLast HistoryKind = iota
	KeepAll
)

type HistoryPolicy struct {
	Kind  HistoryKind
	Depth int32
}

type ResourceLimitsPolicy struct {
	MaxSamples            int32
	MaxInstances          int32
	MaxSamplesPerInstance int32
}

type ReliabilityKind int

const (
	BestEffort ReliabilityKind = iota
	Reliable
)

type ReliabilityPolicy struct {
	Kind            ReliabilityKind
	MaxBlockingTime time.Duration
}

type LivelinessKind int

const (
	Automatic LivelinessKind = iota
	ManualByParticipant
	ManualByTopic
)

type LivelinessPolicy struct {
	Kind          LivelinessKind
	LeaseDuration time.Duration
}

type OwnershipKind int

const (
	Shared OwnershipKind = iota
	Exclusive
)

type OwnershipPolicy struct {
	Kind OwnershipKind
}

type OwnershipStrengthPolicy struct {
	Value int32
}

type DestinationOrderKind int

const (
	ByReception DestinationOrderKind = iota
	BySource
)

type AccessScopeKind int

const (
	InstanceScope AccessScopeKind = iota
	TopicScope
	GroupScope
)

type PresentationPolicy struct {
	AccessScope AccessScopeKind
	Coherent    bool
	Ordered     bool
}

type PartitionPolicy struct {
	Names []string
}

type TimeBasedFilterPolicy struct {
	MinimumSeparation time.Duration
}

type LifespanPolicy struct {
	Duration time.Duration
}

type DurabilityServicePolicy struct {
	ServiceCleanupDelay time.Duration
	History             HistoryPolicy
	Resource            ResourceLimitsPolicy
}

type TransportPriorityPolicy struct {
	Value int32
}

type OctetsPolicy struct {
	Value []byte
}

type WriterDataLifecyclePolicy struct {
	AutodisposeUnregisteredInstances bool
}

type IgnoreLocalKind int

const (
	IgnoreNone IgnoreLocalKind = iota
	IgnoreParticipant
	IgnoreProcess
)

type ReaderDataLifecyclePolicy struct {
	AutopurgeNowriterDelay time.Duration
	AutopurgeDisposedDelay time.Duration
}

type TypeConsistencyKind int

const (
	Disallow TypeConsistencyKind = iota
	Allow
)

type TypeConsistencyPolicy struct {
	Kind                 TypeConsistencyKind
	IgnoreSequenceBounds bool
	IgnoreStringBounds   bool
	IgnoreMemberNames    bool
	PreventTypeWidening  bool
}

type DataRepresentationPolicy struct {
	Ids []int16
}

type EntityNamePolicy struct {
	Name string
}

type PropertyPolicy struct {
	Properties map[string]string
}

type BinaryPropertyPolicy struct {
	Properties map[string][]byte
}

// QoS is a sparse container of policies: a nil field is "not present",
// matching spec section 4.6's "opaque container of sparsely-present
// policies." Applies equally to participant, topic, publisher, subscriber,
// writer and reader QoS; not every field is meaningful for every entity
// kind (see the Policy/Applies-to table), a constraint this package does
// not enforce since the spec assigns that to each entity's own validation.
type QoS struct {
	Durability          *Durability
	History             *HistoryPolicy
	ResourceLimits      *ResourceLimitsPolicy
	Reliability         *ReliabilityPolicy
	Deadline            *time.Duration
	LatencyBudget       *time.Duration
	Liveliness          *LivelinessPolicy
	Ownership           *OwnershipPolicy
	OwnershipStrength   *OwnershipStrengthPolicy
	DestinationOrder    *DestinationOrderKind
	Presentation        *PresentationPolicy
	Partition           *PartitionPolicy
	TimeBasedFilter     *TimeBasedFilterPolicy
	Lifespan            *LifespanPolicy
	DurabilityService   *DurabilityServicePolicy
	TransportPriority   *TransportPriorityPolicy
	UserData            *OctetsPolicy
	TopicData           *OctetsPolicy
	GroupData           *OctetsPolicy
	WriterDataLifecycle *WriterDataLifecyclePolicy
	ReaderDataLifecycle *ReaderDataLifecyclePolicy
	IgnoreLocal         *IgnoreLocalKind
	TypeConsistency     *TypeConsistencyPolicy
	DataRepresentation  *DataRepresentationPolicy
	EntityName          *EntityNamePolicy
	Property            *PropertyPolicy
	BinaryProperty      *BinaryPropertyPolicy
}

// New returns an empty QoS (every policy absent).
func New() *QoS { return &QoS{} }

// Clone deep-copies q so the result shares no mutable state with it,
// needed wherever a QoS crosses an ownership boundary (a provider handing
// out a policy set, an entity snapshotting the QoS it was created with).
func (q *QoS) Clone() *QoS {
	if q == nil {
		return nil
	}
	out := *q
	if q.Durability != nil {
		v := *q.Durability
		out.Durability = &v
	}
	if q.History != nil {
		v := *q.History
		out.History = &v
	}
	if q.ResourceLimits != nil {
		v := *q.ResourceLimits
		out.ResourceLimits = &v
	}
	if q.Reliability != nil {
		v := *q.Reliability
		out.Reliability = &v
	}
	if q.Deadline != nil {
		v := *q.Deadline
		out.Deadline = &v
	}
	if q.LatencyBudget != nil {
		v := *q.LatencyBudget
		out.LatencyBudget = &v
	}
	if q.Liveliness != nil {
		v := *q.Liveliness
		out.Liveliness = &v
	}
	if q.Ownership != nil {
		v := *q.Ownership
		out.Ownership = &v
	}
	if q.OwnershipStrength != nil {
		v := *q.OwnershipStrength
		out.OwnershipStrength = &v
	}
	if q.DestinationOrder != nil {
		v := *q.DestinationOrder
		out.DestinationOrder = &v
	}
	if q.Presentation != nil {
		v := *q.Presentation
		out.Presentation = &v
	}
	if q.Partition != nil {
		v := PartitionPolicy{Names: append([]string(nil), q.Partition.Names...)}
		out.Partition = &v
	}
	if q.TimeBasedFilter != nil {
		v := *q.TimeBasedFilter
		out.TimeBasedFilter = &v
	}
	if q.Lifespan != nil {
		v := *q.Lifespan
		out.Lifespan = &v
	}
	if q.DurabilityService != nil {
		v := *q.DurabilityService
		out.DurabilityService = &v
	}
	if q.TransportPriority != nil {
		v := *q.TransportPriority
		out.TransportPriority = &v
	}
	out.UserData = cloneOctets(q.UserData)
	out.TopicData = cloneOctets(q.TopicData)
	out.GroupData = cloneOctets(q.GroupData)
	if q.WriterDataLifecycle != nil {
		v := *q.WriterDataLifecycle
		out.WriterDataLifecycle = &v
	}
	if q.ReaderDataLifecycle != nil {
		v := *q.ReaderDataLifecycle
		out.ReaderDataLifecycle = &v
	}
	if q.IgnoreLocal != nil {
		v := *q.IgnoreLocal
		out.IgnoreLocal = &v
	}
	if q.TypeConsistency != nil {
		v := *q.TypeConsistency
		out.TypeConsistency = &v
	}
	if q.DataRepresentation != nil {
		v := DataRepresentationPolicy{Ids: append([]int16(nil), q.DataRepresentation.Ids...)}
		out.DataRepresentation = &v
	}
	if q.EntityName != nil {
		v := *q.EntityName
		out.EntityName = &v
	}
	if q.Property != nil {
		v := PropertyPolicy{Properties: cloneStringMap(q.Property.Properties)}
		out.Property = &v
	}
	if q.BinaryProperty != nil {
		m := make(map[string][]byte, len(q.BinaryProperty.Properties))
		for k, val := range q.BinaryProperty.Properties {
			m[k] = append([]byte(nil), val...)
		}
		out.BinaryProperty = &BinaryPropertyPolicy{Properties: m}
	}
	return &out
}

func cloneOctets(p *OctetsPolicy) *OctetsPolicy {
	if p == nil {
		return nil
	}
	return &OctetsPolicy{Value: append([]byte(nil), p.Value...)}
}

func cloneStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Merge copies each policy present in src into dst wherever dst does not
// already have that policy present, per spec section 4.6: "merge(dst,
// src) copies each policy from src into dst iff dst does not already have
// that policy marked present." dst is mutated in place.
func Merge(dst, src *QoS) {
	if dst.Durability == nil {
		dst.Durability = src.Durability
	}
	if dst.History == nil {
		dst.History = src.History
	}
	if dst.ResourceLimits == nil {
		dst.ResourceLimits = src.ResourceLimits
	}
	if dst.Reliability == nil {
		dst.Reliability = src.Reliability
	}
	if dst.Deadline == nil {
		dst.Deadline = src.Deadline
	}
	if dst.LatencyBudget == nil {
		dst.LatencyBudget = src.LatencyBudget
	}
	if dst.Liveliness == nil {
		dst.Liveliness = src.Liveliness
	}
	if dst.Ownership == nil {
		dst.Ownership = src.Ownership
	}
	if dst.OwnershipStrength == nil {
		dst.OwnershipStrength = src.OwnershipStrength
	}
	if dst.DestinationOrder == nil {
		dst.DestinationOrder = src.DestinationOrder
	}
	if dst.Presentation == nil {
		dst.Presentation = src.Presentation
	}
	if dst.Partition == nil {
		dst.Partition = src.Partition
	}
	if dst.TimeBasedFilter == nil {
		dst.TimeBasedFilter = src.TimeBasedFilter
	}
	if dst.Lifespan == nil {
		dst.Lifespan = src.Lifespan
	}
	if dst.DurabilityService == nil {
		dst.DurabilityService = src.DurabilityService
	}
	if dst.TransportPriority == nil {
		dst.TransportPriority = src.TransportPriority
	}
	if dst.UserData == nil {
		dst.UserData = src.UserData
	}
	if dst.TopicData == nil {
		dst.TopicData = src.TopicData
	}
	if dst.GroupData == nil {
		dst.GroupData = src.GroupData
	}
	if dst.WriterDataLifecycle == nil {
		dst.WriterDataLifecycle = src.WriterDataLifecycle
	}
	if dst.ReaderDataLifecycle == nil {
		dst.ReaderDataLifecycle = src.ReaderDataLifecycle
	}
	if dst.IgnoreLocal == nil {
		dst.IgnoreLocal = src.IgnoreLocal
	}
	if dst.TypeConsistency == nil {
		dst.TypeConsistency = src.TypeConsistency
	}
	if dst.DataRepresentation == nil {
		dst.DataRepresentation = src.DataRepresentation
	}
	if dst.EntityName == nil {
		dst.EntityName = src.EntityName
	}
	if dst.Property == nil {
		dst.Property = src.Property
	}
	if dst.BinaryProperty == nil {
		dst.BinaryProperty = src.BinaryProperty
	}
}
