package qos

import (
	"bytes"
	"reflect"
)

// Equal reports whether a and b agree on every policy present in both,
// per spec section 4.6: "Deltas and equality compare only policies whose
// present bit is set in both operands." A policy present in only one of
// a or b does not affect the result.
func Equal(a, b *QoS) bool {
	if a == nil || b == nil {
		return a == b
	}
	if both(a.Durability, b.Durability) && *a.Durability != *b.Durability {
		return false
	}
	if both(a.History, b.History) && *a.History != *b.History {
		return false
	}
	if both(a.ResourceLimits, b.ResourceLimits) && *a.ResourceLimits != *b.ResourceLimits {
		return false
	}
	if both(a.Reliability, b.Reliability) && *a.Reliability != *b.Reliability {
		return false
	}
	if both(a.Deadline, b.Deadline) && *a.Deadline != *b.Deadline {
		return false
	}
	if both(a.LatencyBudget, b.LatencyBudget) && *a.LatencyBudget != *b.LatencyBudget {
		return false
	}
	if both(a.Liveliness, b.Liveliness) && *a.Liveliness != *b.Liveliness {
		return false
	}
	if both(a.Ownership, b.Ownership) && *a.Ownership != *b.Ownership {
		return false
	}
	if both(a.OwnershipStrength, b.OwnershipStrength) && *a.OwnershipStrength != *b.OwnershipStrength {
		return false
	}
	if both(a.DestinationOrder, b.DestinationOrder) && *a.DestinationOrder != *b.DestinationOrder {
		return false
	}
	if both(a.Presentation, b.Presentation) && *a.Presentation != *b.Presentation {
		return false
	}
	if both(a.Partition, b.Partition) && !reflect.DeepEqual(a.Partition.Names, b.Partition.Names) {
		return false
	}
	if both(a.TimeBasedFilter, b.TimeBasedFilter) && *a.TimeBasedFilter != *b.TimeBasedFilter {
		return false
	}
	if both(a.Lifespan, b.Lifespan) && *a.Lifespan != *b.Lifespan {
		return false
	}
	if both(a.DurabilityService, b.DurabilityService) && *a.DurabilityService != *b.DurabilityService {
		return false
	}
	if both(a.TransportPriority, b.TransportPriority) && *a.TransportPriority != *b.TransportPriority {
		return false
	}
	if both(a.UserData, b.UserData) && !bytes.Equal(a.UserData.Value, b.UserData.Value) {
		return false
	}
	if both(a.TopicData, b.TopicData) && !bytes.Equal(a.TopicData.Value, b.TopicData.Value) {
		return false
	}
	if both(a.GroupData, b.GroupData) && !bytes.Equal(a.GroupData.Value, b.GroupData.Value) {
		return false
	}
	if both(a.WriterDataLifecycle, b.WriterDataLifecycle) && *a.WriterDataLifecycle != *b.WriterDataLifecycle {
		return false
	}
	if both(a.ReaderDataLifecycle, b.ReaderDataLifecycle) && *a.ReaderDataLifecycle != *b.ReaderDataLifecycle {
		return false
	}
	if both(a.IgnoreLocal, b.IgnoreLocal) && *a.IgnoreLocal != *b.IgnoreLocal {
		return false
	}
	if both(a.TypeConsistency, b.TypeConsistency) && *a.TypeConsistency != *b.TypeConsistency {
		return false
	}
	if both(a.DataRepresentation, b.DataRepresentation) && !reflect.DeepEqual(a.DataRepresentation.Ids, b.DataRepresentation.Ids) {
		return false
	}
	if both(a.EntityName, b.EntityName) && *a.EntityName != *b.EntityName {
		return false
	}
	if both(a.Property, b.Property) && !reflect.DeepEqual(a.Property.Properties, b.Property.Properties) {
		return false
	}
	if both(a.BinaryProperty, b.BinaryProperty) && !reflect.DeepEqual(a.BinaryProperty.Properties, b.BinaryProperty.Properties) {
		return false
	}
	return true
}

// both reports whether both pointers are non-nil, the "present in both
// operands" gate spec section 4.6 requires before comparing a policy.
func both[T any](a, b *T) bool { return a != nil && b != nil }

// Delta returns a sparse QoS carrying b's value for every policy present
// in both a and b whose values differ; policies present in only one, or
// equal in both, are left absent. Useful for driving requested-QoS-changed
// listeners off of an incoming QoS update.
func Delta(a, b *QoS) *QoS {
	out := &QoS{}
	if both(a.Durability, b.Durability) && *a.Durability != *b.Durability {
		v := *b.Durability
		out.Durability = &v
	}
	if both(a.History, b.History) && *a.History != *b.History {
		v := *b.History
		out.History = &v
	}
	if both(a.ResourceLimits, b.ResourceLimits) && *a.ResourceLimits != *b.ResourceLimits {
		v := *b.ResourceLimits
		out.ResourceLimits = &v
	}
	if both(a.Reliability, b.Reliability) && *a.Reliability != *b.Reliability {
		v := *b.Reliability
		out.Reliability = &v
	}
	if both(a.Deadline, b.Deadline) && *a.Deadline != *b.Deadline {
		v := *b.Deadline
		out.Deadline = &v
	}
	if both(a.LatencyBudget, b.LatencyBudget) && *a.LatencyBudget != *b.LatencyBudget {
		v := *b.LatencyBudget
		out.LatencyBudget = &v
	}
	if both(a.Liveliness, b.Liveliness) && *a.Liveliness != *b.Liveliness {
		v := *b.Liveliness
		out.Liveliness = &v
	}
	if both(a.Ownership, b.Ownership) && *a.Ownership != *b.Ownership {
		v := *b.Ownership
		out.Ownership = &v
	}
	if both(a.OwnershipStrength, b.OwnershipStrength) && *a.OwnershipStrength != *b.OwnershipStrength {
		v := *b.OwnershipStrength
		out.OwnershipStrength = &v
	}
	if both(a.DestinationOrder, b.DestinationOrder) && *a.DestinationOrder != *b.DestinationOrder {
		v := *b.DestinationOrder
		out.DestinationOrder = &v
	}
	if both(a.Presentation, b.Presentation) && *a.Presentation != *b.Presentation {
		v := *b.Presentation
		out.Presentation = &v
	}
	if both(a.Partition, b.Partition) && !reflect.DeepEqual(a.Partition.Names, b.Partition.Names) {
		v := PartitionPolicy{Names: append([]string(nil), b.Partition.Names...)}
		out.Partition = &v
	}
	if both(a.TimeBasedFilter, b.TimeBasedFilter) && *a.TimeBasedFilter != *b.TimeBasedFilter {
		v := *b.TimeBasedFilter
		out.TimeBasedFilter = &v
	}
	if both(a.Lifespan, b.Lifespan) && *a.Lifespan != *b.Lifespan {
		v := *b.Lifespan
		out.Lifespan = &v
	}
	if both(a.DurabilityService, b.DurabilityService) && *a.DurabilityService != *b.DurabilityService {
		v := *b.DurabilityService
		out.DurabilityService = &v
	}
	if both(a.TransportPriority, b.TransportPriority) && *a.TransportPriority != *b.TransportPriority {
		v := *b.TransportPriority
		out.TransportPriority = &v
	}
	if both(a.UserData, b.UserData) && !bytes.Equal(a.UserData.Value, b.UserData.Value) {
		out.UserData = cloneOctets(b.UserData)
	}
	if both(a.TopicData, b.TopicData) && !bytes.Equal(a.TopicData.Value, b.TopicData.Value) {
		out.TopicData = cloneOctets(b.TopicData)
	}
	if both(a.GroupData, b.GroupData) && !bytes.Equal(a.GroupData.Value, b.GroupData.Value) {
		out.GroupData = cloneOctets(b.GroupData)
	}
	if both(a.WriterDataLifecycle, b.WriterDataLifecycle) && *a.WriterDataLifecycle != *b.WriterDataLifecycle {
		v := *b.WriterDataLifecycle
		out.WriterDataLifecycle = &v
	}
	if both(a.ReaderDataLifecycle, b.ReaderDataLifecycle) && *a.ReaderDataLifecycle != *b.ReaderDataLifecycle {
		v := *b.ReaderDataLifecycle
		out.ReaderDataLifecycle = &v
	}
	if both(a.IgnoreLocal, b.IgnoreLocal) && *a.IgnoreLocal != *b.IgnoreLocal {
		v := *b.IgnoreLocal
		out.IgnoreLocal = &v
	}
	if both(a.TypeConsistency, b.TypeConsistency) && *a.TypeConsistency != *b.TypeConsistency {
		v := *b.TypeConsistency
		out.TypeConsistency = &v
	}
	if both(a.DataRepresentation, b.DataRepresentation) && !reflect.DeepEqual(a.DataRepresentation.Ids, b.DataRepresentation.Ids) {
		v := DataRepresentationPolicy{Ids: append([]int16(nil), b.DataRepresentation.Ids...)}
		out.DataRepresentation = &v
	}
	if both(a.EntityName, b.EntityName) && *a.EntityName != *b.EntityName {
		v := *b.EntityName
		out.EntityName = &v
	}
	if both(a.Property, b.Property) && !reflect.DeepEqual(a.Property.Properties, b.Property.Properties) {
		v := PropertyPolicy{Properties: cloneStringMap(b.Property.Properties)}
		out.Property = &v
	}
	if both(a.BinaryProperty, b.BinaryProperty) && !reflect.DeepEqual(a.BinaryProperty.Properties, b.BinaryProperty.Properties) {
		out.BinaryProperty = b.Clone().BinaryProperty
	}
	return out
}
