package qos

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func durPtr(d time.Duration) *time.Duration { return &d }

func TestMergeOnlyFillsAbsentPolicies(t *testing.T) {
	dst := New()
	dst.Reliability = &ReliabilityPolicy{Kind: BestEffort}

	src := New()
	src.Reliability = &ReliabilityPolicy{Kind: Reliable}
	src.Deadline = durPtr(5 * time.Second)

	Merge(dst, src)

	require.Equal(t, BestEffort, dst.Reliability.Kind, "Merge must not overwrite an already-present policy")
	require.NotNil(t, dst.Deadline)
	require.Equal(t, 5*time.Second, *dst.Deadline, "Merge should have filled the absent Deadline from src")
}

func TestEqualIgnoresPoliciesNotPresentInBoth(t *testing.T) {
	a := New()
	a.Deadline = durPtr(time.Second)

	b := New()
	b.Reliability = &ReliabilityPolicy{Kind: Reliable}

	require.True(t, Equal(a, b), "Equal should ignore Deadline (only in a) and Reliability (only in b)")
}

func TestEqualComparesPoliciesPresentInBoth(t *testing.T) {
	a := New()
	a.Deadline = durPtr(time.Second)
	b := New()
	b.Deadline = durPtr(2 * time.Second)

	require.False(t, Equal(a, b), "Equal should report false: Deadline differs and is present in both")
}

func TestDeltaOnlyReportsDifferingCommonPolicies(t *testing.T) {
	a := New()
	a.Deadline = durPtr(time.Second)
	a.TransportPriority = &TransportPriorityPolicy{Value: 1}

	b := New()
	b.Deadline = durPtr(2 * time.Second)                     // present in both, differs
	b.TransportPriority = &TransportPriorityPolicy{Value: 1} // present in both, same
	b.Lifespan = &LifespanPolicy{Duration: time.Minute}      // only in b

	d := Delta(a, b)
	require.NotNil(t, d.Deadline)
	require.Equal(t, 2*time.Second, *d.Deadline, "Delta should report b's Deadline")
	require.Nil(t, d.TransportPriority, "Delta should omit TransportPriority (equal in both)")
	require.Nil(t, d.Lifespan, "Delta should omit Lifespan (present only in b)")
}

func TestCloneIsIndependent(t *testing.T) {
	a := New()
	a.Partition = &PartitionPolicy{Names: []string{"x", "y"}}

	b := a.Clone()
	b.Partition.Names[0] = "mutated"

	require.Equal(t, "x", a.Partition.Names[0], "mutating the clone's partition names must not affect the original")
	require.Empty(t, cmp.Diff([]string{"x", "y"}, a.Partition.Names), "original partition names changed")
}

func TestValidateRejectsKeepLastWithZeroDepth(t *testing.T) {
	q := New()
	q.History = &HistoryPolicy{Kind: KeepLast, Depth: 0}
	require.Error(t, Validate(q), "Validate should reject KEEP_LAST with depth 0")
}

func TestValidateRejectsResourceLimitsOrderingViolation(t *testing.T) {
	q := New()
	q.ResourceLimits = &ResourceLimitsPolicy{MaxSamples: 10, MaxSamplesPerInstance: 20}
	require.Error(t, Validate(q), "Validate should reject max_samples_per_instance > max_samples")
}

func TestValidateAllowsUnlimitedResourceLimits(t *testing.T) {
	q := New()
	q.ResourceLimits = &ResourceLimitsPolicy{MaxSamples: LengthUnlimited, MaxSamplesPerInstance: 20}
	require.NoError(t, Validate(q), "Validate should allow any max_samples_per_instance when max_samples is unlimited")
}

func TestValidateRejectsNegativeMaxBlockingTime(t *testing.T) {
	q := New()
	q.Reliability = &ReliabilityPolicy{Kind: Reliable, MaxBlockingTime: -1}
	require.Error(t, Validate(q), "Validate should reject a negative max_blocking_time")
}

func TestCompatibleReliabilityIsAntisymmetric(t *testing.T) {
	reliableWriter := New()
	reliableWriter.Reliability = &ReliabilityPolicy{Kind: Reliable}
	bestEffortReader := New()
	bestEffortReader.Reliability = &ReliabilityPolicy{Kind: BestEffort}

	ok, failed := Compatible(reliableWriter, bestEffortReader)
	require.True(t, ok, "RELIABLE writer should match BEST_EFFORT reader, failed = %v", failed)

	bestEffortWriter := New()
	bestEffortWriter.Reliability = &ReliabilityPolicy{Kind: BestEffort}
	reliableReader := New()
	reliableReader.Reliability = &ReliabilityPolicy{Kind: Reliable}

	ok, failed = Compatible(bestEffortWriter, reliableReader)
	require.False(t, ok, "BEST_EFFORT writer should not match RELIABLE reader")
	require.Equal(t, []string{"reliability"}, failed)
}

func TestCompatibleDurabilityOrdinal(t *testing.T) {
	writer := New()
	w := TransientLocal
	writer.Durability = &w
	reader := New()
	r := Persistent
	reader.Durability = &r

	ok, failed := Compatible(writer, reader)
	require.False(t, ok, "writer durability below reader's requirement should not match")
	require.Equal(t, []string{"durability"}, failed)
}

func TestCompatiblePartitionWildcard(t *testing.T) {
	writer := New()
	writer.Partition = &PartitionPolicy{Names: []string{"sensors.*"}}
	reader := New()
	reader.Partition = &PartitionPolicy{Names: []string{"sensors.temperature"}}

	ok, failed := Compatible(writer, reader)
	require.True(t, ok, "partition wildcard should match, failed = %v", failed)
}

func TestCompatiblePartitionMismatch(t *testing.T) {
	writer := New()
	writer.Partition = &PartitionPolicy{Names: []string{"a"}}
	reader := New()
	reader.Partition = &PartitionPolicy{Names: []string{"b"}}

	ok, _ := Compatible(writer, reader)
	require.False(t, ok, "disjoint partitions should not match")
}

func TestCompatibleAbsentPolicyIsAlwaysCompatible(t *testing.T) {
	writer := New()
	reader := New()
	reader.Deadline = durPtr(time.Second)

	ok, failed := Compatible(writer, reader)
	require.True(t, ok, "a policy absent on the writer side should never fail matching, failed = %v", failed)
}
