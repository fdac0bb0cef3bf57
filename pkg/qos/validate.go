package qos

import "fmt"

// Validate applies the rejection rules spec section 4.6 names ("KEEP_LAST
// requires depth >= 1; resource_limits require max_samples_per_instance
// <= max_samples; reliability.max_blocking_time >= 0; etc.") plus the
// non-negative-duration and well-formed-enum checks implied by "etc."
// Validators are pure functions over a single policy or pair, so each
// check below only ever reads q.
func Validate(q *QoS) error {
	if q.History != nil {
		if q.History.Kind == KeepLast && q.History.Depth < 1 {
			return fmt.Errorf("qos: history KEEP_LAST requires depth >= 1, got %d", q.History.Depth)
		}
	}

	if q.ResourceLimits != nil {
		rl := q.ResourceLimits
		if rl.MaxSamplesPerInstance != LengthUnlimited && rl.MaxSamples != LengthUnlimited &&
			rl.MaxSamplesPerInstance > rl.MaxSamples {
			return fmt.Errorf("qos: resource_limits max_samples_per_instance (%d) exceeds max_samples (%d)",
				rl.MaxSamplesPerInstance, rl.MaxSamples)
		}
	}

	if q.Reliability != nil && q.Reliability.MaxBlockingTime < 0 {
		return fmt.Errorf("qos: reliability max_blocking_time must be >= 0, got %s", q.Reliability.MaxBlockingTime)
	}

	if q.Deadline != nil && *q.Deadline < 0 {
		return fmt.Errorf("qos: deadline period must be >= 0, got %s", *q.Deadline)
	}

	if q.LatencyBudget != nil && *q.LatencyBudget < 0 {
		return fmt.Errorf("qos: latency_budget duration must be >= 0, got %s", *q.LatencyBudget)
	}

	if q.Liveliness != nil && q.Liveliness.LeaseDuration < 0 {
		return fmt.Errorf("qos: liveliness lease_duration must be >= 0, got %s", q.Liveliness.LeaseDuration)
	}

	if q.TimeBasedFilter != nil && q.TimeBasedFilter.MinimumSeparation < 0 {
		return fmt.Errorf("qos: time_based_filter minimum_separation must be >= 0, got %s", q.TimeBasedFilter.MinimumSeparation)
	}

	if q.Lifespan != nil && q.Lifespan.Duration < 0 {
		return fmt.Errorf("qos: lifespan duration must be >= 0, got %s", q.Lifespan.Duration)
	}

	if q.DurabilityService != nil {
		ds := q.DurabilityService
		if ds.ServiceCleanupDelay < 0 {
			return fmt.Errorf("qos: durability_service service_cleanup_delay must be >= 0, got %s", ds.ServiceCleanupDelay)
		}
		if ds.History.Kind == KeepLast && ds.History.Depth < 1 {
			return fmt.Errorf("qos: durability_service history KEEP_LAST requires depth >= 1, got %d", ds.History.Depth)
		}
		if ds.Resource.MaxSamplesPerInstance != LengthUnlimited && ds.Resource.MaxSamples != LengthUnlimited &&
			ds.Resource.MaxSamplesPerInstance > ds.Resource.MaxSamples {
			return fmt.Errorf("qos: durability_service resource_limits max_samples_per_instance (%d) exceeds max_samples (%d)",
				ds.Resource.MaxSamplesPerInstance, ds.Resource.MaxSamples)
		}
	}

	if q.ReaderDataLifecycle != nil {
		rdl := q.ReaderDataLifecycle
		if rdl.AutopurgeNowriterDelay < 0 {
			return fmt.Errorf("qos: reader_data_lifecycle autopurge_nowriter_delay must be >= 0, got %s", rdl.AutopurgeNowriterDelay)
		}
		if rdl.AutopurgeDisposedDelay < 0 {
			return fmt.Errorf("qos: reader_data_lifecycle autopurge_disposed_delay must be >= 0, got %s", rdl.AutopurgeDisposedDelay)
		}
	}

	if q.Presentation != nil {
		switch q.Presentation.AccessScope {
		case InstanceScope, TopicScope, GroupScope:
		default:
			return fmt.Errorf("qos: presentation access_scope %d is not a recognised value", q.Presentation.AccessScope)
		}
	}

	return nil
}
