package qos

import "github.com/gobwas/glob"

// Compatible applies the standard DDS writer/reader QoS matching rules
// (spec section 8's "QoS compatibility is antisymmetric under the
// standard DDS matching rules, e.g., writer RELIABLE matches reader
// BEST_EFFORT but not vice versa") to the ⚑-marked policies from the
// section 4.6 table. A policy absent on either side is treated as
// compatible with anything (its default applies). Returns true plus a nil
// reason slice when every checked policy is compatible; otherwise false
// and the names of every policy that failed.
func Compatible(writer, reader *QoS) (bool, []string) {
	var failed []string

	if writer.Durability != nil && reader.Durability != nil {
		if *writer.Durability < *reader.Durability {
			failed = append(failed, "durability")
		}
	}

	if writer.Reliability != nil && reader.Reliability != nil {
		if reader.Reliability.Kind == Reliable && writer.Reliability.Kind != Reliable {
			failed = append(failed, "reliability")
		}
	}

	if writer.Deadline != nil && reader.Deadline != nil {
		if *writer.Deadline > *reader.Deadline {
			failed = append(failed, "deadline")
		}
	}

	if writer.Ownership != nil && reader.Ownership != nil {
		if writer.Ownership.Kind != reader.Ownership.Kind {
			failed = append(failed, "ownership")
		}
	}

	if writer.Liveliness != nil && reader.Liveliness != nil {
		if writer.Liveliness.Kind < reader.Liveliness.Kind {
			failed = append(failed, "liveliness")
		} else if writer.Liveliness.LeaseDuration > reader.Liveliness.LeaseDuration {
			failed = append(failed, "liveliness")
		}
	}

	if writer.DestinationOrder != nil && reader.DestinationOrder != nil {
		if *writer.DestinationOrder < *reader.DestinationOrder {
			failed = append(failed, "destination_order")
		}
	}

	if writer.Presentation != nil && reader.Presentation != nil {
		wp, rp := writer.Presentation, reader.Presentation
		if wp.AccessScope < rp.AccessScope {
			failed = append(failed, "presentation")
		} else if rp.Coherent && !wp.Coherent {
			failed = append(failed, "presentation")
		} else if rp.Ordered && !wp.Ordered {
			failed = append(failed, "presentation")
		}
	}

	if writer.Partition != nil && reader.Partition != nil {
		if !partitionsIntersect(writer.Partition.Names, reader.Partition.Names) {
			failed = append(failed, "partition")
		}
	}

	return len(failed) == 0, failed
}

// partitionsIntersect follows DDS partition matching: two endpoints match
// if they share at least one partition name, with "" meaning the default
// (unnamed) partition and "*" as a glob wildcard against the other side's
// names. Two entities with no partition names set at all (both empty)
// match by the default-partition rule.
func partitionsIntersect(a, b []string) bool {
	if len(a) == 0 {
		a = []string{""}
	}
	if len(b) == 0 {
		b = []string{""}
	}
	for _, x := range a {
		for _, y := range b {
			if partitionNameMatches(x, y) {
				return true
			}
		}
	}
	return false
}

func partitionNameMatches(a, b string) bool {
	if a == b {
		return true
	}
	return globMatch(a, b) || globMatch(b, a)
}

// globMatch reports whether literal name matches pattern, where pattern
// may use '*' and '?' wildcards, the same grammar QoS-Provider scope
// matching uses (qosprovider.go). Returns false if pattern is not a
// well-formed glob, so a stray unescaped special character degrades to
// "no match" instead of panicking.
func globMatch(pattern, name string) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(name)
}
