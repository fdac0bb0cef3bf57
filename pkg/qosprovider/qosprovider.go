// Package qosprovider implements the QoS Provider (spec section 4.7,
// component G): an XML-backed library/profile/entity lookup that
// parameterizes endpoint creation. The document is parsed once at Load
// time and is immutable thereafter, so concurrent GetQos calls need no
// locking (spec section 5, "QoS provider: immutable after construction").
package qosprovider

import (
	"encoding/base64"
	"encoding/xml"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/ddsgo/cyclone/internal/ddserror"
	"github.com/ddsgo/cyclone/pkg/qos"
)

// Kind selects which entity-qos flavour a lookup or XML element refers to,
// mirroring the original's dds_public_qos_provider.h entity kind enum.
type Kind int

const (
	Participant Kind = iota
	Topic
	Publisher
	Subscriber
	DataReader
	DataWriter
)

func (k Kind) String() string {
	switch k {
	case Participant:
		return "participant"
	case Topic:
		return "topic"
	case Publisher:
		return "publisher"
	case Subscriber:
		return "subscriber"
	case DataReader:
		return "datareader"
	case DataWriter:
		return "datawriter"
	default:
		return "unknown"
	}
}

// entry is one parsed qos_*_qos element, addressed by its full path.
type entry struct {
	library string
	profile string
	name    string // entity name; "" for the anonymous entity of its kind
	kind    Kind
	qos     *qos.QoS
}

// Provider is the result of loading and scope-filtering one XML document.
// It holds the subset of entries whose library::profile matched the load
// scope; GetQos only ever searches this narrowed set.
type Provider struct {
	entries []entry
}

// Load parses an XML system-definition document and narrows it to the
// entries whose library and profile names match scope (spec section 4.7:
// "'*' as wildcard at any segment; unmatched scopes yield an empty
// provider, not an error"). scope is "library" or "library::profile"; an
// empty scope matches everything.
func Load(doc []byte, scope string) (*Provider, error) {
	var root xmlDocument
	if err := xml.Unmarshal(doc, &root); err != nil {
		return nil, ddserror.Wrap(ddserror.BadParameter, err, "qosprovider: malformed XML document")
	}

	libPattern, profPattern, err := splitLoadScope(scope)
	if err != nil {
		return nil, err
	}

	all, err := flatten(root)
	if err != nil {
		return nil, err
	}

	p := &Provider{}
	for _, e := range all {
		if matchSegment(libPattern, e.library) && matchSegment(profPattern, e.profile) {
			p.entries = append(p.entries, e)
		}
	}
	return p, nil
}

// LoadFile reads path and calls Load on its contents.
func LoadFile(path string, scope string) (*Provider, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.BadParameter, err, "qosprovider: failed to read %s", path)
	}
	return Load(buf, scope)
}

func splitLoadScope(scope string) (libPattern, profPattern string, err error) {
	if scope == "" {
		return "*", "*", nil
	}
	parts := strings.Split(scope, "::")
	switch len(parts) {
	case 1:
		return parts[0], "*", nil
	case 2:
		return parts[0], parts[1], nil
	default:
		return "", "", ddserror.New(ddserror.BadParameter, "qosprovider: load scope %q has more than two segments", scope)
	}
}

func matchSegment(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(value)
}

// GetQos looks up the QoS for kind at scope, a fully-qualified
// "library::profile" or "library::profile::entity" address. A scope this
// provider does not contain — whether filtered out at Load or never
// present in the document — is a BadParameter, matching spec section 8
// scenario 4 ("get_qos(READER, 'lib1::pro00') returns BadParameter"). The
// returned QoS is a clone: callers may mutate it freely without affecting
// the provider's internally-owned copy.
func (p *Provider) GetQos(kind Kind, scope string) (*qos.QoS, error) {
	library, profile, entityName, err := splitGetScope(scope)
	if err != nil {
		return nil, err
	}

	var candidates []entry
	for _, e := range p.entries {
		if e.library == library && e.profile == profile && e.kind == kind {
			candidates = append(candidates, e)
		}
	}

	switch {
	case entityName != "":
		for _, e := range candidates {
			if e.name == entityName {
				return e.qos.Clone(), nil
			}
		}
	case len(candidates) == 1:
		return candidates[0].qos.Clone(), nil
	case len(candidates) > 1:
		for _, e := range candidates {
			if e.name == "" {
				return e.qos.Clone(), nil
			}
		}
	}

	return nil, ddserror.New(ddserror.BadParameter, "qosprovider: no %s qos at scope %q", kind, scope)
}

func splitGetScope(scope string) (library, profile, entity string, err error) {
	parts := strings.Split(scope, "::")
	switch len(parts) {
	case 2:
		return parts[0], parts[1], "", nil
	case 3:
		return parts[0], parts[1], parts[2], nil
	default:
		return "", "", "", ddserror.New(ddserror.BadParameter, "qosprovider: get_qos scope %q must be 'library::profile' or 'library::profile::entity'", scope)
	}
}

// --- XML document shape ---
//
//	dds > qos_library[@name]* > qos_profile[@name]* >
//	  { domain_participant_qos | publisher_qos | subscriber_qos |
//	    topic_qos | datareader_qos | datawriter_qos }[@name]*

type xmlDocument struct {
	XMLName   xml.Name     `xml:"dds"`
	Libraries []xmlLibrary `xml:"qos_library"`
}

type xmlLibrary struct {
	Name     string       `xml:"name,attr"`
	Profiles []xmlProfile `xml:"qos_profile"`
}

type xmlProfile struct {
	Name        string      `xml:"name,attr"`
	Participant []xmlEntity `xml:"domain_participant_qos"`
	Publisher   []xmlEntity `xml:"publisher_qos"`
	Subscriber  []xmlEntity `xml:"subscriber_qos"`
	Topic       []xmlEntity `xml:"topic_qos"`
	DataReader  []xmlEntity `xml:"datareader_qos"`
	DataWriter  []xmlEntity `xml:"datawriter_qos"`
}

type xmlDuration struct {
	Sec     string `xml:"sec"`
	Nanosec string `xml:"nanosec"`
}

type xmlEntity struct {
	Name string `xml:"name,attr"`

	Durability *struct {
		Kind string `xml:"kind"`
	} `xml:"durability"`

	DurabilityService *struct {
		ServiceCleanupDelay xmlDuration `xml:"service_cleanup_delay"`
		HistoryKind         string      `xml:"history_kind"`
		HistoryDepth        int32       `xml:"history_depth"`
		MaxSamples          int32       `xml:"max_samples"`
		MaxInstances        int32       `xml:"max_instances"`
		MaxSamplesPerInst   int32       `xml:"max_samples_per_instance"`
	} `xml:"durability_service"`

	Deadline *struct {
		Period xmlDuration `xml:"period"`
	} `xml:"deadline"`

	LatencyBudget *struct {
		Duration xmlDuration `xml:"duration"`
	} `xml:"latency_budget"`

	Liveliness *struct {
		Kind          string      `xml:"kind"`
		LeaseDuration xmlDuration `xml:"lease_duration"`
	} `xml:"liveliness"`

	Reliability *struct {
		Kind            string      `xml:"kind"`
		MaxBlockingTime xmlDuration `xml:"max_blocking_time"`
	} `xml:"reliability"`

	DestinationOrder *struct {
		Kind string `xml:"kind"`
	} `xml:"destination_order"`

	History *struct {
		Kind  string `xml:"kind"`
		Depth int32  `xml:"depth"`
	} `xml:"history"`

	ResourceLimits *struct {
		MaxSamples            int32 `xml:"max_samples"`
		MaxInstances          int32 `xml:"max_instances"`
		MaxSamplesPerInstance int32 `xml:"max_samples_per_instance"`
	} `xml:"resource_limits"`

	Ownership *struct {
		Kind string `xml:"kind"`
	} `xml:"ownership"`

	OwnershipStrength *struct {
		Value int32 `xml:"value"`
	} `xml:"ownership_strength"`

	Presentation *struct {
		AccessScope string `xml:"access_scope"`
		Coherent    bool   `xml:"coherent_access"`
		Ordered     bool   `xml:"ordered_access"`
	} `xml:"presentation"`

	Partition *struct {
		Names []string `xml:"name>element"`
	} `xml:"partition"`

	TimeBasedFilter *struct {
		MinimumSeparation xmlDuration `xml:"minimum_separation"`
	} `xml:"time_based_filter"`

	Lifespan *struct {
		Duration xmlDuration `xml:"duration"`
	} `xml:"lifespan"`

	TransportPriority *struct {
		Value int32 `xml:"value"`
	} `xml:"transport_priority"`

	UserData *struct {
		Value string `xml:"value"`
	} `xml:"user_data"`

	TopicData *struct {
		Value string `xml:"value"`
	} `xml:"topic_data"`

	GroupData *struct {
		Value string `xml:"value"`
	} `xml:"group_data"`

	WriterDataLifecycle *struct {
		AutodisposeUnregisteredInstances bool `xml:"autodispose_unregistered_instances"`
	} `xml:"writer_data_lifecycle"`

	ReaderDataLifecycle *struct {
		AutopurgeNowriterDelay xmlDuration `xml:"autopurge_nowriter_samples_delay"`
		AutopurgeDisposedDelay xmlDuration `xml:"autopurge_disposed_samples_delay"`
	} `xml:"reader_data_lifecycle"`

	EntityName *struct {
		Value string `xml:"name"`
	} `xml:"entity_name"`

	TypeConsistency *struct {
		Kind                 string `xml:"kind"`
		IgnoreSequenceBounds bool   `xml:"ignore_sequence_bounds"`
		IgnoreStringBounds   bool   `xml:"ignore_string_bounds"`
		IgnoreMemberNames    bool   `xml:"ignore_member_names"`
		PreventTypeWidening  bool   `xml:"prevent_type_widening"`
	} `xml:"type_consistency"`

	DataRepresentation *struct {
		Ids []int16 `xml:"value>element"`
	} `xml:"data_representation"`

	Property *struct {
		Elements []xmlPropertyElement `xml:"value>element"`
	} `xml:"property"`

	BinaryProperty *struct {
		Elements []xmlPropertyElement `xml:"value>element"`
	} `xml:"binary_property"`
}

// xmlPropertyElement is one name/value pair of a property or
// binary_property list (spec section 4.7's "entity_name, property,
// binary_property: string / key-value"). binary_property values are
// base64-encoded the same way user_data/topic_data/group_data are.
type xmlPropertyElement struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

func flatten(doc xmlDocument) ([]entry, error) {
	if err := validateUnique(libraryNames(doc.Libraries)); err != nil {
		return nil, err
	}

	var out []entry
	for _, lib := range doc.Libraries {
		if err := validateUnique(profileNames(lib.Profiles)); err != nil {
			return nil, err
		}
		for _, prof := range lib.Profiles {
			groups := []struct {
				kind  Kind
				elems []xmlEntity
			}{
				{Participant, prof.Participant},
				{Publisher, prof.Publisher},
				{Subscriber, prof.Subscriber},
				{Topic, prof.Topic},
				{DataReader, prof.DataReader},
				{DataWriter, prof.DataWriter},
			}
			for _, g := range groups {
				names := make([]string, 0, len(g.elems))
				for _, e := range g.elems {
					names = append(names, e.Name)
				}
				if err := validateUnique(names); err != nil {
					return nil, err
				}
				for _, x := range g.elems {
					q, err := toQoS(x)
					if err != nil {
						return nil, err
					}
					out = append(out, entry{
						library: lib.Name,
						profile: prof.Name,
						name:    x.Name,
						kind:    g.kind,
						qos:     q,
					})
				}
			}
		}
	}
	return out, nil
}

func libraryNames(libs []xmlLibrary) []string {
	out := make([]string, len(libs))
	for i, l := range libs {
		out[i] = l.Name
	}
	return out
}

func profileNames(profiles []xmlProfile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Name
	}
	return out
}

// validateUnique enforces spec section 4.7's "library, profile, and entity
// names within a parent must be unique" and "anonymous libraries or
// profiles are allowed only when the document contains exactly one unnamed
// instance at that level".
func validateUnique(names []string) error {
	seen := make(map[string]int, len(names))
	anon := 0
	for _, n := range names {
		if n == "" {
			anon++
			continue
		}
		seen[n]++
		if seen[n] > 1 {
			return ddserror.New(ddserror.BadParameter, "qosprovider: duplicate name %q", n)
		}
	}
	if anon > 1 {
		return ddserror.New(ddserror.BadParameter, "qosprovider: more than one anonymous entry at this level")
	}
	return nil
}

func parseDuration(d xmlDuration) (time.Duration, error) {
	if d.Sec == "" && d.Nanosec == "" {
		return 0, nil
	}
	if d.Sec == "DURATION_INFINITY_SEC" || d.Nanosec == "DURATION_INFINITY_NSEC" {
		return qos.Infinity, nil
	}
	var sec, nsec int64
	var err error
	if d.Sec != "" {
		if sec, err = strconv.ParseInt(d.Sec, 10, 64); err != nil {
			return 0, ddserror.Wrap(ddserror.BadParameter, err, "qosprovider: malformed duration seconds %q", d.Sec)
		}
	}
	if d.Nanosec != "" {
		if nsec, err = strconv.ParseInt(d.Nanosec, 10, 64); err != nil {
			return 0, ddserror.Wrap(ddserror.BadParameter, err, "qosprovider: malformed duration nanoseconds %q", d.Nanosec)
		}
	}
	return time.Duration(sec)*time.Second + time.Duration(nsec), nil
}

func decodeOctets(value string) (*qos.OctetsPolicy, error) {
	if value == "" {
		return &qos.OctetsPolicy{}, nil
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, ddserror.Wrap(ddserror.BadParameter, err, "qosprovider: malformed base64 octet data")
	}
	return &qos.OctetsPolicy{Value: b}, nil
}

func toQoS(x xmlEntity) (*qos.QoS, error) {
	q := qos.New()

	if x.Durability != nil {
		d, err := parseDurabilityKind(x.Durability.Kind)
		if err != nil {
			return nil, err
		}
		q.Durability = &d
	}

	if x.DurabilityService != nil {
		ds := x.DurabilityService
		cleanup, err := parseDuration(ds.ServiceCleanupDelay)
		if err != nil {
			return nil, err
		}
		histKind, err := parseHistoryKind(ds.HistoryKind)
		if err != nil {
			return nil, err
		}
		q.DurabilityService = &qos.DurabilityServicePolicy{
			ServiceCleanupDelay: cleanup,
			History:             qos.HistoryPolicy{Kind: histKind, Depth: ds.HistoryDepth},
			Resource: qos.ResourceLimitsPolicy{
				MaxSamples:            ds.MaxSamples,
				MaxInstances:          ds.MaxInstances,
				MaxSamplesPerInstance: ds.MaxSamplesPerInst,
			},
		}
	}

	if x.Deadline != nil {
		d, err := parseDuration(x.Deadline.Period)
		if err != nil {
			return nil, err
		}
		q.Deadline = &d
	}

	if x.LatencyBudget != nil {
		d, err := parseDuration(x.LatencyBudget.Duration)
		if err != nil {
			return nil, err
		}
		q.LatencyBudget = &d
	}

	if x.Liveliness != nil {
		kind, err := parseLivelinessKind(x.Liveliness.Kind)
		if err != nil {
			return nil, err
		}
		lease, err := parseDuration(x.Liveliness.LeaseDuration)
		if err != nil {
			return nil, err
		}
		q.Liveliness = &qos.LivelinessPolicy{Kind: kind, LeaseDuration: lease}
	}

	if x.Reliability != nil {
		kind, err := parseReliabilityKind(x.Reliability.Kind)
		if err != nil {
			return nil, err
		}
		maxBlock, err := parseDuration(x.Reliability.MaxBlockingTime)
		if err != nil {
			return nil, err
		}
		q.Reliability = &qos.ReliabilityPolicy{Kind: kind, MaxBlockingTime: maxBlock}
	}

	if x.DestinationOrder != nil {
		kind, err := parseDestinationOrderKind(x.DestinationOrder.Kind)
		if err != nil {
			return nil, err
		}
		q.DestinationOrder = &kind
	}

	if x.History != nil {
		kind, err := parseHistoryKind(x.History.Kind)
		if err != nil {
			return nil, err
		}
		q.History = &qos.HistoryPolicy{Kind: kind, Depth: x.History.Depth}
	}

	if x.ResourceLimits != nil {
		q.ResourceLimits = &qos.ResourceLimitsPolicy{
			MaxSamples:            x.ResourceLimits.MaxSamples,
			MaxInstances:          x.ResourceLimits.MaxInstances,
			MaxSamplesPerInstance: x.ResourceLimits.MaxSamplesPerInstance,
		}
	}

	if x.Ownership != nil {
		kind, err := parseOwnershipKind(x.Ownership.Kind)
		if err != nil {
			return nil, err
		}
		q.Ownership = &qos.OwnershipPolicy{Kind: kind}
	}

	if x.OwnershipStrength != nil {
		q.OwnershipStrength = &qos.OwnershipStrengthPolicy{Value: x.OwnershipStrength.Value}
	}

	if x.Presentation != nil {
		scope, err := parseAccessScopeKind(x.Presentation.AccessScope)
		if err != nil {
			return nil, err
		}
		q.Presentation = &qos.PresentationPolicy{
			AccessScope: scope,
			Coherent:    x.Presentation.Coherent,
			Ordered:     x.Presentation.Ordered,
		}
	}

	if x.Partition != nil {
		q.Partition = &qos.PartitionPolicy{Names: append([]string(nil), x.Partition.Names...)}
	}

	if x.TimeBasedFilter != nil {
		d, err := parseDuration(x.TimeBasedFilter.MinimumSeparation)
		if err != nil {
			return nil, err
		}
		q.TimeBasedFilter = &qos.TimeBasedFilterPolicy{MinimumSeparation: d}
	}

	if x.Lifespan != nil {
		d, err := parseDuration(x.Lifespan.Duration)
		if err != nil {
			return nil, err
		}
		q.Lifespan = &qos.LifespanPolicy{Duration: d}
	}

	if x.TransportPriority != nil {
		q.TransportPriority = &qos.TransportPriorityPolicy{Value: x.TransportPriority.Value}
	}

	if x.UserData != nil {
		octets, err := decodeOctets(x.UserData.Value)
		if err != nil {
			return nil, err
		}
		q.UserData = octets
	}
	if x.TopicData != nil {
		octets, err := decodeOctets(x.TopicData.Value)
		if err != nil {
			return nil, err
		}
		q.TopicData = octets
	}
	if x.GroupData != nil {
		octets, err := decodeOctets(x.GroupData.Value)
		if err != nil {
			return nil, err
		}
		q.GroupData = octets
	}

	if x.WriterDataLifecycle != nil {
		q.WriterDataLifecycle = &qos.WriterDataLifecyclePolicy{
			AutodisposeUnregisteredInstances: x.WriterDataLifecycle.AutodisposeUnregisteredInstances,
		}
	}

	if x.ReaderDataLifecycle != nil {
		noWriter, err := parseDuration(x.ReaderDataLifecycle.AutopurgeNowriterDelay)
		if err != nil {
			return nil, err
		}
		disposed, err := parseDuration(x.ReaderDataLifecycle.AutopurgeDisposedDelay)
		if err != nil {
			return nil, err
		}
		q.ReaderDataLifecycle = &qos.ReaderDataLifecyclePolicy{
			AutopurgeNowriterDelay: noWriter,
			AutopurgeDisposedDelay: disposed,
		}
	}

	if x.EntityName != nil {
		q.EntityName = &qos.EntityNamePolicy{Name: x.EntityName.Value}
	}

	if x.TypeConsistency != nil {
		kind, err := parseTypeConsistencyKind(x.TypeConsistency.Kind)
		if err != nil {
			return nil, err
		}
		q.TypeConsistency = &qos.TypeConsistencyPolicy{
			Kind:                 kind,
			IgnoreSequenceBounds: x.TypeConsistency.IgnoreSequenceBounds,
			IgnoreStringBounds:   x.TypeConsistency.IgnoreStringBounds,
			IgnoreMemberNames:    x.TypeConsistency.IgnoreMemberNames,
			PreventTypeWidening:  x.TypeConsistency.PreventTypeWidening,
		}
	}

	if x.DataRepresentation != nil {
		ids := make([]int16, len(x.DataRepresentation.Ids))
		copy(ids, x.DataRepresentation.Ids)
		q.DataRepresentation = &qos.DataRepresentationPolicy{Ids: ids}
	}

	if x.Property != nil {
		props := make(map[string]string, len(x.Property.Elements))
		for _, e := range x.Property.Elements {
			props[e.Name] = e.Value
		}
		q.Property = &qos.PropertyPolicy{Properties: props}
	}

	if x.BinaryProperty != nil {
		props := make(map[string][]byte, len(x.BinaryProperty.Elements))
		for _, e := range x.BinaryProperty.Elements {
			b, err := base64.StdEncoding.DecodeString(e.Value)
			if err != nil {
				return nil, ddserror.Wrap(ddserror.BadParameter, err, "qosprovider: malformed base64 binary_property value for %q", e.Name)
			}
			props[e.Name] = b
		}
		q.BinaryProperty = &qos.BinaryPropertyPolicy{Properties: props}
	}

	return q, nil
}

func parseTypeConsistencyKind(s string) (qos.TypeConsistencyKind, error) {
	switch s {
	case "", "DISALLOW_TYPE_COERCION":
		return qos.Disallow, nil
	case "ALLOW_TYPE_COERCION":
		return qos.Allow, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised type_consistency kind %q", s)
	}
}

func parseDurabilityKind(s string) (qos.Durability, error) {
	switch s {
	case "VOLATILE_DURABILITY_QOS":
		return qos.Volatile, nil
	case "TRANSIENT_LOCAL_DURABILITY_QOS":
		return qos.TransientLocal, nil
	case "TRANSIENT_DURABILITY_QOS":
		return qos.Transient, nil
	case "PERSISTENT_DURABILITY_QOS":
		return qos.Persistent, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised durability kind %q", s)
	}
}

func parseHistoryKind(s string) (qos.HistoryKind, error) {
	switch s {
	case "", "KEEP_LAST_HISTORY_QOS":
		return qos.KeepLast, nil
	case "KEEP_ALL_HISTORY_QOS":
		return qos.KeepAll, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised history kind %q", s)
	}
}

func parseReliabilityKind(s string) (qos.ReliabilityKind, error) {
	switch s {
	case "BEST_EFFORT_RELIABILITY_QOS":
		return qos.BestEffort, nil
	case "RELIABLE_RELIABILITY_QOS":
		return qos.Reliable, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised reliability kind %q", s)
	}
}

func parseLivelinessKind(s string) (qos.LivelinessKind, error) {
	switch s {
	case "AUTOMATIC_LIVELINESS_QOS":
		return qos.Automatic, nil
	case "MANUAL_BY_PARTICIPANT_LIVELINESS_QOS":
		return qos.ManualByParticipant, nil
	case "MANUAL_BY_TOPIC_LIVELINESS_QOS":
		return qos.ManualByTopic, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised liveliness kind %q", s)
	}
}

func parseOwnershipKind(s string) (qos.OwnershipKind, error) {
	switch s {
	case "SHARED_OWNERSHIP_QOS":
		return qos.Shared, nil
	case "EXCLUSIVE_OWNERSHIP_QOS":
		return qos.Exclusive, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised ownership kind %q", s)
	}
}

func parseDestinationOrderKind(s string) (qos.DestinationOrderKind, error) {
	switch s {
	case "BY_RECEPTION_TIMESTAMP_DESTINATIONORDER_QOS":
		return qos.ByReception, nil
	case "BY_SOURCE_TIMESTAMP_DESTINATIONORDER_QOS":
		return qos.BySource, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised destination_order kind %q", s)
	}
}

func parseAccessScopeKind(s string) (qos.AccessScopeKind, error) {
	switch s {
	case "INSTANCE_PRESENTATION_QOS":
		return qos.InstanceScope, nil
	case "TOPIC_PRESENTATION_QOS":
		return qos.TopicScope, nil
	case "GROUP_PRESENTATION_QOS":
		return qos.GroupScope, nil
	default:
		return 0, ddserror.New(ddserror.BadParameter, "qosprovider: unrecognised presentation access_scope %q", s)
	}
}
