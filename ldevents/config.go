package ldevents

import (
	"time"

	"gopkg.in/launchdarkly/go-sdk-common.v2/ldlog"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
)

const (
	// DefaultFlushInterval is the default value for EventsConfiguration.FlushInterval.
	DefaultFlushInterval = 5 * time.Second
	// DefaultUserKeysCapacity is the default value for EventsConfiguration.UserKeysCapacity.
	DefaultUserKeysCapacity = 1000
	// DefaultUserKeysFlushInterval is the default value for
	// EventsConfiguration.UserKeysFlushInterval.
	DefaultUserKeysFlushInterval = 5 * time.Minute
	// DefaultDiagnosticRecordingInterval is the default value for
	// EventsConfiguration.DiagnosticRecordingInterval.
	DefaultDiagnosticRecordingInterval = 15 * time.Minute
	// MinimumDiagnosticRecordingInterval is the minimum value for
	// EventsConfiguration.DiagnosticRecordingInterval.
	MinimumDiagnosticRecordingInterval = 1 * time.Minute
	// MinimumCapacity is the lowest allowed value for EventsConfiguration.Capacity; a
	// smaller configured value is raised to this floor.
	MinimumCapacity = 100
)

// EventsConfiguration contains options affecting the behavior of the events engine.
type EventsConfiguration struct {
	// Sets whether or not all user attributes (other than the key) should be hidden from
	// LaunchDarkly. If this is true, all user attribute values will be private, not just
	// the attributes specified in PrivateAttributeNames.
	AllAttributesPrivate bool
	// The capacity of the events buffer. The client buffers up to this many events in
	// memory before flushing. If the capacity is exceeded before the buffer is flushed,
	// events will be discarded. This also bounds the inbox between the producer threads
	// and the dispatcher. Values less than MinimumCapacity are raised to that floor.
	Capacity int
	// The interval at which periodic diagnostic events will be sent, if DiagnosticsManager
	// is non-nil.
	DiagnosticRecordingInterval time.Duration
	// An object that computes the content of diagnostic events, or nil if diagnostics are
	// disabled.
	DiagnosticsManager *DiagnosticsManager
	// The implementation of event delivery to use.
	EventSender EventSender
	// The time between flushes of the event buffer. Decreasing the flush interval means
	// that the event buffer is less likely to reach capacity.
	FlushInterval time.Duration
	// True if user keys can be included in log messages.
	LogUserKeyInErrors bool
	// Configures loggers for log output.
	Loggers ldlog.Loggers
	// True if full user details should be included in every analytics event. The default
	// is false: events will only include the user key, except for one "index" event that
	// provides the full details for the user.
	InlineUsersInEvents bool
	// Marks a set of user attribute names private. Any users sent to LaunchDarkly with
	// this configuration active will have attributes with these names removed.
	PrivateAttributeNames []lduser.UserAttribute
	// The number of user keys that the event processor can remember at any one time, so
	// that duplicate user details will not be sent in analytics events.
	UserKeysCapacity int
	// The interval at which the event processor will reset its set of known user keys.
	UserKeysFlushInterval time.Duration

	// Test instrumentation: overrides the source of the current time.
	currentTimeProvider func() ldtime.UnixMillisecondTime
	// Test instrumentation: allows a diagnostic recording interval below the normal minimum.
	forceDiagnosticRecordingInterval time.Duration
}
