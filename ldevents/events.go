package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

const (
	// NoVariation is a sentinel for FeatureRequestEvent.Variation meaning that the
	// evaluation did not produce a variation index.
	NoVariation = -1
	// NoVersion is a sentinel for FeatureRequestEvent.Version meaning that the flag was
	// not found, so there is no known version.
	NoVersion = -1
)

// Context kinds reported in alias events and in the contextKind property of event output.
const (
	ContextKindUser          = "user"
	ContextKindAnonymousUser = "anonymousUser"
)

// Event represents an analytics event generated by the client.
type Event interface {
	GetBase() BaseEvent
}

// BaseEvent provides properties common to all events.
type BaseEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	User         EventUser
}

// EventUser is a combination of the standard User struct with additional information that
// may be relevant outside of the standard SDK event generation context.
type EventUser struct {
	lduser.User
	// AlreadyFilteredAttributes is a list of private attribute names that were already
	// removed from the user data before it reached the pipeline. This is only relevant
	// when reprocessing event data that has passed through attribute filtering once (as
	// the Relay Proxy does for PHP SDK events); normal SDK usage leaves it nil. When it
	// is non-nil, the user filter will not filter the user again.
	AlreadyFilteredAttributes []string
}

// User converts a regular User into an EventUser with no already-filtered attributes.
func User(user lduser.User) EventUser {
	return EventUser{User: user}
}

// FeatureRequestEvent is generated by evaluating a feature flag or one of a flag's
// prerequisites.
type FeatureRequestEvent struct {
	BaseEvent
	Key                  string
	Variation            int
	Value                ldvalue.Value
	Default              ldvalue.Value
	Version              int
	PrereqOf             string
	Reason               ldreason.EvaluationReason
	TrackEvents          bool
	Debug                bool
	DebugEventsUntilDate ldtime.UnixMillisecondTime
}

// IdentifyEvent is generated by calling the client's Identify method.
type IdentifyEvent struct {
	BaseEvent
}

// CustomEvent is generated by calling the client's Track method.
type CustomEvent struct {
	BaseEvent
	Key         string
	Data        ldvalue.Value
	HasMetric   bool
	MetricValue float64
}

// AliasEvent is generated by calling the client's Alias method. It associates two user
// keys, normally an anonymous key with a known one.
type AliasEvent struct {
	CreationDate ldtime.UnixMillisecondTime
	CurrentKey   string
	CurrentKind  string
	PreviousKey  string
	PreviousKind string
}

// IndexEvent is generated internally by the dispatcher to capture a user's full attribute
// set the first time that user is seen within the deduplication window.
type IndexEvent struct {
	BaseEvent
}

// GetBase returns the BaseEvent
func (evt FeatureRequestEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// GetBase returns the BaseEvent
func (evt CustomEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// GetBase returns the BaseEvent
func (evt IdentifyEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// GetBase returns a BaseEvent carrying only the creation date; alias events have keys
// rather than a full user.
func (evt AliasEvent) GetBase() BaseEvent {
	return BaseEvent{CreationDate: evt.CreationDate}
}

// GetBase returns the BaseEvent
func (evt IndexEvent) GetBase() BaseEvent {
	return evt.BaseEvent
}

// EventFactory is a configurable factory for event objects. Each record operation stamps
// the current time, so the stamp reflects when the event was produced rather than when
// the dispatcher got around to processing it.
type EventFactory struct {
	includeReasons bool
	timeFn         func() ldtime.UnixMillisecondTime
}

// NewEventFactory creates an EventFactory.
//
// The includeReasons parameter is true if evaluation events should always include the
// EvaluationReason (this is used by the SDK when one of the "VariationDetail" methods is
// called). The timeFn parameter is normally nil but can be used to instrument the factory
// with a source of time data other than the standard clock.
func NewEventFactory(includeReasons bool, timeFn func() ldtime.UnixMillisecondTime) EventFactory {
	if timeFn == nil {
		timeFn = ldtime.UnixMillisNow
	}
	return EventFactory{includeReasons, timeFn}
}

// NewUnknownFlagEvent creates an evaluation event for a missing flag.
func (f EventFactory) NewUnknownFlagEvent(
	key string,
	user EventUser,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
) FeatureRequestEvent {
	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
		Key:       key,
		Variation: NoVariation,
		Value:     defaultVal,
		Default:   defaultVal,
		Version:   NoVersion,
	}
	if f.includeReasons {
		fre.Reason = reason
	}
	return fre
}

// NewSuccessfulEvalEvent creates an evaluation event for an existing flag.
func (f EventFactory) NewSuccessfulEvalEvent(
	flagProps FlagEventProperties,
	user EventUser,
	variation int,
	value ldvalue.Value,
	defaultVal ldvalue.Value,
	reason ldreason.EvaluationReason,
	prereqOf string,
) FeatureRequestEvent {
	requireExperimentData := flagProps.IsExperimentationEnabled(reason)
	fre := FeatureRequestEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
		Key:                  flagProps.GetKey(),
		Version:              flagProps.GetVersion(),
		Variation:            variation,
		Value:                value,
		Default:              defaultVal,
		PrereqOf:             prereqOf,
		TrackEvents:          requireExperimentData || flagProps.IsFullEventTrackingEnabled(),
		DebugEventsUntilDate: flagProps.GetDebugEventsUntilDate(),
	}
	if f.includeReasons || requireExperimentData {
		fre.Reason = reason
	}
	return fre
}

// NewIdentifyEvent constructs a new identify event.
func (f EventFactory) NewIdentifyEvent(user EventUser) IdentifyEvent {
	return IdentifyEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
	}
}

// NewCustomEvent constructs a new custom event.
func (f EventFactory) NewCustomEvent(
	key string,
	user EventUser,
	data ldvalue.Value,
	withMetric bool,
	metricValue float64,
) CustomEvent {
	ce := CustomEvent{
		BaseEvent: BaseEvent{
			CreationDate: f.timeFn(),
			User:         user,
		},
		Key:         key,
		Data:        data,
		HasMetric:   withMetric,
		MetricValue: metricValue,
	}
	return ce
}

// NewAliasEvent constructs a new alias event. The context kind for each user is
// "anonymousUser" if the user has the anonymous attribute set, otherwise "user".
func (f EventFactory) NewAliasEvent(user EventUser, previousUser EventUser) AliasEvent {
	return AliasEvent{
		CreationDate: f.timeFn(),
		CurrentKey:   user.GetKey(),
		CurrentKind:  contextKindForUser(user),
		PreviousKey:  previousUser.GetKey(),
		PreviousKind: contextKindForUser(previousUser),
	}
}

func contextKindForUser(user EventUser) string {
	if anon, ok := user.GetAnonymousOptional(); ok && anon {
		return ContextKindAnonymousUser
	}
	return ContextKindUser
}
