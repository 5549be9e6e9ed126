package ldevents

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Transforms internal event structs into the JSON shapes defined by the event service
// schema. Optional fields are omitted entirely when unset, never serialized as null.
type eventOutputFormatter struct {
	userFilter userFilter
	config     EventsConfiguration
}

type featureRequestEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	Value        ldvalue.Value              `json:"value"`
	Default      *ldvalue.Value             `json:"default,omitempty"`
	Variation    *int                       `json:"variation,omitempty"`
	Version      *int                       `json:"version,omitempty"`
	PrereqOf     *string                    `json:"prereqOf,omitempty"`
	ContextKind  string                     `json:"contextKind,omitempty"`
	User         *serializableUser          `json:"user,omitempty"`
	UserKey      *string                    `json:"userKey,omitempty"`
	Reason       *ldreason.EvaluationReason `json:"reason,omitempty"`
}

type identifyEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	User         *serializableUser          `json:"user"`
}

type customEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	Data         *ldvalue.Value             `json:"data,omitempty"`
	User         *serializableUser          `json:"user,omitempty"`
	UserKey      *string                    `json:"userKey,omitempty"`
	MetricValue  *float64                   `json:"metricValue,omitempty"`
	ContextKind  string                     `json:"contextKind,omitempty"`
}

type aliasEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	Key          string                     `json:"key"`
	ContextKind  string                     `json:"contextKind"`
	PreviousKey  string                     `json:"previousKey"`
	PreviousContextKind string              `json:"previousContextKind"`
}

type indexEventOutput struct {
	Kind         string                     `json:"kind"`
	CreationDate ldtime.UnixMillisecondTime `json:"creationDate"`
	User         *serializableUser          `json:"user"`
}

type summaryEventOutput struct {
	Kind      string                      `json:"kind"`
	StartDate ldtime.UnixMillisecondTime  `json:"startDate"`
	EndDate   ldtime.UnixMillisecondTime  `json:"endDate"`
	Features  map[string]flagSummaryData  `json:"features"`
}

type flagSummaryData struct {
	Default  ldvalue.Value     `json:"default"`
	Counters []flagCounterData `json:"counters"`
}

type flagCounterData struct {
	Value     ldvalue.Value `json:"value"`
	Count     int           `json:"count"`
	Variation *int          `json:"variation,omitempty"`
	Version   *int          `json:"version,omitempty"`
	Unknown   *bool         `json:"unknown,omitempty"`
}

// Produces the JSON array elements for an analytics payload: one element per full event,
// plus the summary as the last element if it is non-empty.
func (ef eventOutputFormatter) makeOutputEvents(events []Event, summary eventSummary) []interface{} {
	out := make([]interface{}, 0, len(events)+1)
	for _, e := range events {
		if oe := ef.makeOutputEvent(e); oe != nil {
			out = append(out, oe)
		}
	}
	if summary.hasCounters() {
		out = append(out, ef.makeSummaryEvent(summary))
	}
	return out
}

func (ef eventOutputFormatter) makeOutputEvent(evt Event) interface{} {
	switch evt := evt.(type) {
	case FeatureRequestEvent:
		out := featureRequestEventOutput{
			CreationDate: evt.CreationDate,
			Key:          evt.Key,
			Value:        evt.Value,
			Default:      evt.Default.AsPointer(),
			ContextKind:  anonymousContextKind(evt.User),
		}
		if evt.Debug {
			out.Kind = "debug"
			// Debug events always embed the full user, regardless of configuration.
			out.User = ef.userFilter.scrubUser(evt.User)
		} else {
			out.Kind = "feature"
			out.User, out.UserKey = ef.userOrKey(evt.User)
		}
		if evt.Variation != NoVariation {
			variation := evt.Variation
			out.Variation = &variation
		}
		if evt.Version != NoVersion {
			version := evt.Version
			out.Version = &version
		}
		if evt.PrereqOf != "" {
			prereqOf := evt.PrereqOf
			out.PrereqOf = &prereqOf
		}
		if evt.Reason.GetKind() != "" {
			reason := evt.Reason
			out.Reason = &reason
		}
		return out
	case IdentifyEvent:
		return identifyEventOutput{
			Kind:         "identify",
			CreationDate: evt.CreationDate,
			Key:          evt.User.GetKey(),
			User:         ef.userFilter.scrubUser(evt.User),
		}
	case CustomEvent:
		out := customEventOutput{
			Kind:         "custom",
			CreationDate: evt.CreationDate,
			Key:          evt.Key,
			Data:         evt.Data.AsPointer(),
			ContextKind:  anonymousContextKind(evt.User),
		}
		out.User, out.UserKey = ef.userOrKey(evt.User)
		if evt.HasMetric {
			metricValue := evt.MetricValue
			out.MetricValue = &metricValue
		}
		return out
	case AliasEvent:
		return aliasEventOutput{
			Kind:                "alias",
			CreationDate:        evt.CreationDate,
			Key:                 evt.CurrentKey,
			ContextKind:         evt.CurrentKind,
			PreviousKey:         evt.PreviousKey,
			PreviousContextKind: evt.PreviousKind,
		}
	case IndexEvent:
		return indexEventOutput{
			Kind:         "index",
			CreationDate: evt.CreationDate,
			User:         ef.userFilter.scrubUser(evt.User),
		}
	}
	return nil
}

func (ef eventOutputFormatter) makeSummaryEvent(summary eventSummary) summaryEventOutput {
	features := make(map[string]flagSummaryData, len(summary.counters))
	for key, value := range summary.counters {
		fsd, ok := features[key.key]
		if !ok {
			fsd = flagSummaryData{
				Default:  value.flagDefault,
				Counters: make([]flagCounterData, 0, 2),
			}
		}
		counter := flagCounterData{
			Value: value.flagValue,
			Count: value.count,
		}
		if key.variation != NoVariation {
			variation := key.variation
			counter.Variation = &variation
		}
		if key.version == NoVersion {
			// The flag did not exist, so the version is explicitly marked unknown rather
			// than omitted.
			unknown := true
			counter.Unknown = &unknown
		} else {
			version := key.version
			counter.Version = &version
		}
		fsd.Counters = append(fsd.Counters, counter)
		features[key.key] = fsd
	}
	return summaryEventOutput{
		Kind:      "summary",
		StartDate: summary.startDate,
		EndDate:   summary.endDate,
		Features:  features,
	}
}

// Returns either an inline user or a userKey reference, depending on configuration.
func (ef eventOutputFormatter) userOrKey(user EventUser) (*serializableUser, *string) {
	if ef.config.InlineUsersInEvents {
		return ef.userFilter.scrubUser(user), nil
	}
	key := user.GetKey()
	return nil, &key
}

// The contextKind property is present only when the user is anonymous.
func anonymousContextKind(user EventUser) string {
	if anon, ok := user.GetAnonymousOptional(); ok && anon {
		return ContextKindAnonymousUser
	}
	return ""
}
